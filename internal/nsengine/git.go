package nsengine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution so GitClient can be tested
// without shelling out to a real git binary.
type CommandExecutor interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output; on failure the
// returned error includes the command's stderr text.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// GitClient reads VCS state from a repository. It never mutates the
// repository it's pointed at; every method here is read-only, matching
// the incremental indexer's use of git as a change-detection oracle rather
// than a working-copy manager.
type GitClient struct {
	executor CommandExecutor
}

// NewGitClient creates a new GitClient with the default command executor.
func NewGitClient() *GitClient {
	return &GitClient{executor: &DefaultExecutor{}}
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for
// testing).
func NewGitClientWithExecutor(executor CommandExecutor) *GitClient {
	return &GitClient{executor: executor}
}

// IsGitRepository reports whether dir is inside a git working tree.
func (g *GitClient) IsGitRepository(ctx context.Context, dir string) bool {
	_, err := g.executor.Run(ctx, dir, "git", "rev-parse", "--git-dir")
	return err == nil
}

// GetHeadCommit returns the current HEAD commit SHA.
func (g *GitClient) GetHeadCommit(ctx context.Context, repoDir string) (string, error) {
	output, err := g.executor.Run(ctx, repoDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangeStatus is the classification git assigns a path between two
// commits, or between a commit and the working tree.
type ChangeStatus int

const (
	ChangeAdded ChangeStatus = iota
	ChangeModified
	ChangeDeleted
	ChangeRenamed
)

// PathChange is one entry from a git diff/status listing: a path and its
// status. For ChangeRenamed, Path is the new path and OldPath the prior
// one.
type PathChange struct {
	Path    string
	OldPath string
	Status  ChangeStatus
}

// GetDiffNameStatus returns the files that differ between fromCommit and
// toCommit, with their change status, via `git diff --name-status`.
func (g *GitClient) GetDiffNameStatus(ctx context.Context, repoDir, fromCommit, toCommit string) ([]PathChange, error) {
	output, err := g.executor.Run(ctx, repoDir, "git", "diff", "--name-status", fromCommit+".."+toCommit)
	if err != nil {
		return nil, fmt.Errorf("git diff --name-status: %w", err)
	}
	return parseNameStatus(string(output)), nil
}

// GetStatusPorcelain returns the working tree's uncommitted changes
// relative to HEAD via `git status --porcelain`, covering both staged and
// unstaged modifications, additions, deletions, and renames — but not
// untracked files (see GetUntrackedFiles).
func (g *GitClient) GetStatusPorcelain(ctx context.Context, repoDir string) ([]PathChange, error) {
	output, err := g.executor.Run(ctx, repoDir, "git", "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status --porcelain: %w", err)
	}
	return parsePorcelain(string(output)), nil
}

// GetUntrackedFiles returns files present on disk but not tracked by git
// and not excluded by any ignore rule, via
// `git ls-files --others --exclude-standard`.
func (g *GitClient) GetUntrackedFiles(ctx context.Context, repoDir string) ([]string, error) {
	output, err := g.executor.Run(ctx, repoDir, "git", "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git ls-files --others: %w", err)
	}
	return nonEmptyLines(output), nil
}

func parseNameStatus(output string) []PathChange {
	var changes []PathChange
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := fields[0]
		switch {
		case strings.HasPrefix(code, "A"):
			changes = append(changes, PathChange{Path: fields[1], Status: ChangeAdded})
		case strings.HasPrefix(code, "M"):
			changes = append(changes, PathChange{Path: fields[1], Status: ChangeModified})
		case strings.HasPrefix(code, "D"):
			changes = append(changes, PathChange{Path: fields[1], Status: ChangeDeleted})
		case strings.HasPrefix(code, "R"):
			if len(fields) >= 3 {
				changes = append(changes, PathChange{OldPath: fields[1], Path: fields[2], Status: ChangeRenamed})
			}
		}
	}
	return changes
}

func parsePorcelain(output string) []PathChange {
	var changes []PathChange
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if len(line) < 4 {
			continue
		}
		index, worktree := line[0], line[1]
		rest := strings.TrimSpace(line[3:])
		if index == '?' && worktree == '?' {
			continue // untracked, handled by GetUntrackedFiles
		}
		if strings.Contains(rest, " -> ") {
			parts := strings.SplitN(rest, " -> ", 2)
			changes = append(changes, PathChange{OldPath: parts[0], Path: parts[1], Status: ChangeRenamed})
			continue
		}
		switch {
		case index == 'D' || worktree == 'D':
			changes = append(changes, PathChange{Path: rest, Status: ChangeDeleted})
		case index == 'A':
			changes = append(changes, PathChange{Path: rest, Status: ChangeAdded})
		default:
			changes = append(changes, PathChange{Path: rest, Status: ChangeModified})
		}
	}
	return changes
}

func nonEmptyLines(output []byte) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
