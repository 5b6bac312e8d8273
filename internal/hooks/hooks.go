// Package hooks installs and removes the POSIX shell git hooks that trigger
// a background incremental re-index after commits, merges, and checkouts.
//
// Unix-only: git hooks require a POSIX shell and this package sets the
// executable bit via os.Chmod's mode bits.
package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// errNotGitRepo is returned by HooksDir when root has no .git directory.
var errNotGitRepo = errors.New("not a git repository")

// Marker is the comment used to identify ns-managed hook lines, so a
// re-run of Install is idempotent and Remove strips only ns-owned lines.
const Marker = "# ns: auto-generated"

// HookLine is the payload appended to each managed hook: run incremental
// indexing in the background so the hook itself returns immediately.
const HookLine = "ns index --incremental &"

// Names lists the git hooks ns manages.
var Names = []string{"post-commit", "post-merge", "post-checkout"}

// InstallResult classifies what Install did to one hook file.
type InstallResult int

const (
	Created InstallResult = iota
	Appended
	AlreadyPresent
	NotShellScript
)

// RemoveResult classifies what Remove did to one hook file.
type RemoveResult int

const (
	Deleted RemoveResult = iota
	Cleaned
	NotPresent
)

// HooksDir resolves .git/hooks under root, failing if root is not a git
// working tree.
func HooksDir(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("hooks.dir: %w", err)
	}

	gitDir := filepath.Join(abs, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		return "", fmt.Errorf("hooks.dir: %w", errNotGitRepo)
	}

	return filepath.Join(gitDir, "hooks"), nil
}

// Install writes or appends the ns hook line to every hook in Names,
// returning a map from hook name to its result, which the CLI adapter can
// report to the user.
func Install(root string) (map[string]InstallResult, error) {
	dir, err := HooksDir(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("hooks.install: %w", err)
	}

	results := make(map[string]InstallResult, len(Names))
	for _, name := range Names {
		result, err := installHook(filepath.Join(dir, name))
		if err != nil {
			return results, err
		}
		results[name] = result
	}
	return results, nil
}

func installHook(path string) (InstallResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			body := "#!/bin/sh\n" + Marker + "\n" + HookLine + "\n"
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				return 0, fmt.Errorf("hooks.install: %w", err)
			}
			if err := makeExecutable(path); err != nil {
				return 0, fmt.Errorf("hooks.install: %w", err)
			}
			return Created, nil
		}
		return 0, fmt.Errorf("hooks.install: %w", err)
	}

	text := string(content)
	if strings.Contains(text, HookLine) {
		return AlreadyPresent, nil
	}
	if !isShellScript(text) {
		return NotShellScript, nil
	}

	appendix := "\n" + Marker + "\n" + HookLine + "\n"
	if err := os.WriteFile(path, []byte(text+appendix), 0644); err != nil {
		return 0, fmt.Errorf("hooks.install: %w", err)
	}
	if err := makeExecutable(path); err != nil {
		return 0, fmt.Errorf("hooks.install: %w", err)
	}
	return Appended, nil
}

// isShellScript reports whether content's first line is a recognized shell
// shebang: a direct shell path, or `/usr/bin/env sh|bash|zsh`.
func isShellScript(content string) bool {
	firstLine, _, _ := strings.Cut(content, "\n")
	if !strings.HasPrefix(firstLine, "#!") {
		return false
	}
	shebang := strings.TrimSpace(firstLine[2:])
	fields := strings.Fields(shebang)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "/bin/sh", "/bin/bash", "/bin/zsh", "/usr/bin/sh", "/usr/bin/bash", "/usr/bin/zsh":
		return true
	case "/usr/bin/env":
		if len(fields) < 2 {
			return false
		}
		switch fields[1] {
		case "sh", "bash", "zsh":
			return true
		}
	}
	return false
}

func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode()|0o111)
}

// Remove strips ns-owned lines from every hook in Names, deleting the file
// outright when nothing else meaningful remains (i.e. only a shebang and/or
// blank lines).
func Remove(root string) (map[string]RemoveResult, error) {
	dir, err := HooksDir(root)
	if err != nil {
		return nil, err
	}

	results := make(map[string]RemoveResult, len(Names))
	for _, name := range Names {
		result, err := removeHook(filepath.Join(dir, name))
		if err != nil {
			return results, err
		}
		results[name] = result
	}
	return results, nil
}

func removeHook(path string) (RemoveResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NotPresent, nil
		}
		return 0, fmt.Errorf("hooks.remove: %w", err)
	}

	text := string(content)
	if !strings.Contains(text, HookLine) && !strings.Contains(text, Marker) {
		return NotPresent, nil
	}

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == Marker || trimmed == HookLine {
			continue
		}
		cleaned = append(cleaned, line)
	}

	meaningful := false
	for _, line := range cleaned {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#!") {
			continue
		}
		meaningful = true
		break
	}

	if !meaningful {
		if err := os.Remove(path); err != nil {
			return 0, fmt.Errorf("hooks.remove: %w", err)
		}
		return Deleted, nil
	}

	joined := strings.TrimRight(strings.Join(cleaned, "\n"), "\n") + "\n"
	if err := os.WriteFile(path, []byte(joined), 0644); err != nil {
		return 0, fmt.Errorf("hooks.remove: %w", err)
	}
	return Cleaned, nil
}
