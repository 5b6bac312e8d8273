package nsengine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// MockExecutor records commands and returns configured responses.
type MockExecutor struct {
	commands []MockCommand
	calls    []ExecutorCall
}

type MockCommand struct {
	NamePrefix string
	Output     []byte
	Err        error
}

type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		commands: make([]MockCommand, 0),
		calls:    make([]ExecutorCall, 0),
	}
}

func (m *MockExecutor) AddResponse(namePrefix string, output []byte, err error) {
	m.commands = append(m.commands, MockCommand{
		NamePrefix: namePrefix,
		Output:     output,
		Err:        err,
	})
}

func (m *MockExecutor) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	call := ExecutorCall{Dir: dir, Name: name, Args: args}
	m.calls = append(m.calls, call)

	fullCmd := name + " " + strings.Join(args, " ")

	for i, cmd := range m.commands {
		if strings.HasPrefix(fullCmd, cmd.NamePrefix) {
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			return cmd.Output, cmd.Err
		}
	}

	return nil, errors.New("no mock response configured for: " + fullCmd)
}

func (m *MockExecutor) GetCalls() []ExecutorCall {
	return m.calls
}

func (m *MockExecutor) MustGetLastCall(t *testing.T) ExecutorCall {
	t.Helper()
	if len(m.calls) == 0 {
		t.Fatal("Expected at least one command call")
	}
	return m.calls[len(m.calls)-1]
}

func TestNewGitClient(t *testing.T) {
	client := NewGitClient()
	if client.executor == nil {
		t.Error("Expected executor to be set")
	}
}

func TestNewGitClientWithExecutor(t *testing.T) {
	mock := NewMockExecutor()
	client := NewGitClientWithExecutor(mock)

	if client.executor != mock {
		t.Error("Expected custom executor to be used")
	}
}

func TestGitClient_IsGitRepository_True(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git rev-parse --git-dir", []byte(".git\n"), nil)

	client := NewGitClientWithExecutor(mock)
	if !client.IsGitRepository(context.Background(), "/tmp/repo") {
		t.Error("Expected true for valid repository")
	}
}

func TestGitClient_IsGitRepository_False(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git rev-parse --git-dir", nil, errors.New("not a git repository"))

	client := NewGitClientWithExecutor(mock)
	if client.IsGitRepository(context.Background(), "/tmp/not-a-repo") {
		t.Error("Expected false for non-repository")
	}
}

func TestGitClient_GetHeadCommit(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git rev-parse HEAD", []byte("abc123def456\n"), nil)

	client := NewGitClientWithExecutor(mock)
	commit, err := client.GetHeadCommit(context.Background(), "/tmp/repo")
	if err != nil {
		t.Fatalf("GetHeadCommit failed: %v", err)
	}
	if commit != "abc123def456" {
		t.Errorf("commit = %q, want abc123def456", commit)
	}
}

func TestGitClient_GetHeadCommit_Error(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git rev-parse HEAD", nil, errors.New("not a git repository"))

	client := NewGitClientWithExecutor(mock)
	_, err := client.GetHeadCommit(context.Background(), "/tmp/repo")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "git rev-parse HEAD") {
		t.Errorf("Expected wrapped git rev-parse error, got: %v", err)
	}
}

func TestGitClient_GetDiffNameStatus(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git diff --name-status", []byte("A\tsrc/new.go\nM\tsrc/main.go\nD\told.go\nR100\told_name.go\tnew_name.go\n"), nil)

	client := NewGitClientWithExecutor(mock)
	changes, err := client.GetDiffNameStatus(context.Background(), "/tmp/repo", "abc123", "def456")
	if err != nil {
		t.Fatalf("GetDiffNameStatus failed: %v", err)
	}

	if len(changes) != 4 {
		t.Fatalf("expected 4 changes, got %d: %+v", len(changes), changes)
	}
	if changes[0].Path != "src/new.go" || changes[0].Status != ChangeAdded {
		t.Errorf("changes[0] = %+v, want added src/new.go", changes[0])
	}
	if changes[1].Path != "src/main.go" || changes[1].Status != ChangeModified {
		t.Errorf("changes[1] = %+v, want modified src/main.go", changes[1])
	}
	if changes[2].Path != "old.go" || changes[2].Status != ChangeDeleted {
		t.Errorf("changes[2] = %+v, want deleted old.go", changes[2])
	}
	if changes[3].Status != ChangeRenamed || changes[3].OldPath != "old_name.go" || changes[3].Path != "new_name.go" {
		t.Errorf("changes[3] = %+v, want rename old_name.go -> new_name.go", changes[3])
	}
}

func TestGitClient_GetDiffNameStatus_Error(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git diff --name-status", nil, errors.New("bad revision"))

	client := NewGitClientWithExecutor(mock)
	_, err := client.GetDiffNameStatus(context.Background(), "/tmp/repo", "invalid", "commits")
	if err == nil {
		t.Fatal("Expected error")
	}
}

func TestGitClient_GetStatusPorcelain(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git status --porcelain", []byte(" M src/main.go\nA  src/new.go\n D old.go\n?? untracked.go\nR  old.go -> new.go\n"), nil)

	client := NewGitClientWithExecutor(mock)
	changes, err := client.GetStatusPorcelain(context.Background(), "/tmp/repo")
	if err != nil {
		t.Fatalf("GetStatusPorcelain failed: %v", err)
	}

	var sawUntracked bool
	for _, c := range changes {
		if c.Path == "untracked.go" {
			sawUntracked = true
		}
	}
	if sawUntracked {
		t.Error("untracked files should be excluded from porcelain parsing")
	}
	if len(changes) != 4 {
		t.Fatalf("expected 4 changes (untracked excluded), got %d: %+v", len(changes), changes)
	}
}

func TestGitClient_GetUntrackedFiles(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git ls-files --others --exclude-standard", []byte("scratch.go\nnotes.txt\n"), nil)

	client := NewGitClientWithExecutor(mock)
	files, err := client.GetUntrackedFiles(context.Background(), "/tmp/repo")
	if err != nil {
		t.Fatalf("GetUntrackedFiles failed: %v", err)
	}

	expected := []string{"scratch.go", "notes.txt"}
	if len(files) != len(expected) {
		t.Fatalf("expected %d files, got %d: %v", len(expected), len(files), files)
	}
	for i, f := range expected {
		if files[i] != f {
			t.Errorf("files[%d] = %q, want %q", i, files[i], f)
		}
	}
}

func TestGitClient_GetUntrackedFiles_EmptyOutput(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git ls-files --others --exclude-standard", []byte(""), nil)

	client := NewGitClientWithExecutor(mock)
	files, err := client.GetUntrackedFiles(context.Background(), "/tmp/repo")
	if err != nil {
		t.Fatalf("GetUntrackedFiles failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty file list, got %v", files)
	}
}

func TestDefaultExecutor_Run(t *testing.T) {
	executor := &DefaultExecutor{}
	ctx := context.Background()

	output, err := executor.Run(ctx, "", "echo", "hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(string(output), "hello") {
		t.Errorf("expected 'hello' in output, got %q", string(output))
	}
}

func TestDefaultExecutor_Run_WithDir(t *testing.T) {
	executor := &DefaultExecutor{}
	ctx := context.Background()

	tmpDir := t.TempDir()
	output, err := executor.Run(ctx, tmpDir, "pwd")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(string(output), tmpDir) {
		t.Errorf("expected directory in output, got %q", string(output))
	}
}

func TestDefaultExecutor_Run_Error(t *testing.T) {
	executor := &DefaultExecutor{}
	ctx := context.Background()

	_, err := executor.Run(ctx, "", "nonexistent-command-xyz")
	if err == nil {
		t.Error("Expected error for nonexistent command")
	}
}

func TestDefaultExecutor_Run_ContextCancellation(t *testing.T) {
	executor := &DefaultExecutor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Run(ctx, "", "sleep", "10")
	if err == nil {
		t.Error("Expected error for cancelled context")
	}
}
