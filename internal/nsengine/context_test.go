package nsengine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractContext_ExpandsAndMergesOverlappingWindows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	content := strings.Join([]string{
		"package sample",
		"",
		"func Widget() {}",
		"",
		"func other() {}",
		"",
		"// mentions widget again",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, truncated := ExtractContext(path, "widget", 1, 30)
	if truncated != 0 {
		t.Errorf("expected no truncation, got %d", truncated)
	}
	if len(lines) == 0 {
		t.Fatal("expected some context lines")
	}

	found := false
	for _, l := range lines {
		if strings.Contains(l.Text, "func Widget") {
			found = true
		}
	}
	if !found {
		t.Error("expected the Widget definition line among the context lines")
	}
}

func TestExtractContext_MissingFileDegradesToEmpty(t *testing.T) {
	lines, truncated := ExtractContext("/does/not/exist.go", "widget", 1, 30)
	if lines != nil || truncated != 0 {
		t.Errorf("expected empty result for missing file, got lines=%v truncated=%d", lines, truncated)
	}
}

func TestExtractContext_ZeroContextLinesReturnsNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	if err := os.WriteFile(path, []byte("package sample\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, _ := ExtractContext(path, "sample", 0, 30)
	if lines != nil {
		t.Errorf("expected nil lines when contextLines is 0, got %v", lines)
	}
}

func TestExtractContext_CapsWithNonzeroContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "many.go")

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("needle line\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, truncated := ExtractContext(path, "needle", 2, 10)
	if len(lines) != 10 {
		t.Errorf("expected exactly 10 lines under the cap, got %d", len(lines))
	}
	if truncated == 0 {
		t.Error("expected a nonzero truncated count")
	}
}

func TestMergeWindows_OverlappingAndAdjacentAreMerged(t *testing.T) {
	merged := mergeWindows([]lineWindow{
		{start: 1, end: 3},
		{start: 3, end: 5},
		{start: 10, end: 12},
		{start: 6, end: 9},
	})

	if len(merged) != 1 {
		t.Fatalf("expected 1 merged window, got %d: %v", len(merged), merged)
	}
	if merged[0].start != 1 || merged[0].end != 12 {
		t.Errorf("expected first window to span 1-12, got %+v", merged[0])
	}
}

func TestTokenizeQuery_LowercasesAndSplits(t *testing.T) {
	tokens := tokenizeQuery("HelloWorld foo_bar")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokens)
	}
	if tokens[0] != "helloworld" || tokens[1] != "foo_bar" {
		t.Errorf("unexpected tokens: %v", tokens)
	}
}
