package nsengine

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSearch_SymbolDefinitionOutranksCommentMention(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "widget.go", "package widget\n\n// this file talks about Widget in a comment, once\n")
	writeRepoFile(t, root, "other.go", "package other\n\nfunc Widget() {}\n")

	opts := BuildOptions{MaxFileSize: 1024 * 1024, StateDir: filepath.Join(root, ".ns")}
	if _, err := BuildFull(context.Background(), root, opts); err != nil {
		t.Fatalf("BuildFull failed: %v", err)
	}

	report, err := Search(context.Background(), root, opts, QuerySpec{Terms: "Widget"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Path != "other.go" {
		t.Errorf("expected other.go (symbol match) to rank first, got %q", report.Results[0].Path)
	}
}

func TestSearch_LangFilterExcludesOthers(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n\nfunc Alpha() {}\n")
	writeRepoFile(t, root, "b.py", "def alpha():\n    pass\n")

	opts := BuildOptions{MaxFileSize: 1024 * 1024, StateDir: filepath.Join(root, ".ns")}
	if _, err := BuildFull(context.Background(), root, opts); err != nil {
		t.Fatalf("BuildFull failed: %v", err)
	}

	report, err := Search(context.Background(), root, opts, QuerySpec{Terms: "alpha", LangFilter: "go"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range report.Results {
		if r.Lang != "go" {
			t.Errorf("expected only go results, got lang %q for %q", r.Lang, r.Path)
		}
	}
}

func TestSearch_EmptyQueryIsConfigError(t *testing.T) {
	root := t.TempDir()
	opts := BuildOptions{MaxFileSize: 1024 * 1024, StateDir: filepath.Join(root, ".ns")}

	_, err := Search(context.Background(), root, opts, QuerySpec{})
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	var ee *EngineError
	if !errorsAsEngine(err, &ee) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if ee.Kind != ErrConfig {
		t.Errorf("Kind = %v, want ErrConfig", ee.Kind)
	}
}

func TestSearch_MaxResultsClampedToCeiling(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n\nfunc Alpha() {}\n")

	opts := BuildOptions{MaxFileSize: 1024 * 1024, StateDir: filepath.Join(root, ".ns")}
	if _, err := BuildFull(context.Background(), root, opts); err != nil {
		t.Fatalf("BuildFull failed: %v", err)
	}

	_, err := Search(context.Background(), root, opts, QuerySpec{Terms: "alpha", MaxResults: 10000})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestSearch_FuzzyMultiWordQueryMatchesEachTermSeparately(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n\n// widget factroy helper\nfunc Widget() {}\n")

	opts := BuildOptions{MaxFileSize: 1024 * 1024, StateDir: filepath.Join(root, ".ns")}
	if _, err := BuildFull(context.Background(), root, opts); err != nil {
		t.Fatalf("BuildFull failed: %v", err)
	}

	// "factroy" is a one-edit misspelling of "factory"; a fuzzy query built
	// from the raw two-word string would never match any single indexed
	// token, so this only succeeds if the terms are tokenized individually.
	report, err := Search(context.Background(), root, opts, QuerySpec{Terms: "widget factroy", Fuzzy: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(report.Results) == 0 {
		t.Fatal("expected at least one fuzzy match for a multi-word query")
	}
}

func TestSearch_PopulatesRankingFactors(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n\nfunc Alpha() {}\n")

	opts := BuildOptions{MaxFileSize: 1024 * 1024, StateDir: filepath.Join(root, ".ns")}
	if _, err := BuildFull(context.Background(), root, opts); err != nil {
		t.Fatalf("BuildFull failed: %v", err)
	}

	report, err := Search(context.Background(), root, opts, QuerySpec{Terms: "alpha"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(report.Results) == 0 {
		t.Fatal("expected at least one result")
	}
	r := report.Results[0]
	if r.Ranking.BM25Content == 0 && r.Ranking.BM25Symbols == 0 {
		t.Errorf("expected a nonzero BM25 contribution on at least one field, got %+v", r.Ranking)
	}
	if r.Ranking.SymbolBoost != SymbolBoost {
		t.Errorf("SymbolBoost = %v, want %v", r.Ranking.SymbolBoost, SymbolBoost)
	}
	if len(r.Ranking.MatchedFields) == 0 {
		t.Error("expected MatchedFields to be populated")
	}
}

func TestMatchedSymbols_CaseInsensitiveSubstring(t *testing.T) {
	symbols := matchedSymbols([]string{"widget"}, "MyWidget OtherThing")
	if len(symbols) != 1 || symbols[0] != "MyWidget" {
		t.Errorf("expected [MyWidget], got %v", symbols)
	}
}

func TestTokenizeQuery(t *testing.T) {
	tokens := tokenizeQuery("Foo.Bar baz-qux")
	want := []string{"foo", "bar", "baz", "qux"}
	if len(tokens) != len(want) {
		t.Fatalf("tokenizeQuery = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

// errorsAsEngine is a small local errors.As wrapper kept out of the
// production code path; it exists purely to keep this test file free of a
// direct "errors" import collision with other test files in the package.
func errorsAsEngine(err error, target **EngineError) bool {
	ee, ok := err.(*EngineError)
	if !ok {
		return false
	}
	*target = ee
	return true
}
