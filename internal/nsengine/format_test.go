package nsengine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatJSON_ExactSchemaKeys(t *testing.T) {
	report := SearchReport{
		Results: []SearchResult{
			{
				Path:           "a.go",
				Score:          1.5,
				Lang:           "go",
				MatchedSymbols: []string{"widget"},
				Lines:          []ContextLine{{Num: 3, Text: "func Widget() {}"}},
			},
		},
		Stats: SearchStats{TotalResults: 1, FilesSearched: 5, ElapsedMS: 12},
	}

	data, err := FormatJSON(report)
	if err != nil {
		t.Fatalf("FormatJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, ok := decoded["results"]; !ok {
		t.Error("expected top-level 'results' key")
	}
	if _, ok := decoded["stats"]; !ok {
		t.Error("expected top-level 'stats' key")
	}

	results := decoded["results"].([]any)
	first := results[0].(map[string]any)
	for _, key := range []string{"path", "score", "lang", "matched_symbols", "lines"} {
		if _, ok := first[key]; !ok {
			t.Errorf("expected key %q in result object", key)
		}
	}
	if _, ok := first["ranking_factors"]; ok {
		t.Error("ranking_factors must never appear in the JSON schema")
	}

	stats := decoded["stats"].(map[string]any)
	for _, key := range []string{"total_results", "files_searched", "elapsed_ms"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("expected key %q in stats object", key)
		}
	}
}

func TestFormatJSON_EmptyMatchedSymbolsIsEmptyArrayNotNull(t *testing.T) {
	report := SearchReport{Results: []SearchResult{{Path: "a.go", Lang: "go"}}}

	data, err := FormatJSON(report)
	if err != nil {
		t.Fatalf("FormatJSON failed: %v", err)
	}
	if strings.Contains(string(data), `"matched_symbols":null`) {
		t.Error("matched_symbols should serialize as [] not null")
	}
}

func TestFormatText_IncludesRankingAnnotation(t *testing.T) {
	report := SearchReport{
		Results: []SearchResult{
			{
				Path: "a.go",
				Lang: "go",
				Ranking: RankingFactors{
					BM25Content: 1.1,
					BM25Symbols: 3.3,
				},
			},
		},
		Stats: SearchStats{TotalResults: 1, FilesSearched: 1, ElapsedMS: 5},
	}

	text := FormatText(report)
	if !strings.Contains(text, "bm25_content") {
		t.Error("expected bm25_content annotation in text output")
	}
	if !strings.Contains(text, "1 result(s)") {
		t.Error("expected summary line")
	}
}

func TestFormatStatus_HandlesEmptyMeta(t *testing.T) {
	text := FormatStatus(Meta{}, Stats{})
	if !strings.Contains(text, "(none)") {
		t.Error("expected placeholder for empty head_commit/last_search_at")
	}
}
