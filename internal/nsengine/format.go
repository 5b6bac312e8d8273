package nsengine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsonLine, jsonResult, jsonStats and jsonReport mirror the spec-mandated
// JSON output schema exactly; jsonResult is one entry
// {"path","score","lang","matched_symbols","lines":[{"num","text"}]} and
// jsonLine one of its lines. Field names and shape are fixed; no additional
// keys are added here even though richer scoring data exists internally
// (see RankingFactors).
type jsonLine struct {
	Num  int    `json:"num"`
	Text string `json:"text"`
}

type jsonResult struct {
	Path           string     `json:"path"`
	Score          float64    `json:"score"`
	Lang           string     `json:"lang"`
	MatchedSymbols []string   `json:"matched_symbols"`
	Lines          []jsonLine `json:"lines"`
}

type jsonStats struct {
	TotalResults  int   `json:"total_results"`
	FilesSearched int   `json:"files_searched"`
	ElapsedMS     int64 `json:"elapsed_ms"`
}

type jsonReport struct {
	Results []jsonResult `json:"results"`
	Stats   jsonStats    `json:"stats"`
}

// FormatJSON renders a SearchReport into the exact JSON schema mandated by
// the CLI's external contract: only path/score/lang/matched_symbols/lines
// and the stats block, nothing else.
func FormatJSON(report SearchReport) ([]byte, error) {
	out := jsonReport{
		Results: make([]jsonResult, 0, len(report.Results)),
		Stats: jsonStats{
			TotalResults:  report.Stats.TotalResults,
			FilesSearched: report.Stats.FilesSearched,
			ElapsedMS:     report.Stats.ElapsedMS,
		},
	}
	for _, r := range report.Results {
		lines := make([]jsonLine, 0, len(r.Lines))
		for _, l := range r.Lines {
			lines = append(lines, jsonLine{Num: l.Num, Text: l.Text})
		}
		matched := r.MatchedSymbols
		if matched == nil {
			matched = []string{}
		}
		out.Results = append(out.Results, jsonResult{
			Path:           r.Path,
			Score:          r.Score,
			Lang:           r.Lang,
			MatchedSymbols: matched,
			Lines:          lines,
		})
	}
	return json.Marshal(out)
}

// FormatText renders a SearchReport as the human-readable text mode,
// including the richer per-result ranking annotation line the JSON schema
// deliberately omits.
func FormatText(report SearchReport) string {
	var b strings.Builder

	for _, r := range report.Results {
		fmt.Fprintf(&b, "%s (score: %.2f, lang: %s)\n", r.Path, r.Score, r.Lang)
		if len(r.MatchedSymbols) > 0 {
			fmt.Fprintf(&b, "  matched symbols: %s\n", strings.Join(r.MatchedSymbols, ", "))
		}
		fmt.Fprintf(&b, "  matched: %s, bm25_content: %.2f, bm25_symbols: %.2f\n",
			strings.Join(r.Ranking.MatchedFields, "+"), r.Ranking.BM25Content, r.Ranking.BM25Symbols)
		for _, line := range r.Lines {
			fmt.Fprintf(&b, "  %5d: %s\n", line.Num, line.Text)
		}
		if r.TruncatedLines > 0 {
			fmt.Fprintf(&b, "  ... %d more lines truncated\n", r.TruncatedLines)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%d result(s), %d file(s) searched, %dms\n",
		report.Stats.TotalResults, report.Stats.FilesSearched, report.Stats.ElapsedMS)

	return b.String()
}

// FormatStatus renders a Meta/Stats pair for the `ns status` subcommand.
func FormatStatus(meta Meta, stats Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "root: %s\n", meta.RootPath)
	fmt.Fprintf(&b, "schema_version: %d\n", meta.SchemaVersion)
	fmt.Fprintf(&b, "head_commit: %s\n", displayOrNone(meta.HeadCommitID))
	fmt.Fprintf(&b, "file_count: %d\n", meta.FileCount)
	fmt.Fprintf(&b, "total_bytes: %d\n", meta.TotalBytes)
	fmt.Fprintf(&b, "total_searches: %d\n", stats.TotalSearches)
	fmt.Fprintf(&b, "last_search_at: %s\n", displayOrNone(stats.LastSearchAt))
	fmt.Fprintf(&b, "total_estimated_tokens: %d\n", stats.TotalEstimatedTokens)
	return b.String()
}

func displayOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
