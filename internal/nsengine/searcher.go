package nsengine

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

var errEmptyQuery = errors.New("query terms must not be empty")

// MaxResultsCeiling bounds QuerySpec.MaxResults regardless of what a caller
// requests, preventing unbounded per-result context-extraction I/O.
const MaxResultsCeiling = 100

// DefaultMaxResults is the QuerySpec.MaxResults default when unset.
const DefaultMaxResults = 10

// DefaultContextLines is the QuerySpec.ContextLines default when unset.
const DefaultContextLines = 1

// DefaultMaxContextLines caps the total context lines returned per result
// unless a caller overrides it.
const DefaultMaxContextLines = 30

// QuerySpec describes one search request against a Store.
type QuerySpec struct {
	Terms           string
	LangFilter      string
	GlobFilter      string
	SymbolOnly      bool
	Fuzzy           bool
	MaxResults      int
	ContextLines    int
	MaxContextLines int
	PathsOnly       bool
}

// RankingFactors is the internal-only per-result scoring breakdown used by
// the text formatter's annotation line. It is deliberately never marshaled
// into the JSON output, whose key set is fixed.
type RankingFactors struct {
	BM25Content  float64
	BM25Symbols  float64
	SymbolBoost  float64
	MatchedFields []string
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Path           string
	Score          float64
	Lang           string
	MatchedSymbols []string
	Lines          []ContextLine
	TruncatedLines int
	Ranking        RankingFactors
}

// SearchStats accompanies a SearchReport.
type SearchStats struct {
	TotalResults int
	FilesSearched int
	ElapsedMS    int64
}

// SearchReport is the result of a Search call.
type SearchReport struct {
	Results []SearchResult
	Stats   SearchStats
}

// Search executes spec against the index rooted at root.
func Search(ctx context.Context, root string, opts BuildOptions, spec QuerySpec) (SearchReport, error) {
	start := time.Now()

	if spec.Terms == "" {
		return SearchReport{}, NewEngineError(ErrConfig, "searcher.search", errEmptyQuery)
	}

	store, err := Open(opts.indexPath())
	if err != nil {
		return SearchReport{}, err
	}
	defer store.Close()

	maxResults := spec.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxResultsCeiling {
		maxResults = MaxResultsCeiling
	}

	query := buildQuery(spec)

	req := bleve.NewSearchRequestOptions(query, maxResults, 0, true)
	req.Fields = []string{FieldPath, FieldLang, FieldSymbols}
	req.SortBy([]string{"-_score", FieldPath})

	res, err := store.Reader().Index().Search(req)
	if err != nil {
		return SearchReport{}, NewEngineError(ErrStore, "searcher.search", err)
	}

	contextLines := spec.ContextLines
	if contextLines == 0 {
		contextLines = DefaultContextLines
	}
	maxContextLines := spec.MaxContextLines
	if maxContextLines <= 0 {
		maxContextLines = DefaultMaxContextLines
	}

	terms := tokenizeQuery(spec.Terms)

	var results []SearchResult
	for _, hit := range res.Hits {
		path, _ := hit.Fields[FieldPath].(string)
		lang, _ := hit.Fields[FieldLang].(string)
		symbolsField, _ := hit.Fields[FieldSymbols].(string)

		if spec.GlobFilter != "" && !matchPattern(spec.GlobFilter, path) {
			continue
		}

		result := SearchResult{
			Path:           path,
			Score:          hit.Score,
			Lang:           lang,
			MatchedSymbols: matchedSymbols(terms, symbolsField),
			Ranking:        rankingFactors(hit.Expl, spec),
		}

		if !spec.PathsOnly && contextLines > 0 {
			lines, truncated := ExtractContext(filepath.Join(root, path), spec.Terms, contextLines, maxContextLines)
			result.Lines = lines
			result.TruncatedLines = truncated
		}

		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	return SearchReport{
		Results: results,
		Stats: SearchStats{
			TotalResults:  len(results),
			FilesSearched: int(res.Total),
			ElapsedMS:     time.Since(start).Milliseconds(),
		},
	}, nil
}

// rankingFactors derives the per-field BM25 breakdown from Bleve's score
// explanation tree. buildQuery's shape determines where the content and
// symbols contributions live in that tree: a language filter wraps the core
// query in a conjunction (core is Children[0]); SymbolOnly makes the core
// query itself the symbols contribution; otherwise the core is the
// disjunction of contentQuery and symbolsQuery built in that order, so their
// scores are Children[0] and Children[1] of the core explanation.
func rankingFactors(expl *search.Explanation, spec QuerySpec) RankingFactors {
	if expl == nil {
		return RankingFactors{}
	}

	core := expl
	if spec.LangFilter != "" && len(expl.Children) > 0 {
		core = expl.Children[0]
	}

	factors := RankingFactors{SymbolBoost: SymbolBoost}

	if spec.SymbolOnly {
		factors.BM25Symbols = core.Value
	} else if len(core.Children) >= 2 {
		factors.BM25Content = core.Children[0].Value
		factors.BM25Symbols = core.Children[1].Value
	} else {
		factors.BM25Content = core.Value
	}

	if factors.BM25Content > 0 {
		factors.MatchedFields = append(factors.MatchedFields, FieldContent)
	}
	if factors.BM25Symbols > 0 {
		factors.MatchedFields = append(factors.MatchedFields, FieldSymbols)
	}

	return factors
}

// buildQuery constructs the disjunction-over-content-and-symbols query with
// the 3x symbol boost, optional language filter, and optional fuzzy terms.
func buildQuery(spec QuerySpec) query.Query {
	contentQuery := fieldQuery(spec.Terms, FieldContent, ContentBoost, spec.Fuzzy)
	symbolsQuery := fieldQuery(spec.Terms, FieldSymbols, SymbolBoost, spec.Fuzzy)

	var core query.Query
	if spec.SymbolOnly {
		core = symbolsQuery
	} else {
		core = bleve.NewDisjunctionQuery(contentQuery, symbolsQuery)
	}

	if spec.LangFilter == "" {
		return core
	}

	langQuery := bleve.NewTermQuery(spec.LangFilter)
	langQuery.SetField(FieldLang)

	return bleve.NewConjunctionQuery(core, langQuery)
}

// fieldQuery builds the match query for one field. bleve.NewFuzzyQuery,
// unlike NewMatchQuery, never tokenizes its input, so a fuzzy request is
// built as a disjunction of per-term fuzzy/exact queries rather than a
// single fuzzy query over the raw (possibly multi-word) terms string.
func fieldQuery(terms, field string, boost float64, fuzzy bool) query.Query {
	if !fuzzy {
		q := bleve.NewMatchQuery(terms)
		q.SetField(field)
		q.SetBoost(boost)
		return q
	}

	words := tokenizeQuery(terms)
	if len(words) == 0 {
		q := bleve.NewMatchQuery(terms)
		q.SetField(field)
		q.SetBoost(boost)
		return q
	}

	subQueries := make([]query.Query, len(words))
	for i, word := range words {
		subQueries[i] = fuzzyTermQuery(word, field, boost)
	}
	if len(subQueries) == 1 {
		return subQueries[0]
	}
	return bleve.NewDisjunctionQuery(subQueries...)
}

// fuzzyTermQuery returns a single-edit-distance fuzzy query for term when it
// is at least 3 runes (below that, edit distance 1 matches almost anything),
// otherwise an exact match.
func fuzzyTermQuery(term, field string, boost float64) query.Query {
	if utf8.RuneCountInString(term) >= 3 {
		q := bleve.NewFuzzyQuery(term)
		q.SetField(field)
		q.SetBoost(boost)
		q.Fuzziness = 1
		return q
	}
	q := bleve.NewMatchQuery(term)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// matchedSymbols returns the subset of stored symbols matching any query
// term, via case-insensitive substring comparison, but returns each symbol
// in its original stored casing (e.g. "EventStore", not "eventstore").
func matchedSymbols(terms []string, symbolsField string) []string {
	if symbolsField == "" || len(terms) == 0 {
		return nil
	}
	stored := strings.Fields(symbolsField)
	seen := make(map[string]struct{})
	var out []string
	for _, term := range terms {
		for _, sym := range stored {
			if strings.Contains(strings.ToLower(sym), term) {
				if _, dup := seen[sym]; !dup {
					seen[sym] = struct{}{}
					out = append(out, sym)
				}
			}
		}
	}
	return out
}
