package nsengine

import (
	"regexp"
	"sort"
)

// symbolPattern pairs a regex with the capture group holding the
// identifier. Patterns for a language are evaluated together and their
// matches merged by source offset so that mixed-kind files (a struct
// followed by a function followed by another struct) keep source order,
// which the teacher's per-kind concatenation would have scrambled.
type symbolPattern struct {
	re    *regexp.Regexp
	group int
}

// jsControlKeywords filters obvious false positives out of the
// indentation-based method-heuristic patterns below: control-flow
// keywords that happen to look like a method signature.
var jsControlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "else": true, "try": true,
}

var symbolTables = map[string][]symbolPattern{
	"rust": {
		{regexp.MustCompile(`\bfn\s+(\w+)`), 1},
		{regexp.MustCompile(`\bstruct\s+(\w+)`), 1},
		{regexp.MustCompile(`\benum\s+(\w+)`), 1},
		{regexp.MustCompile(`\btrait\s+(\w+)`), 1},
		{regexp.MustCompile(`\bimpl(?:<[^>]*>)?\s+(?:[\w:]+(?:<[^>]*>)?\s+for\s+)?(\w+)`), 1},
		{regexp.MustCompile(`\bconst\s+(\w+)\s*:`), 1},
		{regexp.MustCompile(`\btype\s+(\w+)`), 1},
	},
	"typescript": {
		{regexp.MustCompile(`\bfunction\s+(\w+)`), 1},
		{regexp.MustCompile(`\bclass\s+(\w+)`), 1},
		{regexp.MustCompile(`\binterface\s+(\w+)`), 1},
		{regexp.MustCompile(`\btype\s+(\w+)\s*=`), 1},
		{regexp.MustCompile(`\benum\s+(\w+)`), 1},
		{regexp.MustCompile(`(?m)^\s{2,}(?:public\s+|private\s+|protected\s+|static\s+|async\s+)*(\w+)\s*\([^)]*\)\s*(?::[^{]+)?\{`), 1},
		{regexp.MustCompile(`(?m)^(?:export\s+)?(?:const|let)\s+(\w+)\s*(?::[^=]+)?=`), 1},
	},
	"javascript": {
		{regexp.MustCompile(`\bfunction\s+(\w+)`), 1},
		{regexp.MustCompile(`\bclass\s+(\w+)`), 1},
		{regexp.MustCompile(`(?m)^\s{2,}(?:static\s+|async\s+)*(\w+)\s*\([^)]*\)\s*\{`), 1},
		{regexp.MustCompile(`(?m)^(?:export\s+)?(?:const|let)\s+(\w+)\s*=`), 1},
	},
	"python": {
		{regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(\w+)`), 1},
		{regexp.MustCompile(`(?m)^\s*class\s+(\w+)`), 1},
	},
	"go": {
		{regexp.MustCompile(`(?m)^func\s+\([^)]*\)\s+(\w+)\s*\(`), 1},
		{regexp.MustCompile(`(?m)^func\s+(\w+)\s*\(`), 1},
		{regexp.MustCompile(`(?m)^type\s+(\w+)\s+\S`), 1},
		{regexp.MustCompile(`(?m)^const\s+(\w+)\s*\S`), 1},
		{regexp.MustCompile(`(?m)^\s+(\w+)\s+[A-Za-z_\[\]*]+\s*=`), 1},
	},
	"elixir": {
		{regexp.MustCompile(`\b(?:defmodule|defprotocol|defimpl)\s+([A-Za-z_][\w.]*)`), 1},
		{regexp.MustCompile(`\b(?:defmacro|defmacrop|defguard|defguardp|defdelegate|defp|def)\s+([a-z_][\w?!]*)`), 1},
	},
}

// Extract returns the identifiers found in source for the given language
// tag, in source order, deduplicated by first occurrence. It never fails:
// unrecognized languages or unparsable source both yield nil, matching the
// extractor's "never fails on malformed source" contract.
func Extract(lang string, source []byte) []string {
	patterns, ok := symbolTables[lang]
	if !ok {
		return nil
	}

	text := string(source)

	type occurrence struct {
		offset int
		name   string
	}
	var found []occurrence

	for _, p := range patterns {
		locs := p.re.FindAllStringSubmatchIndex(text, -1)
		for _, loc := range locs {
			start, end := loc[2*p.group], loc[2*p.group+1]
			if start < 0 || end < 0 {
				continue
			}
			name := text[start:end]
			if name == "" || len(name) >= 100 {
				continue
			}
			if lang == "javascript" || lang == "typescript" {
				if jsControlKeywords[name] {
					continue
				}
			}
			found = append(found, occurrence{offset: start, name: name})
		}
	}

	if len(found) == 0 {
		return nil
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	seen := make(map[string]struct{}, len(found))
	symbols := make([]string, 0, len(found))
	for _, occ := range found {
		if _, dup := seen[occ.name]; dup {
			continue
		}
		seen[occ.name] = struct{}{}
		symbols = append(symbols, occ.name)
	}

	return symbols
}
