package nsengine

import (
	"bufio"
	"os"
	"sort"
	"strings"
)

// ContextLine is one line of surrounding context returned with a search
// result, numbered from 1.
type ContextLine struct {
	Num  int
	Text string
}

// tokenizeQuery splits terms on every character other than an ASCII letter,
// digit, or underscore and lowercases them, matching the case-folded literal-substring matching used to expand
// context windows.
func tokenizeQuery(query string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range query {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

type lineWindow struct {
	start, end int // inclusive, 1-based
}

// ExtractContext re-reads path from disk and returns the merged, capped set
// of context lines surrounding every case-folded literal occurrence of any
// query token, expanded by ±contextLines. maxContextLines bounds the total
// number of lines returned; truncatedLines reports how many lines were
// dropped by that cap. A file that can no longer be read (deleted since
// indexing) degrades to an empty, non-error result.
func ExtractContext(path string, query string, contextLines, maxContextLines int) ([]ContextLine, int) {
	if contextLines <= 0 {
		return nil, 0
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0
	}
	defer f.Close()

	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return nil, 0
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var windows []lineWindow
	for i, line := range lines {
		lower := strings.ToLower(line)
		matched := false
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		lineNum := i + 1
		start := lineNum - contextLines
		if start < 1 {
			start = 1
		}
		end := lineNum + contextLines
		if end > len(lines) {
			end = len(lines)
		}
		windows = append(windows, lineWindow{start: start, end: end})
	}

	merged := mergeWindows(windows)

	var result []ContextLine
	for _, w := range merged {
		for n := w.start; n <= w.end; n++ {
			result = append(result, ContextLine{Num: n, Text: lines[n-1]})
		}
	}

	if maxContextLines > 0 && len(result) > maxContextLines {
		truncated := len(result) - maxContextLines
		return result[:maxContextLines], truncated
	}
	return result, 0
}

// mergeWindows sorts and merges overlapping or adjacent context windows so
// no line is emitted twice.
func mergeWindows(windows []lineWindow) []lineWindow {
	if len(windows) == 0 {
		return nil
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })

	merged := []lineWindow{windows[0]}
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end+1 {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
