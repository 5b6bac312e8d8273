package nsengine

import "strings"

// languageByExt maps a lowercase file extension (without the leading dot)
// to its language tag. This is the fixed mapping behind invariant I2: a
// Document's lang is determined solely by file extension.
var languageByExt = map[string]string{
	"rs": "rust",

	"ts":  "typescript",
	"tsx": "typescript",
	"mts": "typescript",
	"cts": "typescript",

	"js":  "javascript",
	"jsx": "javascript",
	"mjs": "javascript",
	"cjs": "javascript",

	"py":  "python",
	"pyi": "python",

	"go": "go",

	"ex":  "elixir",
	"exs": "elixir",
}

// symbolLanguages is the fixed set of language tags for which the
// Extractor produces symbols (invariant I3). All other extensions still
// get a Document, tagged TextLang, with no symbols.
var symbolLanguages = map[string]bool{
	"rust":       true,
	"typescript": true,
	"javascript": true,
	"python":     true,
	"go":         true,
	"elixir":     true,
}

// DetectLanguage returns the language tag for a repo-relative path, based
// solely on its extension, or TextLang if the extension is unrecognized.
func DetectLanguage(path string) string {
	ext := extensionOf(path)
	if ext == "" {
		return TextLang
	}
	if lang, ok := languageByExt[strings.ToLower(ext)]; ok {
		return lang
	}
	return TextLang
}

// HasSymbolExtraction reports whether the given language tag participates
// in symbol extraction.
func HasSymbolExtraction(lang string) bool {
	return symbolLanguages[lang]
}

// extensionOf returns the file extension without the leading dot, or "" if
// there is none. It mirrors filepath.Ext but avoids importing path/filepath
// just for this single call site's semantics (dotfiles like ".gitignore"
// have no extension by this definition, matching original_source's rule).
func extensionOf(path string) string {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return ""
	}
	return base[dot+1:]
}
