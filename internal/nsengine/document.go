package nsengine

// Document represents one indexed file's record in the Store.
//
// A Document is identified by its repo-relative, forward-slash-normalized
// Path, which also serves as its Bleve document ID: deleting and inserting
// by Path is the sole update primitive (see Writer.Insert), which is what
// keeps at most one Document per path in the index.
type Document struct {
	// Path is the file path relative to the repository root, using forward
	// slashes regardless of host OS. It is the document's unique key.
	Path string `json:"path"`

	// Content is the file's UTF-8 text, lossy-replaced on invalid bytes.
	// Indexed, tokenized, case-folded; never stored (retrievable only by
	// re-reading the file from disk).
	Content string `json:"-"`

	// Symbols is a space-joined list of identifiers extracted from Content,
	// in source order with duplicates removed. Empty for languages outside
	// the symbol-extraction set. Indexed with the "symbol" analyzer and a
	// 3x query-time field boost; also stored for matched-symbol reporting.
	Symbols string `json:"symbols"`

	// Lang is the language tag derived solely from the file extension
	// (see DetectLanguage), or "text" when the extension is unrecognized.
	Lang string `json:"lang"`

	// SizeBytes is the file size at the moment the Document was written.
	SizeBytes int64 `json:"size_bytes"`

	// MtimeNs is the file's modification time, in nanoseconds since epoch,
	// at the moment the Document was written. Used by the incremental
	// indexer to detect changes.
	MtimeNs int64 `json:"mtime_ns"`

	// IndexedAtNs is when this Document was written, in nanoseconds since
	// epoch.
	IndexedAtNs int64 `json:"indexed_at_ns"`
}

// Bleve field name constants, used consistently across the mapping,
// writer, and query construction.
const (
	FieldPath        = "path"
	FieldContent     = "content"
	FieldSymbols     = "symbols"
	FieldLang        = "lang"
	FieldSizeBytes   = "size_bytes"
	FieldMtimeNs     = "mtime_ns"
	FieldIndexedAtNs = "indexed_at_ns"
)

// TextLang is the language tag assigned to files whose extension is not in
// the symbol-extraction table.
const TextLang = "text"

// SymbolBoost is the query-time field weight applied to the symbols field.
// It is the sole mechanism producing the "3x symbol boost".
const SymbolBoost = 3.0

// ContentBoost is the query-time field weight applied to the content field.
const ContentBoost = 1.0
