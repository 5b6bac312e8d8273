package nsengine

import (
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
)

// IndexDirName is the on-disk name of the Bleve index directory, kept
// inside the repository's .ns state directory.
const IndexDirName = "index"

// SchemaVersion is bumped whenever the mapping below changes shape. Meta
// records it at build time and Meta.SchemaMatches compares against it; Open
// itself does not check it.
const SchemaVersion = 1

// symbolAnalyzerName names the custom analyzer used for the symbols field:
// whitespace tokenization with no stemming, followed by lowercasing. This
// is the Bleve equivalent of a Tantivy whitespace+lowercase tokenizer —
// deliberately not the "standard" analyzer, since symbol identifiers
// (snake_case, CamelCase, dotted module paths) should not be split on
// internal punctuation the way prose is.
const symbolAnalyzerName = "symbol"

// buildIndexMapping constructs the mapping described for the Store: path
// and lang as keyword fields, content under the standard analyzer and
// never stored, symbols under the custom whitespace+lowercase analyzer and
// stored, and the three numeric fields stored but not indexed.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := registerSymbolAnalyzer(indexMapping); err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	pathField.Index = true
	docMapping.AddFieldMappingsAt(FieldPath, pathField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt(FieldContent, contentField)

	symbolsField := bleve.NewTextFieldMapping()
	symbolsField.Analyzer = symbolAnalyzerName
	symbolsField.Store = true
	symbolsField.Index = true
	docMapping.AddFieldMappingsAt(FieldSymbols, symbolsField)

	langField := bleve.NewTextFieldMapping()
	langField.Analyzer = keyword.Name
	langField.Store = true
	langField.Index = true
	docMapping.AddFieldMappingsAt(FieldLang, langField)

	sizeField := bleve.NewNumericFieldMapping()
	sizeField.Store = true
	sizeField.Index = false
	docMapping.AddFieldMappingsAt(FieldSizeBytes, sizeField)

	mtimeField := bleve.NewNumericFieldMapping()
	mtimeField.Store = true
	mtimeField.Index = false
	docMapping.AddFieldMappingsAt(FieldMtimeNs, mtimeField)

	indexedAtField := bleve.NewNumericFieldMapping()
	indexedAtField.Store = true
	indexedAtField.Index = false
	docMapping.AddFieldMappingsAt(FieldIndexedAtNs, indexedAtField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping, nil
}

// registerSymbolAnalyzer registers the "symbol" analyzer: the built-in
// whitespace tokenizer composed with the lowercase token filter and no
// stemmer, so identifiers keep their internal punctuation (snake_case,
// dotted module paths) instead of being split the way prose is.
func registerSymbolAnalyzer(im *mapping.IndexMappingImpl) error {
	if err := im.AddCustomAnalyzer(symbolAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": whitespace.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return fmt.Errorf("register symbol analyzer: %w", err)
	}

	return nil
}

// Store owns a single Bleve index over one repository root. Unlike the
// teacher's multi-repo IndexAlias, an Engine indexes exactly one root, so
// Store wraps a single bleve.Index rather than a set of them.
type Store struct {
	index bleve.Index
	path  string
}

// Open opens the Bleve index at indexPath, creating it with a
// fresh mapping if it does not yet exist.
func Open(indexPath string) (*Store, error) {
	index, err := bleve.Open(indexPath)
	if err == nil {
		return &Store{index: index, path: indexPath}, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		return nil, NewEngineError(ErrStore, "store.open", err)
	}

	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, NewEngineError(ErrStore, "store.open", err)
	}

	index, err = bleve.New(indexPath, indexMapping)
	if err != nil {
		return nil, NewEngineError(ErrStore, "store.open", err)
	}

	return &Store{index: index, path: indexPath}, nil
}

// Exists reports whether an index directory is already present at path.
func Exists(indexPath string) bool {
	_, err := os.Stat(indexPath)
	return err == nil
}

// Close releases the underlying Bleve index.
func (s *Store) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

// DocCount returns the number of documents currently committed to the
// index.
func (s *Store) DocCount() (uint64, error) {
	return s.index.DocCount()
}

// maxBatchDocs mirrors the teacher's MaxBatchSize: a batch is flushed once
// it holds this many pending operations, regardless of heapBudget.
const maxBatchDocs = 100

// DefaultHeapBudgetBytes is the Writer heap budget used when a caller passes
// heapBudget <= 0, matching the teacher's MaxBatchBytes (10 MiB).
const DefaultHeapBudgetBytes = 10 * 1024 * 1024

// Writer returns a batch writer over this store. heapBudget bounds, in
// bytes of buffered document content, how much a caller may accumulate
// before Insert/DeleteByPath transparently flush the batch — mirroring the
// teacher's MaxBatchSize/MaxBatchBytes split, which periodically commits
// during a large walk instead of holding the whole batch in memory until
// the very end.
func (s *Store) Writer(heapBudget int) (*Writer, error) {
	if s.index == nil {
		return nil, NewEngineError(ErrStore, "store.writer", errors.New("store is closed"))
	}
	if heapBudget <= 0 {
		heapBudget = DefaultHeapBudgetBytes
	}
	return &Writer{index: s.index, batch: s.index.NewBatch(), heapBudget: heapBudget}, nil
}

// Reader returns a read-only handle for query construction.
func (s *Store) Reader() *Reader {
	return &Reader{index: s.index}
}

// Writer batches document deletes and inserts, transparently flushing to
// the index once maxBatchDocs operations or heapBudget bytes of buffered
// content accumulate, so a large full build never holds the entire tree in
// memory as one batch. The zero value is not usable; construct via
// Store.Writer.
type Writer struct {
	index      bleve.Index
	batch      *bleve.Batch
	ops        int
	bytes      int
	heapBudget int
}

// DeleteByPath queues a delete of the document keyed by path. Since a
// Document's Bleve ID is its Path, this is also "delete by ID" — Bleve
// idiom, not a special case. A flush triggered here that fails is swallowed
// rather than surfaced, since the batch is left un-reset on error and the
// pending operations are retried at the next flush or the caller's own
// final Commit.
func (w *Writer) DeleteByPath(path string) {
	w.batch.Delete(path)
	w.ops++
	if w.ops >= maxBatchDocs {
		_ = w.Commit()
	}
}

// Insert queues doc.Path's prior version for deletion (if any) followed by
// the new version's insertion, within the same batch. This ordering is
// exactly what keeps the invariant that at most one Document exists per
// path after a commit: callers cannot bypass the delete by calling Insert
// directly, because Insert always performs it first. Once the batch crosses
// maxBatchDocs operations or heapBudget bytes of buffered content, it is
// flushed immediately rather than waiting for the caller's final Commit.
func (w *Writer) Insert(doc Document) error {
	w.batch.Delete(doc.Path)
	// Indexed as a field map rather than the Document struct: Bleve names
	// struct fields by their json tag and skips json:"-" fields, which would
	// leave Content out of the index.
	fields := map[string]any{
		FieldPath: doc.Path, FieldContent: doc.Content, FieldSymbols: doc.Symbols, FieldLang: doc.Lang,
		FieldSizeBytes: doc.SizeBytes, FieldMtimeNs: doc.MtimeNs, FieldIndexedAtNs: doc.IndexedAtNs,
	}
	if err := w.batch.Index(doc.Path, fields); err != nil {
		return NewEngineError(ErrStore, "writer.insert", err)
	}
	w.ops++
	w.bytes += len(doc.Content) + len(doc.Symbols)
	if w.ops >= maxBatchDocs || w.bytes >= w.heapBudget {
		return w.Commit()
	}
	return nil
}

// Len reports the number of pending operations in the batch.
func (w *Writer) Len() int {
	return w.ops
}

// Commit flushes the batch to the index and resets it for further use.
func (w *Writer) Commit() error {
	if w.ops == 0 {
		return nil
	}
	if err := w.index.Batch(w.batch); err != nil {
		return NewEngineError(ErrStore, "writer.commit", err)
	}
	w.batch = w.index.NewBatch()
	w.ops = 0
	w.bytes = 0
	return nil
}

// Reader is a read-only handle over the Store's Bleve index, used by the
// searcher for query construction and execution.
type Reader struct {
	index bleve.Index
}

// Index returns the underlying bleve.Index for query construction.
func (r *Reader) Index() bleve.Index {
	return r.index
}
