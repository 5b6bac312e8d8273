package nsengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// BuildOptions configures a build. MaxFileSize bounds the Walker (Walk uses
// 1 MiB when it is zero or negative). StateDir is the
// .ns directory holding the index, meta record, and lock file.
type BuildOptions struct {
	MaxFileSize int64
	StateDir    string
}

// BuildReport summarizes a completed build.
type BuildReport struct {
	Added     int
	Modified  int
	Deleted   int
	Unchanged int
	Elapsed   time.Duration
}

func (o BuildOptions) indexPath() string { return filepath.Join(o.StateDir, IndexDirName) }
func (o BuildOptions) metaPath() string  { return filepath.Join(o.StateDir, MetaFilename) }

const buildLockTimeout = 30 * time.Second

// extractedFile is the product of the per-file worker stage: a fully formed
// Document plus any per-file error, which is logged and skipped rather than
// aborting the build (§4.4 failure semantics).
type extractedFile struct {
	doc Document
	err error
}

// BuildFull walks root from scratch and (re)builds the entire index. It
// builds into a temporary index directory and only replaces the live index
// via atomic rename after every document has been written and the batch has
// committed successfully — so a crash mid-build never corrupts or removes a
// previously valid index, unlike a remove-then-rebuild-in-place approach.
func BuildFull(ctx context.Context, root string, opts BuildOptions) (BuildReport, error) {
	start := time.Now()

	lock := NewBuildLock(opts.StateDir)
	if err := lock.Lock(buildLockTimeout); err != nil {
		return BuildReport{}, NewEngineError(ErrConcurrency, "indexer.buildfull", err)
	}
	defer func() { _ = lock.Unlock() }()

	entries, err := Walk(root, opts.MaxFileSize)
	if err != nil {
		return BuildReport{}, err
	}

	tmpIndexPath := opts.indexPath() + fmt.Sprintf(".tmp-%d", os.Getpid())
	_ = os.RemoveAll(tmpIndexPath)

	store, err := Open(tmpIndexPath)
	if err != nil {
		return BuildReport{}, err
	}

	report, totalBytes, err := writeAll(ctx, root, entries, store)
	if err != nil {
		_ = store.Close()
		_ = os.RemoveAll(tmpIndexPath)
		return BuildReport{}, err
	}
	if err := store.Close(); err != nil {
		_ = os.RemoveAll(tmpIndexPath)
		return BuildReport{}, NewEngineError(ErrStore, "indexer.buildfull", err)
	}

	if err := os.MkdirAll(opts.StateDir, 0755); err != nil {
		_ = os.RemoveAll(tmpIndexPath)
		return BuildReport{}, NewEngineError(ErrIO, "indexer.buildfull", err)
	}
	_ = os.RemoveAll(opts.indexPath())
	if err := os.Rename(tmpIndexPath, opts.indexPath()); err != nil {
		_ = os.RemoveAll(tmpIndexPath)
		return BuildReport{}, NewEngineError(ErrIO, "indexer.buildfull", err)
	}

	meta := NewMeta(root)
	head := readHeadCommitBestEffort(ctx, root)
	meta.RecordBuild(head, len(entries), totalBytes, time.Now().UnixNano())
	if err := meta.Save(opts.metaPath()); err != nil {
		return BuildReport{}, err
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// writeAll fans candidate files out across a bounded worker pool for
// read+extract, feeding the single writer goroutine that owns the Bleve
// batch over a bounded channel — the shape §5 explicitly permits.
func writeAll(ctx context.Context, root string, entries []WalkEntry, store *Store) (BuildReport, int64, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan WalkEntry)
	results := make(chan extractedFile, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				doc, err := buildDocument(root, entry)
				results <- extractedFile{doc: doc, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range entries {
			select {
			case jobs <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	writer, err := store.Writer(DefaultHeapBudgetBytes)
	if err != nil {
		return BuildReport{}, 0, err
	}
	var report BuildReport
	var totalBytes int64

	for res := range results {
		if res.err != nil {
			slog.Warn("skipping file", "error", res.err)
			continue
		}
		if err := writer.Insert(res.doc); err != nil {
			return report, totalBytes, err
		}
		report.Added++
		totalBytes += res.doc.SizeBytes
	}

	if err := ctx.Err(); err != nil {
		return report, totalBytes, err
	}
	if err := writer.Commit(); err != nil {
		return report, totalBytes, err
	}

	return report, totalBytes, nil
}

// buildDocument reads a walked file, detects its language, extracts symbols
// when applicable, and assembles the Document ready for indexing.
func buildDocument(root string, entry WalkEntry) (Document, error) {
	data, err := os.ReadFile(filepath.Join(root, entry.Path))
	if err != nil {
		return Document{}, NewEngineError(ErrIO, "indexer.read", err)
	}

	lang := DetectLanguage(entry.Path)
	var symbols string
	if HasSymbolExtraction(lang) {
		syms := Extract(lang, data)
		symbols = joinSymbols(syms)
	}

	now := time.Now().UnixNano()
	return Document{
		Path:        entry.Path,
		Content:     string(data),
		Symbols:     symbols,
		Lang:        lang,
		SizeBytes:   entry.Info.Size(),
		MtimeNs:     entry.Info.ModTime().UnixNano(),
		IndexedAtNs: now,
	}, nil
}

func joinSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	out := symbols[0]
	for _, s := range symbols[1:] {
		out += " " + s
	}
	return out
}

// BuildIncremental computes the change set against the live index and
// applies only what changed. The idempotency gate in DetectChanges is what
// keeps repeated runs against an unchanged tree a true no-op.
func BuildIncremental(ctx context.Context, root string, opts BuildOptions) (BuildReport, error) {
	start := time.Now()

	lock := NewBuildLock(opts.StateDir)
	if err := lock.Lock(buildLockTimeout); err != nil {
		return BuildReport{}, NewEngineError(ErrConcurrency, "indexer.buildincremental", err)
	}
	defer func() { _ = lock.Unlock() }()

	if !Exists(opts.indexPath()) {
		// BuildFull takes the build lock itself; flock on a second open of
		// the lock file would contend with this one.
		_ = lock.Unlock()
		return BuildFull(ctx, root, opts)
	}

	store, err := Open(opts.indexPath())
	if err != nil {
		return BuildReport{}, err
	}
	defer store.Close()

	meta, err := LoadMeta(opts.metaPath(), root)
	if err != nil {
		return BuildReport{}, err
	}

	entries, err := Walk(root, opts.MaxFileSize)
	if err != nil {
		return BuildReport{}, err
	}

	indexedMtimes, err := indexedPathMtimes(store)
	if err != nil {
		return BuildReport{}, err
	}

	var git *GitClient
	candidate := NewGitClient()
	if candidate.IsGitRepository(ctx, root) {
		git = candidate
	}

	changes, newHead, err := DetectChanges(ctx, root, meta, indexedMtimes, entries, git)
	if err != nil {
		return BuildReport{}, err
	}

	entryByPath := make(map[string]WalkEntry, len(entries))
	for _, e := range entries {
		entryByPath[e.Path] = e
	}

	writer, err := store.Writer(DefaultHeapBudgetBytes)
	if err != nil {
		return BuildReport{}, err
	}
	report := BuildReport{Unchanged: len(indexedMtimes) - len(changes.Modified) - len(changes.Deleted)}

	var totalBytesDelta int64
	for _, path := range changes.Deleted {
		writer.DeleteByPath(path)
		report.Deleted++
	}
	for _, path := range append(append([]string{}, changes.Added...), changes.Modified...) {
		entry, ok := entryByPath[path]
		if !ok {
			continue
		}
		doc, err := buildDocument(root, entry)
		if err != nil {
			slog.Warn("skipping file", "path", path, "error", err)
			continue
		}
		if err := writer.Insert(doc); err != nil {
			return BuildReport{}, err
		}
		totalBytesDelta += doc.SizeBytes
	}
	report.Added = len(changes.Added)
	report.Modified = len(changes.Modified)

	if err := writer.Commit(); err != nil {
		return BuildReport{}, err
	}

	count, err := store.DocCount()
	if err != nil {
		return BuildReport{}, err
	}

	snap := meta.Snapshot()
	meta.RecordBuild(newHead, int(count), snap.TotalBytes+totalBytesDelta, time.Now().UnixNano())
	if err := meta.Save(opts.metaPath()); err != nil {
		return BuildReport{}, err
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// indexedPathMtimes materializes the set of currently indexed paths and
// their stored mtimes in one pass, the precondition DetectChanges requires
// before classifying any candidate.
func indexedPathMtimes(store *Store) (map[string]int64, error) {
	reader := store.Reader()
	index := reader.Index()

	count, err := index.DocCount()
	if err != nil {
		return nil, NewEngineError(ErrStore, "indexer.indexedpaths", err)
	}

	result := make(map[string]int64, count)
	if count == 0 {
		return result, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	req.Fields = []string{FieldPath, FieldMtimeNs}

	res, err := index.Search(req)
	if err != nil {
		return nil, NewEngineError(ErrStore, "indexer.indexedpaths", err)
	}

	for _, hit := range res.Hits {
		path, _ := hit.Fields[FieldPath].(string)
		if path == "" {
			continue
		}
		var mtime int64
		if v, ok := hit.Fields[FieldMtimeNs].(float64); ok {
			mtime = int64(v)
		}
		result[path] = mtime
	}

	return result, nil
}

func readHeadCommitBestEffort(ctx context.Context, root string) string {
	git := NewGitClient()
	if !git.IsGitRepository(ctx, root) {
		return ""
	}
	head, err := git.GetHeadCommit(ctx, root)
	if err != nil {
		return ""
	}
	return head
}
