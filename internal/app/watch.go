package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nanosearch/ns/internal/nsengine"
)

// watchDebounce coalesces bursts of filesystem events (a save-triggered
// sequence of CREATE/WRITE/CHMOD on the same file) into a single rebuild.
const watchDebounce = 300 * time.Millisecond

// runWatch watches root for filesystem changes and triggers an incremental
// rebuild on debounce until ctx is cancelled. It is a supplemental
// `ns index --watch` mode layered above the core BuildIncremental contract;
// the core itself remains a one-shot API with no watch semantics of its own.
func runWatch(ctx context.Context, root string, opts nsengine.BuildOptions, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nsengine.NewEngineError(nsengine.ErrIO, "cli.watch", err)
	}
	defer watcher.Close()

	if err := addWatchTree(watcher, root, opts.MaxFileSize); err != nil {
		return err
	}

	fmt.Fprintf(out, "watching %s for changes (ctrl-c to stop)\n", root)

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		case <-rebuild:
			report, err := nsengine.BuildIncremental(ctx, root, opts)
			if err != nil {
				slog.Warn("incremental rebuild failed", "error", err)
				continue
			}
			fmt.Fprintf(out, "reindexed: +%d ~%d -%d unchanged=%d in %s\n",
				report.Added, report.Modified, report.Deleted, report.Unchanged, report.Elapsed.Round(time.Millisecond))
		}
	}
}

// addWatchTree registers root and every directory that directly holds a file
// Walk returns. fsnotify watches directories non-recursively, so a walk is
// required to cover nested source trees; directories holding no indexed
// file, and directories created later, are not watched.
func addWatchTree(watcher *fsnotify.Watcher, root string, maxFileSize int64) error {
	entries, err := nsengine.Walk(root, maxFileSize)
	if err != nil {
		return err
	}

	dirs := map[string]struct{}{root: {}}
	for _, e := range entries {
		dirs[filepath.Dir(filepath.Join(root, e.Path))] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			slog.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}
	return nil
}
