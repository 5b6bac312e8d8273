package nsengine

import (
	"context"
)

// ChangeSet is the classified result of comparing the live tree against the
// index: paths to insert as new documents, paths whose content changed and
// must be replaced, and paths no longer present that must be removed.
type ChangeSet struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Empty reports whether the change set has nothing to apply.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// DetectChanges computes the ChangeSet to apply to bring the index in sync
// with the working tree rooted at root, and returns the HEAD commit ID to
// record in Meta afterward (empty string when root is not a git repository).
//
// The single rule that makes this idempotent — and the exact fix for the
// documented bug where untracked files were re-inserted on every run — is
// applied uniformly regardless of which detection strategy produced a
// candidate path: a path already present in indexedPaths is never "added"
// again; it is "modified" only if its current mtime exceeds the stored one,
// and otherwise ignored outright.
func DetectChanges(ctx context.Context, root string, meta *Meta, indexedMtimes map[string]int64, entries []WalkEntry, git *GitClient) (ChangeSet, string, error) {
	if git != nil && git.IsGitRepository(ctx, root) {
		return detectChangesVCS(ctx, root, meta, indexedMtimes, entries, git)
	}
	return detectChangesTimestamp(indexedMtimes, entries), meta.Snapshot().HeadCommitID, nil
}

// detectChangesVCS implements the VCS strategy: committed-tree changes via
// `git diff --name-status` between the last recorded HEAD and the current
// one, plus working-tree changes via `git status --porcelain` and untracked
// files via `git ls-files --others --exclude-standard`. Every candidate,
// regardless of source, is run back through the same indexedMtimes
// membership check before being classified.
func detectChangesVCS(ctx context.Context, root string, meta *Meta, indexedMtimes map[string]int64, entries []WalkEntry, git *GitClient) (ChangeSet, string, error) {
	head, err := git.GetHeadCommit(ctx, root)
	if err != nil {
		return ChangeSet{}, "", err
	}

	candidates := make(map[string]ChangeStatus)

	prevCommit := meta.Snapshot().HeadCommitID
	if prevCommit != "" && prevCommit != head {
		committed, err := git.GetDiffNameStatus(ctx, root, prevCommit, head)
		if err != nil {
			return ChangeSet{}, "", err
		}
		for _, pc := range committed {
			applyPathChange(candidates, pc)
		}
	}

	statusChanges, err := git.GetStatusPorcelain(ctx, root)
	if err != nil {
		return ChangeSet{}, "", err
	}
	for _, pc := range statusChanges {
		applyPathChange(candidates, pc)
	}

	untracked, err := git.GetUntrackedFiles(ctx, root)
	if err != nil {
		return ChangeSet{}, "", err
	}
	for _, path := range untracked {
		candidates[path] = ChangeAdded
	}

	entryByPath := make(map[string]WalkEntry, len(entries))
	for _, e := range entries {
		entryByPath[e.Path] = e
	}

	var set ChangeSet
	for path, status := range candidates {
		switch status {
		case ChangeDeleted:
			if _, ok := indexedMtimes[path]; ok {
				set.Deleted = append(set.Deleted, path)
			}
			continue
		}

		entry, walked := entryByPath[path]
		if !walked {
			// Ignore-filtered or removed since the git op ran; if it's still
			// indexed, treat it as gone.
			if _, ok := indexedMtimes[path]; ok {
				set.Deleted = append(set.Deleted, path)
			}
			continue
		}

		classifyByMembership(path, entry.Info.ModTime().UnixNano(), indexedMtimes, &set)
	}

	// Paths present in the index but no longer walked at all (e.g. ignored
	// retroactively, or removed without git noticing — a non-repo file) are
	// deletions too, mirroring the timestamp strategy's own sweep.
	for path := range indexedMtimes {
		if _, stillCandidate := candidates[path]; stillCandidate {
			continue
		}
		if _, walked := entryByPath[path]; !walked {
			set.Deleted = append(set.Deleted, path)
		}
	}

	return set, head, nil
}

func applyPathChange(candidates map[string]ChangeStatus, pc PathChange) {
	switch pc.Status {
	case ChangeRenamed:
		candidates[pc.OldPath] = ChangeDeleted
		candidates[pc.Path] = ChangeAdded
	default:
		candidates[pc.Path] = pc.Status
	}
}

// detectChangesTimestamp implements the non-VCS strategy: walk the tree,
// compare mtime_ns against the stored value, and treat any indexed path
// absent from the walk as deleted.
func detectChangesTimestamp(indexedMtimes map[string]int64, entries []WalkEntry) ChangeSet {
	var set ChangeSet
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		seen[e.Path] = struct{}{}
		classifyByMembership(e.Path, e.Info.ModTime().UnixNano(), indexedMtimes, &set)
	}

	for path := range indexedMtimes {
		if _, ok := seen[path]; !ok {
			set.Deleted = append(set.Deleted, path)
		}
	}

	return set
}

// classifyByMembership is the idempotency gate shared by both strategies:
// a path is "added" only when it has never been indexed, "modified" only
// when the on-disk mtime has actually advanced past the stored one, and
// otherwise dropped — this is what stops an untracked file (or any
// unmodified file re-discovered by a fresh walk) from being reinserted on
// every incremental run.
func classifyByMembership(path string, mtimeNs int64, indexedMtimes map[string]int64, set *ChangeSet) {
	stored, indexed := indexedMtimes[path]
	switch {
	case !indexed:
		set.Added = append(set.Added, path)
	case mtimeNs > stored:
		set.Modified = append(set.Modified, path)
	}
}
