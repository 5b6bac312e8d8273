package nsengine

import (
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// defaultIgnorePatterns are excluded even when a repo carries no .gitignore
// of its own: dependency directories, build output, lockfiles, and
// binary/media extensions that never carry meaningful source content.
var defaultIgnorePatterns = []string{
	"node_modules/**", "vendor/**", "venv/**", ".venv/**",
	"target/**", "build/**", "dist/**", "out/**",
	"__pycache__/**", ".pytest_cache/**",
	".gradle/**", ".m2/**", ".npm/**", ".yarn/**",

	"*.min.js", "*.min.css", "*.map", "*.pb.go",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"go.sum", "poetry.lock", "Cargo.lock",

	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.svg",
	"*.bmp", "*.tiff", "*.webp", "*.psd",

	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",

	"*.zip", "*.tar", "*.gz", "*.rar", "*.7z", "*.bz2", "*.xz",
	"*.jar", "*.war", "*.ear",

	"*.exe", "*.dll", "*.so", "*.dylib", "*.a", "*.lib",
	"*.class", "*.pyc", "*.pyo", "*.o", "*.obj",

	"*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",

	"*.db", "*.sqlite", "*.sqlite3",
	"*.mp3", "*.mp4", "*.wav", "*.avi", "*.mov", "*.mkv",
}

// ignoreNames are always unconditionally skipped, regardless of any ignore
// file content: the index's own state directory, VCS metadata, and the
// ignore files themselves.
var ignoreNames = map[string]bool{
	".ns":        true,
	".git":       true,
	".gitignore": true,
	".ignore":    true,
}

// WalkEntry is one file surfaced by Walk: its repo-relative, forward-slash
// path and the fs.FileInfo captured at walk time.
type WalkEntry struct {
	Path string
	Info fs.FileInfo
}

// ignoreRule is one parsed line from a .gitignore/.ignore file, anchored to
// the directory it was found in.
type ignoreRule struct {
	dir     string // repo-relative, forward-slash, "" for root
	pattern string
	negate  bool
	dirOnly bool
}

// Walk traverses root and returns every file that passes ignore-file
// filtering, the built-in exclude list, the symlink-escape check, the size
// cap, and the UTF-8 heuristic. Paths are repo-relative and forward-slash
// normalized.
func Walk(root string, maxFileSize int64) ([]WalkEntry, error) {
	if maxFileSize <= 0 {
		maxFileSize = 1 << 20 // 1 MiB
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, &EngineError{Kind: ErrIO, Op: "walk", cause: err}
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &EngineError{Kind: ErrIO, Op: "walk", cause: err}
	}

	rules, err := loadIgnoreRules(root)
	if err != nil {
		return nil, &EngineError{Kind: ErrIO, Op: "walk", cause: err}
	}

	var entries []WalkEntry

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}

		relPath := toRepoRelative(root, path)
		base := d.Name()

		if d.IsDir() {
			if ignoreNames[base] {
				return filepath.SkipDir
			}
			if matchesIgnoreRules(rules, relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if ignoreNames[base] {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if !withinRoot(realRoot, target) {
				return nil
			}
		}

		if matchesIgnoreRules(rules, relPath, false) {
			return nil
		}
		if matchesBuiltinExclude(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			resolved, statErr := os.Stat(path)
			if statErr != nil {
				return nil
			}
			info = resolved
		}
		if info.Size() > maxFileSize {
			return nil
		}

		content, err := readHead(path)
		if err != nil {
			return nil
		}
		if looksBinary(content) {
			return nil
		}

		entries = append(entries, WalkEntry{Path: relPath, Info: info})
		return nil
	})
	if walkErr != nil {
		return nil, &EngineError{Kind: ErrIO, Op: "walk", cause: walkErr}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func toRepoRelative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func withinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

const (
	binaryProbeSize = 8 * 1024
	binaryHeadCheck = 1024
)

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, binaryProbeSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// looksBinary implements the UTF-8 heuristic: decode the first 8 KiB, and
// classify as binary only when an invalid byte sequence falls within the
// first kilobyte. Null bytes are valid UTF-8, so unlike a null-byte check
// this does not treat a file containing nulls as binary.
func looksBinary(head []byte) bool {
	checkLen := len(head)
	if checkLen > binaryHeadCheck {
		checkLen = binaryHeadCheck
	}

	i := 0
	for i < len(head) {
		r, size := utf8.DecodeRune(head[i:])
		if r == utf8.RuneError && size <= 1 {
			return i < checkLen
		}
		i += size
	}
	return false
}

func matchesBuiltinExclude(relPath string) bool {
	for _, pattern := range defaultIgnorePatterns {
		if matchPattern(pattern, relPath) {
			return true
		}
	}
	return false
}

// loadIgnoreRules reads the global excludes file, .git/info/exclude,
// .gitignore files found in root's ancestor directories, and every
// .gitignore/.ignore file found from root down, recording each rule's
// directory of origin so later matching can anchor patterns the way git
// does. Global and ancestor rules are collected first so that a rule closer
// to a given path can override one declared further away, matching git's
// own precedence.
func loadIgnoreRules(root string) ([]ignoreRule, error) {
	var rules []ignoreRule
	rules = append(rules, globalIgnoreRules(root)...)
	rules = append(rules, parentIgnoreRules(root)...)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() != filepath.Base(root) && ignoreNames[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" && d.Name() != ".ignore" {
			return nil
		}

		dir := toRepoRelative(root, filepath.Dir(path))
		if dir == "." {
			dir = ""
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		rules = append(rules, parseIgnoreFile(dir, string(data))...)
		return nil
	})
	return rules, err
}

// globalIgnoreRules loads ignore patterns that apply regardless of
// directory: the repository's .git/info/exclude and the user's global
// excludes file, matching the coverage the Rust "ignore" crate's
// WalkBuilder gives for free rather than something specific to .gitignore
// files under root.
func globalIgnoreRules(root string) []ignoreRule {
	var rules []ignoreRule

	if data, err := os.ReadFile(filepath.Join(root, ".git", "info", "exclude")); err == nil {
		rules = append(rules, parseIgnoreFile("", string(data))...)
	}

	if path := globalExcludesFilePath(root); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			rules = append(rules, parseIgnoreFile("", string(data))...)
		}
	}

	return rules
}

// globalExcludesFilePath resolves the user's global gitignore file:
// core.excludesFile from git config if set, otherwise git's own default
// location under XDG_CONFIG_HOME (or ~/.config).
func globalExcludesFilePath(root string) string {
	if out, err := exec.Command("git", "-C", root, "config", "--get", "core.excludesFile").Output(); err == nil {
		if p := strings.TrimSpace(string(out)); p != "" {
			return expandHome(p)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git", "ignore")
	}
	return filepath.Join(home, ".config", "git", "ignore")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// parentIgnoreRules walks upward from root's parent directory collecting
// .gitignore/.ignore files, the way an ignore file declared above a
// repository's own root still applies within it. The walk stops once it
// passes a directory holding its own .git, since that marks the boundary of
// another repository whose rules are not this one's concern.
func parentIgnoreRules(root string) []ignoreRule {
	var ancestors []string
	dir := filepath.Dir(root)
	for {
		ancestors = append(ancestors, dir)
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	var rules []ignoreRule
	for i := len(ancestors) - 1; i >= 0; i-- {
		for _, name := range []string{".gitignore", ".ignore"} {
			data, err := os.ReadFile(filepath.Join(ancestors[i], name))
			if err != nil {
				continue
			}
			rules = append(rules, parseIgnoreFile("", string(data))...)
		}
	}
	return rules
}

func parseIgnoreFile(dir, content string) []ignoreRule {
	var rules []ignoreRule
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		rule := ignoreRule{dir: dir}
		if strings.HasPrefix(trimmed, "!") {
			rule.negate = true
			trimmed = trimmed[1:]
		}
		if strings.HasSuffix(trimmed, "/") {
			rule.dirOnly = true
			trimmed = strings.TrimSuffix(trimmed, "/")
		}
		rule.pattern = trimmed
		rules = append(rules, rule)
	}
	return rules
}

// matchesIgnoreRules applies rules in file order, so a later negation
// pattern can re-include a path an earlier pattern excluded, matching
// gitignore's own precedence.
func matchesIgnoreRules(rules []ignoreRule, relPath string, isDir bool) bool {
	ignored := false
	for _, rule := range rules {
		if rule.dirOnly && !isDir {
			continue
		}
		scoped := relPath
		if rule.dir != "" {
			if !strings.HasPrefix(relPath, rule.dir+"/") {
				continue
			}
			scoped = strings.TrimPrefix(relPath, rule.dir+"/")
		}
		if ignoreMatch(rule.pattern, scoped) {
			ignored = !rule.negate
		}
	}
	return ignored
}

func ignoreMatch(pattern, path string) bool {
	if !strings.Contains(pattern, "/") {
		return matchSimplePattern(pattern, path) || matchSimplePattern("**/"+pattern, path)
	}
	pattern = strings.TrimPrefix(pattern, "/")
	return matchPattern(pattern, path)
}

// matchPattern matches a repo-relative path against a glob pattern that may
// use "**/" or "/**" for arbitrary directory depth, generalizing the
// original single-list exclusion engine to also serve as the ignore-file
// matcher above.
func matchPattern(pattern, path string) bool {
	if strings.HasPrefix(pattern, "**/") {
		rest := pattern[3:]
		if matchSimplePattern(rest, path) {
			return true
		}
		parts := strings.Split(path, "/")
		for i := range parts {
			subPath := strings.Join(parts[i:], "/")
			if matchSimplePattern(rest, subPath) {
				return true
			}
		}
		return false
	}

	if strings.HasSuffix(pattern, "/**") {
		dir := pattern[:len(pattern)-3]
		if path == dir || strings.HasPrefix(path, dir+"/") {
			return true
		}
		parts := strings.Split(path, "/")
		for i, part := range parts {
			if part == dir && i < len(parts)-1 {
				return true
			}
		}
		return false
	}

	return matchSimplePattern(pattern, path)
}

// matchSimplePattern matches a simple glob pattern (with * but not **)
// against either the full path or its base name.
func matchSimplePattern(pattern, name string) bool {
	if strings.HasPrefix(pattern, "*.") {
		ext := pattern[1:]
		return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
	}

	if pattern == name {
		return true
	}

	if strings.HasPrefix(pattern, "*") {
		baseName := filepath.Base(name)
		suffix := pattern[1:]
		return strings.HasSuffix(strings.ToLower(baseName), strings.ToLower(suffix))
	}

	if matched, _ := filepath.Match(pattern, name); matched {
		return true
	}

	baseName := filepath.Base(name)
	matched, _ := filepath.Match(pattern, baseName)
	return matched
}
