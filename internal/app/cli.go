package app

import "github.com/spf13/pflag"

// RegisterSearchFlags registers the flags shared by the default (implicit)
// search invocation and the explicit `search` subcommand.
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.StringP("type", "t", "", "Filter results to one language")
	flags.StringP("glob", "g", "", "Filter results to paths matching a glob")
	flags.BoolP("files", "l", false, "Print only matching file paths")
	flags.IntP("max-count", "m", 0, "Maximum number of results (0 = adapter default)")
	flags.IntP("context", "C", 0, "Number of context lines around each match")
	flags.Bool("sym", false, "Restrict matching to the symbols field")
	flags.Bool("fuzzy", false, "Allow single-edit-distance fuzzy matching")
	flags.Bool("json", false, "Emit machine-readable JSON output")
	flags.BoolP("ignore-case", "i", true, "No-op: matching is always case-insensitive")
	flags.Int("max-context-lines", 30, "Cap on context lines returned per result")
	flags.Int("budget", 0, "Approximate output token budget (accepted; output is not limited by it)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// RegisterIndexFlags registers the flags for the `index` subcommand.
func RegisterIndexFlags(flags *pflag.FlagSet) {
	flags.Bool("incremental", false, "Reuse the existing index and apply only detected changes")
	flags.String("root", ".", "Repository root to index")
	flags.Int64("max-file-size", 0, "Skip files larger than this many bytes (0 = adapter default)")
	flags.Bool("watch", false, "Watch the tree and rebuild incrementally on change (supplemental, not part of the core contract)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// RegisterStatusFlags registers the flags for the `status` subcommand.
func RegisterStatusFlags(flags *pflag.FlagSet) {
	flags.String("root", ".", "Repository root to report on")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// RegisterHooksFlags registers the flags shared by `hooks install`/`hooks remove`.
func RegisterHooksFlags(flags *pflag.FlagSet) {
	flags.String("root", ".", "Repository root whose .git/hooks to manage")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}
