package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/nanosearch/ns/internal/config"
	"github.com/nanosearch/ns/internal/hooks"
	"github.com/nanosearch/ns/internal/nsengine"
	"github.com/spf13/pflag"
)

const stateDirName = ".ns"

// buildOptions resolves nsengine.BuildOptions for root from Settings and an
// explicit override (0 means "use the settings default").
func buildOptions(root string, s *config.Settings, maxFileSizeOverride int64) nsengine.BuildOptions {
	maxFileSize := s.MaxFileSize
	if maxFileSizeOverride > 0 {
		maxFileSize = maxFileSizeOverride
	}
	return nsengine.BuildOptions{
		MaxFileSize: maxFileSize,
		StateDir:    filepath.Join(root, stateDirName),
	}
}

// RunSearch runs the default (implicit or explicit `search`) command:
// resolve flags into a QuerySpec, run the query, format and write the
// report, then record usage stats best-effort.
func RunSearch(ctx context.Context, flags *pflag.FlagSet, args []string, out io.Writer) error {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := config.NewLogger(settings)
	slog.SetDefault(logger)

	if len(args) == 0 {
		return nsengine.NewEngineError(nsengine.ErrConfig, "cli.search", errors.New("a search query is required"))
	}
	query := strings.Join(args, " ")

	root := "."
	spec := nsengine.QuerySpec{
		Terms:           query,
		MaxResults:      settings.MaxResults,
		ContextLines:    settings.ContextLines,
		MaxContextLines: config.DefaultMaxContextLines,
	}
	if v, err := flags.GetString("type"); err == nil {
		spec.LangFilter = v
	}
	if v, err := flags.GetString("glob"); err == nil {
		spec.GlobFilter = v
	}
	if v, err := flags.GetBool("files"); err == nil {
		spec.PathsOnly = v
	}
	if v, err := flags.GetInt("max-count"); err == nil && v > 0 {
		spec.MaxResults = v
	}
	if v, err := flags.GetInt("context"); err == nil && flags.Changed("context") {
		spec.ContextLines = v
	}
	if v, err := flags.GetBool("sym"); err == nil {
		spec.SymbolOnly = v
	}
	if v, err := flags.GetBool("fuzzy"); err == nil {
		spec.Fuzzy = v
	}
	if v, err := flags.GetInt("max-context-lines"); err == nil && v > 0 {
		spec.MaxContextLines = v
	}

	opts := buildOptions(root, settings, 0)
	report, searchErr := nsengine.Search(ctx, root, opts, spec)
	if searchErr != nil {
		nsengine.RecordSearch(opts.StateDir, query, 0, nsengine.OutcomeError)
		return searchErr
	}

	var rendered []byte
	if settings.Output == config.OutputJSON {
		rendered, err = nsengine.FormatJSON(report)
		if err != nil {
			return fmt.Errorf("failed to format results: %w", err)
		}
	} else {
		rendered = []byte(nsengine.FormatText(report) + "\n")
	}

	if _, err := out.Write(rendered); err != nil {
		if IsBrokenPipe(err) {
			return nil
		}
		return err
	}

	outcome := nsengine.OutcomeSuccess
	if report.Stats.TotalResults == 0 {
		outcome = nsengine.OutcomeNoResults
	}
	nsengine.RecordSearch(opts.StateDir, query, len(rendered), outcome)

	if report.Stats.TotalResults == 0 {
		return errNoResults
	}
	return nil
}

// errNoResults signals the CLI adapter to exit 1 without printing a second
// diagnostic line; the empty report has already been written to stdout.
var errNoResults = errors.New("no results")

// IsNoResults reports whether err is the sentinel RunSearch returns when a
// query matched nothing.
func IsNoResults(err error) bool {
	return errors.Is(err, errNoResults)
}

// RunIndex runs the `index` subcommand: a full build, or an incremental
// build when --incremental is set and an index already exists.
func RunIndex(ctx context.Context, flags *pflag.FlagSet, out io.Writer) error {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.SetDefault(config.NewLogger(settings))

	root, err := flags.GetString("root")
	if err != nil {
		root = "."
	}
	incremental, _ := flags.GetBool("incremental")
	maxFileSize, _ := flags.GetInt64("max-file-size")
	watch, _ := flags.GetBool("watch")

	opts := buildOptions(root, settings, maxFileSize)

	if watch {
		return runWatch(ctx, root, opts, out)
	}

	var report nsengine.BuildReport
	if incremental {
		report, err = nsengine.BuildIncremental(ctx, root, opts)
	} else {
		report, err = nsengine.BuildFull(ctx, root, opts)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "indexed %s: +%d ~%d -%d unchanged=%d in %s\n",
		root, report.Added, report.Modified, report.Deleted, report.Unchanged, report.Elapsed.Round(time.Millisecond))
	return nil
}

// RunStatus runs the `status` subcommand.
func RunStatus(ctx context.Context, flags *pflag.FlagSet, out io.Writer) error {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	slog.SetDefault(config.NewLogger(settings))

	root, err := flags.GetString("root")
	if err != nil {
		root = "."
	}
	opts := buildOptions(root, settings, 0)

	meta, err := nsengine.LoadMeta(filepath.Join(opts.StateDir, nsengine.MetaFilename), root)
	if err != nil {
		return err
	}
	stats := nsengine.ReadStats(opts.StateDir)

	_, err = io.WriteString(out, nsengine.FormatStatus(meta.Snapshot(), stats))
	return err
}

// RunHooksInstall runs `hooks install`.
func RunHooksInstall(flags *pflag.FlagSet, out io.Writer) error {
	root, err := flags.GetString("root")
	if err != nil {
		root = "."
	}
	results, err := hooks.Install(root)
	if err != nil {
		return err
	}
	return reportHookResults(out, results, installResultLabel)
}

// RunHooksRemove runs `hooks remove`.
func RunHooksRemove(flags *pflag.FlagSet, out io.Writer) error {
	root, err := flags.GetString("root")
	if err != nil {
		root = "."
	}
	results, err := hooks.Remove(root)
	if err != nil {
		return err
	}
	return reportHookResults(out, results, removeResultLabel)
}

func reportHookResults[T comparable](out io.Writer, results map[string]T, label func(T) string) error {
	for _, name := range hooks.Names {
		result, ok := results[name]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s: %s\n", name, label(result)); err != nil {
			return err
		}
	}
	return nil
}

func installResultLabel(r hooks.InstallResult) string {
	switch r {
	case hooks.Created:
		return "created"
	case hooks.Appended:
		return "appended"
	case hooks.AlreadyPresent:
		return "already present"
	case hooks.NotShellScript:
		return "skipped (not a recognized shell script)"
	default:
		return "unknown"
	}
}

func removeResultLabel(r hooks.RemoveResult) string {
	switch r {
	case hooks.Deleted:
		return "deleted"
	case hooks.Cleaned:
		return "cleaned"
	case hooks.NotPresent:
		return "not present"
	default:
		return "unknown"
	}
}
