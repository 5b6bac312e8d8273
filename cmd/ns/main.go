package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nanosearch/ns/internal/app"
	"github.com/nanosearch/ns/internal/nsengine"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time.
	Version = "dev"
	// Build is injected at build time.
	Build = "unknown"
	// ProgramName is injected at build time.
	ProgramName = "ns"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	code := Execute(Version, Build, ProgramName, args[1:], os.Stdout, os.Stderr)
	if code != 0 {
		exit(code)
	}
}

// Execute builds the command tree and runs it, returning the process exit
// code per §6: 0 success/results, 1 no-results or handled error, 2
// usage/parse error, 141 broken pipe.
func Execute(version, build, programName string, args []string, stdout, stderr *os.File) int {
	out := app.NewSafeWriter(stdout)
	rootCmd := newRootCmd(version, programName, out)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err != nil && !app.IsNoResults(err) && !app.IsBrokenPipe(err) {
		printErr(stderr, err)
	}
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case app.IsBrokenPipe(err):
		return app.BrokenPipeExitCode
	case isUsageError(err):
		return 2
	default:
		return 1
	}
}

// isUsageError reports whether err is a config/flag-parsing failure, which
// exits 2 rather than the generic 1 used for handled runtime errors.
func isUsageError(err error) bool {
	var engineErr *nsengine.EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind == nsengine.ErrConfig
	}
	// Cobra/pflag surface parse failures (unknown flag, missing argument)
	// as plain errors rather than our EngineError taxonomy.
	msg := err.Error()
	return strings.Contains(msg, "unknown flag") ||
		strings.Contains(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "flag needs an argument") ||
		strings.Contains(msg, "invalid argument")
}

func newRootCmd(version, programName string, out *app.SafeWriter) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     programName + " [query]",
		Short:   "Local, single-binary code search",
		Long:    "ns is a local, single-binary, file-level code search tool over an inverted index of file contents and extracted symbols.",
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSearch(cmd.Context(), cmd.Flags(), args, out)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	app.RegisterSearchFlags(rootCmd.Flags())
	rootCmd.SetContext(context.Background())

	rootCmd.AddCommand(newSearchCmd(out))
	rootCmd.AddCommand(newIndexCmd(out))
	rootCmd.AddCommand(newStatusCmd(out))
	rootCmd.AddCommand(newHooksCmd(out))

	return rootCmd
}

func newSearchCmd(out *app.SafeWriter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the index (explicit form of the default command)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSearch(cmd.Context(), cmd.Flags(), args, out)
		},
	}
	app.RegisterSearchFlags(cmd.Flags())
	return cmd
}

func newIndexCmd(out *app.SafeWriter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or incrementally update the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunIndex(cmd.Context(), cmd.Flags(), out)
		},
	}
	app.RegisterIndexFlags(cmd.Flags())
	return cmd
}

func newStatusCmd(out *app.SafeWriter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print index metadata and cumulative usage stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunStatus(cmd.Context(), cmd.Flags(), out)
		},
	}
	app.RegisterStatusFlags(cmd.Flags())
	return cmd
}

func newHooksCmd(out *app.SafeWriter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage git hooks that trigger incremental re-indexing",
	}

	install := &cobra.Command{
		Use:   "install",
		Short: "Install post-commit/post-merge/post-checkout hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunHooksInstall(cmd.Flags(), out)
		},
	}
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove ns-managed hook lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunHooksRemove(cmd.Flags(), out)
		},
	}

	app.RegisterHooksFlags(install.Flags())
	app.RegisterHooksFlags(remove.Flags())
	cmd.AddCommand(install, remove)
	return cmd
}

// printErr writes a single diagnostic line, no stack trace, per §9.
func printErr(w *os.File, err error) {
	fmt.Fprintf(w, "ns: %v\n", err)
}
