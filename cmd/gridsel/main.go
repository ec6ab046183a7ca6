// Package main is the entry point for gridsel.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/gridsel/internal/app"
	"github.com/dshills/gridsel/internal/config"
	"github.com/dshills/gridsel/internal/logging"
	"github.com/dshills/gridsel/internal/replay"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errFailed is returned when a replay scenario does not hold. The reports
// already describe the failure.
var errFailed = errors.New("scenarios failed")

var errNoTerminal = errors.New("tui needs a terminal on stdin and stdout")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gridsel",
		Short: "Browse and select cells in a grid",
		Long: `gridsel is a spreadsheet-style selection engine. It opens a grid from an
XLSX file or a blank sheet in the terminal, and replays scripted selection
scenarios written in YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTUICmd(), newReplayCmd(), newConfigCmd(), newVersionCmd())
	return root
}

func newTUICmd() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "tui [file.xlsx]",
		Short: "Open a grid in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return errNoTerminal
			}
			if len(args) == 1 {
				opts.GridFile = args[0]
			}
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			runErr := a.Run(cmd.Context())
			return errors.Join(runErr, a.Close())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "settings file (TOML or YAML)")
	f.StringVar(&opts.LogFile, "log-file", "", "write logs to this file")
	f.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "reload the settings file when it changes")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var (
		failFast bool
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "replay scenario.yaml...",
		Short: "Run selection scenarios and check their expectations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []replay.Option{replay.WithFailFast(failFast)}
			if verbose {
				opts = append(opts, replay.WithLogger(logging.New(logging.Config{Level: logging.LevelDebug, Output: cmd.ErrOrStderr()})))
			}
			return runScenarios(cmd.Context(), cmd.OutOrStdout(), args, opts...)
		},
	}
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop each scenario at its first failed step")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every step to stderr")
	return cmd
}

func runScenarios(ctx context.Context, w io.Writer, paths []string, opts ...replay.Option) error {
	failed := 0
	for _, path := range paths {
		sc, err := replay.Load(path)
		if err != nil {
			return err
		}
		report, err := replay.Run(ctx, sc, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := report.Write(w); err != nil {
			return err
		}
		if !report.Passed() {
			failed++
		}
	}
	fmt.Fprintf(w, "%d of %d scenarios passed\n", len(paths)-failed, len(paths))
	if failed > 0 {
		return errFailed
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as TOML",
		Long: `Print the effective settings as TOML. Without --config the defaults are
printed, with GRIDSEL_* environment overrides applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return cfg.WriteTOML(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "settings file (TOML or YAML)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridsel %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
