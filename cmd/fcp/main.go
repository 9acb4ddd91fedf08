package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/fcp/internal/config"
	"github.com/bamsammich/fcp/internal/engine"
	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/stats"
	"github.com/bamsammich/fcp/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// options holds parsed flag values before they are merged with the config
// file and turned into an engine.Config.
type options struct {
	workers         int
	maxOpen         int
	failureCap      int
	overwrite       bool
	dereferenceRoot bool
	noOwner         bool
	verify          bool
	verbose         bool
	quiet           bool
	showVersion     bool
	hardlinks       string
	preallocStr     string
	bwLimitStr      string
	logFile         string
}

func run() int {
	var o options
	rootCmd := newRootCmd(&o)
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "fcp: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fcp [flags] SOURCE... DEST",
		Short: "Fast parallel recursive copy preserving metadata, symlinks, sparse files and special files",
		Args: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				return nil
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				fmt.Fprintf(os.Stdout, "fcp %s\n", version)
				return nil
			}
			return o.copy(cmd, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.showVersion, "version", false, "print version and exit")
	f.BoolVarP(&o.overwrite, "overwrite", "f", false, "replace existing destination files")
	f.BoolVarP(&o.dereferenceRoot, "dereference-root", "H", false, "follow a symlink given as SOURCE")
	f.IntVarP(&o.workers, "workers", "n", 0, "number of copy workers (default: NumCPU)")
	f.IntVar(&o.maxOpen, "max-open", 0, "max files copied at once (default: derived from RLIMIT_NOFILE)")
	f.IntVar(&o.failureCap, "failure-cap", stats.DefaultFailureCap, "max failure paths listed in the report")
	f.BoolVar(&o.noOwner, "no-owner", false, "don't attempt to preserve uid/gid")
	f.BoolVar(&o.verify, "verify", false, "verify checksums after copy (BLAKE3)")
	f.StringVar(&o.hardlinks, "hardlinks", "copy", "hard link handling: copy or preserve")
	f.StringVar(&o.preallocStr, "prealloc-threshold", "64MiB", "preallocate files at least this large (0 disables)")
	f.StringVar(&o.bwLimitStr, "bwlimit", "", "bandwidth limit in bytes/sec (e.g. 100MiB; SI suffixes like 1G are decimal)")
	f.StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "list every copied entry")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "suppress all output except errors")

	return cmd
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires config, logging, engine and presenter
func (o *options) copy(cmd *cobra.Command, args []string) error {
	cfgFile, err := config.Load()
	if err != nil {
		return err
	}
	applyConfigDefaults(cmd, cfgFile.Defaults, o)

	engineCfg, err := o.engineConfig()
	if err != nil {
		return err
	}

	pairs, err := resolvePairs(args[:len(args)-1], args[len(args)-1])
	if err != nil {
		return err
	}

	// Configure logging.
	logLevel := slog.LevelWarn
	if o.verbose {
		logLevel = slog.LevelDebug
	} else if !o.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if o.logFile != "" {
		lf, lfErr := os.Create(o.logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector(engineCfg.FailureCap)
	events := make(chan event.Event, 256)
	engineCfg.Stats = collector
	engineCfg.Events = events

	dstRoot := ""
	if len(pairs) == 1 {
		dstRoot = pairs[0].Dst
	}
	presenter := ui.NewPresenter(ui.Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Stats:     collector,
		DstRoot:   dstRoot,
		Width:     ui.TermWidth(os.Stderr),
		IsTTY:     ui.IsTTY(os.Stderr),
		Quiet:     o.quiet,
		Verbose:   o.verbose,
	})

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(events)
	}()

	result := engine.Run(ctx, pairs, engineCfg)

	var verifyResult engine.VerifyResult
	if o.verify && !verifiable(result) {
		slog.Warn("skipping verify: copy did not complete cleanly", "failed", result.Stats.Failed)
	}
	if o.verify && verifiable(result) {
		verifyResult = engine.Verify(ctx, engine.VerifyConfig{
			Events:            events,
			Pairs:             pairs,
			Workers:           engineCfg.Workers,
			FollowRootSymlink: engineCfg.FollowRootSymlink,
		})
	}

	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if !o.quiet {
		fmt.Fprintln(os.Stderr, ui.CompletionSummary(result.Stats))
	}
	if report := ui.FailureReport(result.Stats); report != "" {
		fmt.Fprint(os.Stderr, report)
	}
	for _, ve := range verifyResult.Errors {
		fmt.Fprintf(os.Stderr, "verify: %s: %v\n", ve.Path, ve.Err)
	}

	if result.Err != nil {
		slog.Error("copy interrupted", "error", result.Err)
		return &exitError{code: 1}
	}
	if code := result.Stats.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	if verifyResult.Failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

// verifiable reports whether a verify pass is meaningful: every path that
// failed to copy would otherwise be reported again as a mismatch.
func verifiable(r engine.Result) bool {
	return r.Err == nil && r.Stats.Failed == 0
}

// engineConfig converts flag values into an engine configuration.
func (o *options) engineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.Workers = o.workers
	cfg.MaxOpen = o.maxOpen
	cfg.FailureCap = o.failureCap
	cfg.Overwrite = o.overwrite
	cfg.FollowRootSymlink = o.dereferenceRoot
	cfg.PreserveOwner = !o.noOwner

	if o.workers < 0 || o.maxOpen < 0 || o.failureCap < 0 {
		return cfg, errors.New("--workers, --max-open and --failure-cap must not be negative")
	}

	mode, err := engine.ParseHardlinkMode(o.hardlinks)
	if err != nil {
		return cfg, fmt.Errorf("invalid --hardlinks: %w", err)
	}
	cfg.Hardlinks = mode

	if cfg.PreallocThreshold, err = config.ParseSize(o.preallocStr); err != nil {
		return cfg, fmt.Errorf("invalid --prealloc-threshold: %w", err)
	}
	if cfg.BWLimit, err = config.ParseSize(o.bwLimitStr); err != nil {
		return cfg, fmt.Errorf("invalid --bwlimit: %w", err)
	}
	return cfg, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
//
//nolint:gocyclo // one branch per key
func applyConfigDefaults(cmd *cobra.Command, d config.DefaultsConfig, o *options) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if !set("workers") && d.Workers != nil {
		o.workers = *d.Workers
	}
	if !set("max-open") && d.MaxOpen != nil {
		o.maxOpen = *d.MaxOpen
	}
	if !set("failure-cap") && d.FailureCap != nil {
		o.failureCap = *d.FailureCap
	}
	if !set("overwrite") && d.Overwrite != nil {
		o.overwrite = *d.Overwrite
	}
	if !set("dereference-root") && d.DereferenceRoot != nil {
		o.dereferenceRoot = *d.DereferenceRoot
	}
	if !set("no-owner") && d.PreserveOwner != nil {
		o.noOwner = !*d.PreserveOwner
	}
	if !set("verify") && d.Verify != nil {
		o.verify = *d.Verify
	}
	if !set("hardlinks") && d.Hardlinks != nil {
		o.hardlinks = *d.Hardlinks
	}
	if !set("prealloc-threshold") && d.PreallocThreshold != nil {
		o.preallocStr = *d.PreallocThreshold
	}
	if !set("bwlimit") && d.BWLimit != nil {
		o.bwLimitStr = *d.BWLimit
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
