package ui

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Stats     *stats.Collector
	DstRoot   string
	Width     int           // terminal columns for the progress line
	Interval  time.Duration // progress refresh, 0 = one second
	IsTTY     bool
	Quiet     bool
	Verbose   bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // returns the presenter for the output mode
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return &plainPresenter{
		w:        cfg.Writer,
		errW:     cfg.ErrWriter,
		stats:    cfg.Stats,
		dstRoot:  cfg.DstRoot,
		width:    cfg.Width,
		interval: interval,
		progress: cfg.IsTTY,
		verbose:  cfg.Verbose,
	}
}

// logEvent writes ev to the default logger as a structured debug record.
func logEvent(ev event.Event) {
	ctx := context.Background()
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []slog.Attr{
		slog.String("type", ev.Type.String()),
		slog.String("path", ev.Path),
		slog.Int("worker", ev.WorkerID),
	}
	if ev.DstPath != "" {
		attrs = append(attrs, slog.String("dst", ev.DstPath))
	}
	if ev.Size > 0 {
		attrs = append(attrs, slog.Int64("size", ev.Size))
	}
	if ev.Error != nil {
		attrs = append(attrs, slog.String("error", ev.Error.Error()))
		if ev.Type == event.Failed {
			attrs = append(attrs, slog.String("kind", ev.Kind().String()))
		}
	}
	slog.LogAttrs(ctx, slog.LevelDebug, "fcp.event", attrs...)
}
