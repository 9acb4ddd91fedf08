package engine

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/stats"
)

// DefaultPreallocThreshold is the file size at and above which destination
// storage is reserved before the transfer.
const DefaultPreallocThreshold = 64 << 20

const maxOpenCeiling = 4096

// Config describes a copy operation.
type Config struct {
	Events            chan<- event.Event
	Stats             *stats.Collector // optional; created by Run when nil
	Workers           int              // 0 = runtime.NumCPU()
	MaxOpen           int              // in-flight descriptor pairs, 0 = derive from RLIMIT_NOFILE
	FailureCap        int              // stored failure records, 0 = stats.DefaultFailureCap
	PreallocThreshold int64            // 0 disables preallocation
	BWLimit           int64            // bytes/sec, 0 = unlimited
	Hardlinks         HardlinkMode
	Overwrite         bool
	FollowRootSymlink bool
	PreserveOwner     bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		PreallocThreshold: DefaultPreallocThreshold,
		PreserveOwner:     true,
	}
}

// Result is the outcome of a copy operation. Err is set only when the run
// could not start or was interrupted; per-entry failures are in Stats.
type Result struct {
	Err   error
	Stats stats.Result
}

// engine is the shared state of one run.
type engine struct {
	stats   *stats.Collector
	sched   *Scheduler
	slots   *semaphore.Weighted
	limiter *rate.Limiter
	links   *linkRegistry
	tmp     tmpRegistry
	cfg     Config
}

// Run copies every pair, blocking until all work has completed or, after ctx
// is cancelled, until in-flight entries have finished.
func Run(ctx context.Context, pairs []Pair, cfg Config) Result {
	if len(pairs) == 0 {
		return Result{Err: errors.New("no source/destination pairs")}
	}

	maxOpen := cfg.MaxOpen
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpen()
	}

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector(cfg.FailureCap)
	}

	e := &engine{
		cfg:   cfg,
		stats: collector,
		sched: NewScheduler(cfg.Workers),
		slots: semaphore.NewWeighted(int64(maxOpen)),
		links: newLinkRegistry(),
	}
	if cfg.BWLimit > 0 {
		e.limiter = NewBWLimiter(cfg.BWLimit)
	}
	defer e.tmp.cleanup()

	slog.Debug("copy started",
		"pairs", len(pairs),
		"workers", e.sched.Size(),
		"max_open", maxOpen,
		"overwrite", cfg.Overwrite,
		"hardlinks", cfg.Hardlinks.String(),
	)

	for _, p := range pairs {
		e.sched.Submit(func(w *Worker) { e.walkRoot(w, p) })
	}
	e.sched.Run(ctx)

	e.stats.AddDropped(e.sched.Dropped())
	res := Result{Stats: e.stats.Finalize()}
	if err := ctx.Err(); err != nil {
		res.Err = err
	}

	slog.Debug("copy finished",
		"result", res.Stats.String(),
		"steals", e.sched.Steals(),
		"max_open_pairs", res.Stats.MaxOpenPairs,
		"elapsed", res.Stats.Elapsed,
	)
	return res
}

// DefaultMaxOpen derives the in-flight descriptor-pair bound from the soft
// RLIMIT_NOFILE, leaving headroom for the process's other descriptors.
func DefaultMaxOpen() int {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 256
	}
	cur := rl.Cur
	if cur > 2*maxOpenCeiling+64 {
		return maxOpenCeiling
	}
	n := (int(cur) - 64) / 2 //nolint:gosec // G115: bounded above
	return max(n, 1)
}
