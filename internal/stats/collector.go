package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bamsammich/fcp/internal/fserr"
)

const ringSize = 60

// DefaultFailureCap bounds stored failure records when no cap is configured.
const DefaultFailureCap = 64

// Failure is one stored failure record.
type Failure struct {
	Err   error
	Path  string
	Kind  fserr.Kind
	Errno syscall.Errno
}

// Collector aggregates per-task outcomes from every worker. Counters are
// lock-free; failure records are mutex-guarded and capped.
type Collector struct {
	startTime time.Time

	succeeded     atomic.Int64
	failed        atomic.Int64
	warnings      atomic.Int64
	dropped       atomic.Int64
	dirsCreated   atomic.Int64
	symlinks      atomic.Int64
	specials      atomic.Int64
	hardlinks     atomic.Int64
	bytesZeroCopy atomic.Int64
	bytesBuffered atomic.Int64
	openPairs     atomic.Int64
	maxOpenPairs  atomic.Int64
	byKind        [fserr.NumKinds]atomic.Int64

	recMu      sync.Mutex
	records    []Failure
	failureCap int

	// Ring buffer, written only by the presenter's Tick().
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes delta per second
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector storing at most failureCap failure
// records. A cap <= 0 selects DefaultFailureCap.
func NewCollector(failureCap int) *Collector {
	if failureCap <= 0 {
		failureCap = DefaultFailureCap
	}
	return &Collector{
		startTime:  time.Now(),
		failureCap: failureCap,
	}
}

func (c *Collector) AddSucceeded(n int64)     { c.succeeded.Add(n) }
func (c *Collector) AddWarnings(n int64)      { c.warnings.Add(n) }
func (c *Collector) AddDropped(n int64)       { c.dropped.Add(n) }
func (c *Collector) AddDirsCreated(n int64)   { c.dirsCreated.Add(n) }
func (c *Collector) AddSymlinks(n int64)      { c.symlinks.Add(n) }
func (c *Collector) AddSpecials(n int64)      { c.specials.Add(n) }
func (c *Collector) AddHardlinks(n int64)     { c.hardlinks.Add(n) }
func (c *Collector) AddBytesZeroCopy(n int64) { c.bytesZeroCopy.Add(n) }
func (c *Collector) AddBytesBuffered(n int64) { c.bytesBuffered.Add(n) }

// RecordFailure counts err and stores it while under the cap. The count is
// exact regardless of the cap.
func (c *Collector) RecordFailure(err error) {
	fe := asFailure(err)
	c.failed.Add(1)
	c.byKind[fe.Kind].Add(1)

	c.recMu.Lock()
	if len(c.records) < c.failureCap {
		c.records = append(c.records, fe)
	}
	c.recMu.Unlock()
}

func asFailure(err error) Failure {
	fe := fserr.New("copy", "", err)
	return Failure{
		Path:  fe.Path,
		Kind:  fe.Kind,
		Errno: fe.Errno,
		Err:   fe,
	}
}

// OpenPair marks one source/destination descriptor pair as held and tracks
// the high-water mark. ClosePair releases it.
func (c *Collector) OpenPair() {
	n := c.openPairs.Add(1)
	for {
		cur := c.maxOpenPairs.Load()
		if n <= cur || c.maxOpenPairs.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (c *Collector) ClosePair() { c.openPairs.Add(-1) }

// Result is the aggregate outcome of a run.
type Result struct {
	Failures      []Failure
	ByKind        map[fserr.Kind]int64
	Succeeded     int64
	Failed        int64
	Suppressed    int64 // failures counted but not stored
	Warnings      int64
	Dropped       int64 // units never started because the run was stopped
	DirsCreated   int64
	Symlinks      int64
	Specials      int64
	Hardlinks     int64
	BytesZeroCopy int64
	BytesBuffered int64
	MaxOpenPairs  int64
	Elapsed       time.Duration
}

// Snapshot returns a point-in-time read of all counters and stored failures.
func (c *Collector) Snapshot() Result {
	r := Result{
		Succeeded:     c.succeeded.Load(),
		Failed:        c.failed.Load(),
		Warnings:      c.warnings.Load(),
		Dropped:       c.dropped.Load(),
		DirsCreated:   c.dirsCreated.Load(),
		Symlinks:      c.symlinks.Load(),
		Specials:      c.specials.Load(),
		Hardlinks:     c.hardlinks.Load(),
		BytesZeroCopy: c.bytesZeroCopy.Load(),
		BytesBuffered: c.bytesBuffered.Load(),
		MaxOpenPairs:  c.maxOpenPairs.Load(),
		Elapsed:       c.Elapsed(),
		ByKind:        make(map[fserr.Kind]int64),
	}
	for k := range c.byKind {
		if n := c.byKind[k].Load(); n > 0 {
			r.ByKind[fserr.Kind(k)] = n
		}
	}

	c.recMu.Lock()
	r.Failures = append([]Failure(nil), c.records...)
	c.recMu.Unlock()

	r.Suppressed = r.Failed - int64(len(r.Failures))
	if r.Suppressed < 0 {
		r.Suppressed = 0
	}
	return r
}

// Finalize returns the aggregate result once every worker has stopped.
func (c *Collector) Finalize() Result {
	return c.Snapshot()
}

// Bytes returns the total bytes transferred by any method.
func (r Result) Bytes() int64 { return r.BytesZeroCopy + r.BytesBuffered }

// ExitCode is 0 iff no task failed.
func (r Result) ExitCode() int {
	if r.Failed > 0 {
		return 1
	}
	return 0
}

func (r Result) String() string {
	return fmt.Sprintf(
		"ok=%d failed=%d dirs=%d symlinks=%d specials=%d hardlinks=%d bytes=%d warnings=%d",
		r.Succeeded, r.Failed, r.DirsCreated, r.Symlinks, r.Specials, r.Hardlinks,
		r.Bytes(), r.Warnings,
	)
}

// Tick snapshots the byte delta into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	current := c.bytesZeroCopy.Load() + c.bytesBuffered.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(seconds, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}
