package engine

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
)

// Unit is one schedulable piece of work: a directory descent or a copy task.
// It runs to completion on the worker that picked it up.
type Unit func(w *Worker)

// Scheduler is a work-stealing pool. Each worker pushes the units it spawns
// onto its own deque and pops them LIFO; idle workers steal FIFO from the
// other end of a busy worker's deque. Units submitted from outside the pool
// go through a shared injector queue.
type Scheduler struct {
	cond     *sync.Cond
	workers  []*Worker
	injector deque
	pending  atomic.Int64 // queued + running
	queued   atomic.Int64
	dropped  atomic.Int64
	steals   atomic.Int64
	mu       sync.Mutex
	stopped  atomic.Bool
}

// Worker is one goroutine of the pool.
type Worker struct {
	s     *Scheduler
	deque deque
	id    int
}

// NewScheduler creates a pool of n workers. n <= 0 selects runtime.NumCPU().
func NewScheduler(n int) *Scheduler {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	s := &Scheduler{workers: make([]*Worker, n)}
	s.cond = sync.NewCond(&s.mu)
	for i := range s.workers {
		s.workers[i] = &Worker{s: s, id: i}
	}
	return s
}

// Size returns the number of workers.
func (s *Scheduler) Size() int { return len(s.workers) }

// Submit queues u on the injector. Safe to call before or during Run.
func (s *Scheduler) Submit(u Unit) {
	s.pending.Add(1)
	s.queued.Add(1)
	s.injector.pushBottom(u)
	s.notify()
}

// Run starts the workers and blocks until no unit is queued or running.
// Once ctx is done, queued units are dropped instead of started; units
// already running are not interrupted.
func (s *Scheduler) Run(ctx context.Context) {
	if ctx.Err() != nil {
		s.stopped.Store(true)
	}
	stop := context.AfterFunc(ctx, func() { s.stopped.Store(true) })
	defer stop()

	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop()
		}()
	}
	wg.Wait()
}

// Dropped returns how many units were discarded after the run was stopped.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }

// Steals returns how many units were taken from another worker's deque.
func (s *Scheduler) Steals() int64 { return s.steals.Load() }

func (s *Scheduler) notify() {
	s.mu.Lock()
	s.cond.Signal()
	s.mu.Unlock()
}

// wait parks the caller until a unit is queued. It returns false when all
// work is done.
func (s *Scheduler) wait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.queued.Load() == 0 {
		if s.pending.Load() == 0 {
			return false
		}
		s.cond.Wait()
	}
	return true
}

func (s *Scheduler) finish() {
	if s.pending.Add(-1) == 0 {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// ID returns the worker's index in the pool.
func (w *Worker) ID() int { return w.id }

// Spawn queues u on this worker's deque, where other workers may steal it.
func (w *Worker) Spawn(u Unit) {
	w.s.pending.Add(1)
	w.s.queued.Add(1)
	w.deque.pushBottom(u)
	w.s.notify()
}

func (w *Worker) loop() {
	for {
		u, ok := w.next()
		if !ok {
			if !w.s.wait() {
				return
			}
			continue
		}
		w.s.queued.Add(-1)
		if w.s.stopped.Load() {
			w.s.dropped.Add(1)
		} else {
			u(w)
		}
		w.s.finish()
	}
}

// next takes work from the local deque, then the injector, then a victim.
func (w *Worker) next() (Unit, bool) {
	if u, ok := w.deque.popBottom(); ok {
		return u, true
	}
	if u, ok := w.s.injector.popTop(); ok {
		return u, true
	}
	n := len(w.s.workers)
	start := rand.IntN(n)
	for i := range n {
		victim := w.s.workers[(start+i)%n]
		if victim == w {
			continue
		}
		if u, ok := victim.deque.popTop(); ok {
			w.s.steals.Add(1)
			return u, true
		}
	}
	return nil, false
}

// deque is a mutex-guarded double-ended queue of units.
type deque struct {
	items []Unit
	mu    sync.Mutex
}

func (d *deque) pushBottom(u Unit) {
	d.mu.Lock()
	d.items = append(d.items, u)
	d.mu.Unlock()
}

func (d *deque) popBottom() (Unit, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil, false
	}
	u := d.items[n-1]
	d.items[n-1] = nil
	d.items = d.items[:n-1]
	return u, true
}

func (d *deque) popTop() (Unit, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, false
	}
	u := d.items[0]
	d.items[0] = nil
	d.items = d.items[1:]
	return u, true
}
