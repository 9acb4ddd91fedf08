package engine

import (
	"fmt"
	"strings"
	"sync"
)

// HardlinkMode selects how multiply-linked regular files are recreated.
type HardlinkMode int

const (
	// HardlinksCopy copies every path independently.
	HardlinksCopy HardlinkMode = iota
	// HardlinksPreserve copies one path per inode and links the rest to it.
	HardlinksPreserve
)

func (m HardlinkMode) String() string {
	if m == HardlinksPreserve {
		return "preserve"
	}
	return "copy"
}

// ParseHardlinkMode parses "copy" or "preserve".
func ParseHardlinkMode(s string) (HardlinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "copy":
		return HardlinksCopy, nil
	case "preserve":
		return HardlinksPreserve, nil
	default:
		return HardlinksCopy, fmt.Errorf("invalid hardlink mode %q (want copy or preserve)", s)
	}
}

// linkGroup is the shared state of all paths naming one source inode.
// Followers that arrive while the leader is still copying are parked here
// instead of holding a worker.
type linkGroup struct {
	err     error
	dst     string
	waiters []Unit
	mu      sync.Mutex
	done    bool
}

// linkRegistry hands out one leader per inode.
type linkRegistry struct {
	groups map[DevIno]*linkGroup
	mu     sync.Mutex
}

func newLinkRegistry() *linkRegistry {
	return &linkRegistry{groups: make(map[DevIno]*linkGroup)}
}

// claim returns the group for key. leader is true for the first caller, which
// must call finish exactly once.
func (r *linkRegistry) claim(key DevIno, dst string) (g *linkGroup, leader bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[key]; ok {
		return g, false
	}
	g = &linkGroup{dst: dst}
	r.groups[key] = g
	return g, true
}

// finish records the leader's outcome and queues every parked follower on w.
func (g *linkGroup) finish(w *Worker, err error) {
	g.mu.Lock()
	g.err = err
	g.done = true
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, u := range waiters {
		w.Spawn(u)
	}
}

// after runs u once the leader is done: inline on w if it already is,
// otherwise from the leader's queue when it finishes.
func (g *linkGroup) after(w *Worker, u Unit) {
	g.mu.Lock()
	if !g.done {
		g.waiters = append(g.waiters, u)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	u(w)
}

// result returns the leader's destination, or its error if it failed. Only
// meaningful once the group is done.
func (g *linkGroup) result() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dst, g.err
}
