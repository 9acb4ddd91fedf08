package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/fcp/internal/event"
)

// ErrChecksumMismatch reports a destination whose content differs from its source.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// VerifyConfig controls the post-copy verification pass.
type VerifyConfig struct {
	Events            chan<- event.Event
	Pairs             []Pair
	Workers           int
	FollowRootSymlink bool
}

// VerifyResult holds the outcome of a verification pass.
type VerifyResult struct {
	Errors   []VerifyError
	Verified int64
	Failed   int64
}

// VerifyError records a single checksum mismatch or unreadable file.
type VerifyError struct {
	Err     error
	Path    string // source path
	SrcHash string
	DstHash string
}

type verifyItem struct {
	src string
	dst string
}

// Verify compares BLAKE3 checksums of every regular file under each source
// root against its destination counterpart.
func Verify(ctx context.Context, cfg VerifyConfig) VerifyResult {
	event.Emit(cfg.Events, event.Event{Type: event.VerifyStarted})

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu     sync.Mutex
		result VerifyResult
	)
	record := func(ve *VerifyError) {
		mu.Lock()
		defer mu.Unlock()
		if ve == nil {
			result.Verified++
			return
		}
		result.Failed++
		result.Errors = append(result.Errors, *ve)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, it := range collectVerifyFiles(ctx, cfg.Pairs, cfg.FollowRootSymlink) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ve := verifyOne(it)
			record(ve)
			ev := event.Event{Type: event.VerifyOK, Path: it.src, DstPath: it.dst}
			if ve != nil {
				ev.Type = event.VerifyFailed
				ev.Error = ve.Err
			}
			event.Emit(cfg.Events, ev)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // verify goroutines never return errors

	return result
}

func verifyOne(it verifyItem) *VerifyError {
	src, err := hashPath(it.src)
	if err != nil {
		return &VerifyError{Path: it.src, SrcHash: "error", DstHash: "n/a", Err: err}
	}
	dst, err := hashPath(it.dst)
	if err != nil {
		return &VerifyError{Path: it.src, SrcHash: src.sum, DstHash: "error", Err: err}
	}
	if src.size != dst.size {
		return &VerifyError{
			Path:    it.src,
			SrcHash: src.sum,
			DstHash: dst.sum,
			Err:     fmt.Errorf("%w: source has %d bytes, destination %d", ErrChecksumMismatch, src.size, dst.size),
		}
	}
	if src.sum != dst.sum {
		return &VerifyError{Path: it.src, SrcHash: src.sum, DstHash: dst.sum, Err: ErrChecksumMismatch}
	}
	return nil
}

// collectVerifyFiles walks every source root and returns its regular files
// paired with their destination paths.
func collectVerifyFiles(ctx context.Context, pairs []Pair, followRoot bool) []verifyItem {
	var items []verifyItem
	for _, p := range pairs {
		root := p.Src
		if followRoot {
			if resolved, err := filepath.EvalSymlinks(root); err == nil {
				root = resolved
			}
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			items = append(items, verifyItem{src: path, dst: filepath.Join(p.Dst, rel)})
			return nil
		})
	}
	return items
}
