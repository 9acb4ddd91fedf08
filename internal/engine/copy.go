package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"syscall"

	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/fserr"
	"github.com/bamsammich/fcp/internal/platform"
)

// dispatch recreates one non-directory entry, then calls done. A hard link
// follower whose leader is still copying is parked on the link group and
// resumed by whichever worker finishes the leader.
func (e *engine) dispatch(w *Worker, t CopyTask, done func(*Worker)) {
	if t.Type != Regular || e.cfg.Hardlinks != HardlinksPreserve || t.Nlink < 2 {
		e.execute(w, t)
		done(w)
		return
	}

	g, leader := e.links.claim(t.DevIno, t.DstPath)
	if leader {
		n, err := e.copyData(w, t)
		g.finish(w, err)
		e.record(w, t, n, event.FileCompleted, err)
		done(w)
		return
	}
	g.after(w, func(w *Worker) {
		n, typ, err := e.linkFollower(w, t, g)
		e.record(w, t, n, typ, err)
		done(w)
	})
}

// execute recreates one non-directory entry and records its outcome.
func (e *engine) execute(w *Worker, t CopyTask) {
	var (
		n   int64
		typ event.Type
		err error
	)
	switch t.Type {
	case Regular:
		typ = event.FileCompleted
		n, err = e.copyData(w, t)
	case Symlink:
		typ, err = event.SymlinkCreated, e.copySymlink(w, t)
	case FIFO, Socket, Device:
		typ, err = event.SpecialCreated, e.copySpecial(w, t)
	default:
		err = fserr.Unsupported(t.SrcPath, t.Type.String())
	}
	e.record(w, t, n, typ, err)
}

func (e *engine) record(w *Worker, t CopyTask, n int64, typ event.Type, err error) {
	if err != nil {
		e.fail(w, t, err)
		return
	}
	e.stats.AddSucceeded(1)
	event.Emit(e.cfg.Events, event.Event{
		Type:     typ,
		Path:     t.SrcPath,
		DstPath:  t.DstPath,
		Size:     n,
		WorkerID: w.ID(),
	})
}

func (e *engine) fail(w *Worker, t CopyTask, err error) {
	fe := fserr.New("copy", t.SrcPath, err)
	e.stats.RecordFailure(fe)
	slog.Debug("copy failed", "path", fe.Path, "op", fe.Op, "kind", fe.Kind.String(), "error", fe.Err)
	event.Emit(e.cfg.Events, event.Event{
		Type:     event.Failed,
		Path:     t.SrcPath,
		DstPath:  t.DstPath,
		Error:    fe,
		WorkerID: w.ID(),
	})
}

// checkDst applies the collision policy for a non-directory source. exists
// reports whether a replaceable destination entry is present.
func (e *engine) checkDst(t CopyTask) (exists bool, err error) {
	info, err := os.Lstat(t.DstPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fserr.New("lstat", t.DstPath, err)
	}
	if info.IsDir() {
		return false, fserr.Mismatch(t.DstPath, t.Type.String(), Directory.String())
	}
	if !e.cfg.Overwrite {
		return false, fserr.Exists(t.DstPath)
	}
	return true, nil
}

// clearDst makes room for an entry that cannot be renamed into place.
func (e *engine) clearDst(t CopyTask) error {
	exists, err := e.checkDst(t)
	if err != nil || !exists {
		return err
	}
	if err := os.Remove(t.DstPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fserr.New("remove", t.DstPath, err)
	}
	return nil
}

// linkFollower links t to the leader's destination. It copies independently
// when the leader failed or the link would cross devices.
func (e *engine) linkFollower(w *Worker, t CopyTask, g *linkGroup) (int64, event.Type, error) {
	target, err := g.result()
	if err != nil {
		slog.Debug("hardlink leader failed, copying independently", "path", t.SrcPath, "leader", target)
		n, err := e.copyData(w, t)
		return n, event.FileCompleted, err
	}

	err = e.linkTo(target, t)
	if errors.Is(err, syscall.EXDEV) {
		n, err := e.copyData(w, t)
		return n, event.FileCompleted, err
	}
	if err != nil {
		return 0, event.HardlinkCreated, err
	}
	e.stats.AddHardlinks(1)
	return 0, event.HardlinkCreated, nil
}

func (e *engine) linkTo(target string, t CopyTask) error {
	if err := e.clearDst(t); err != nil {
		return err
	}
	if err := os.Link(target, t.DstPath); err != nil {
		return fserr.New("link", t.DstPath, err)
	}
	return nil
}

// copyData writes a regular file to a temporary sibling of the destination
// and renames it into place once data and metadata are complete.
func (e *engine) copyData(w *Worker, t CopyTask) (int64, error) {
	if _, err := e.checkDst(t); err != nil {
		return 0, err
	}

	// In-flight units are never interrupted, so the slot wait is unbounded.
	if err := e.slots.Acquire(context.Background(), 1); err != nil {
		return 0, err
	}
	e.stats.OpenPair()
	defer func() {
		e.stats.ClosePair()
		e.slots.Release(1)
	}()

	src, err := os.Open(t.SrcPath)
	if err != nil {
		return 0, fserr.New("open", t.SrcPath, err)
	}
	defer src.Close()

	tmpPath := tmpName(t.DstPath)
	e.tmp.add(tmpPath)
	defer func() {
		e.tmp.remove(tmpPath)
		_ = os.Remove(tmpPath) // no-op if rename succeeded
	}()

	dst, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fserr.New("create", t.DstPath, err)
	}

	n, err := e.transfer(src, dst, t)
	if err == nil {
		err = e.preserveFile(w, t, dst)
	}
	if err != nil {
		dst.Close()
		return n, err
	}
	if err := dst.Close(); err != nil {
		return n, fserr.New("close", t.DstPath, err)
	}

	if err := os.Rename(tmpPath, t.DstPath); err != nil {
		return n, fserr.New("rename", t.DstPath, err)
	}
	return n, nil
}

// transfer copies the data extents of src into dst, then anything past the
// expected end. The scanned size is only a hint: procfs files report zero
// and a file may change size after it was scanned, so the open file's size
// is used when available.
func (e *engine) transfer(src, dst *os.File, t CopyTask) (int64, error) {
	size := t.Size
	if fi, err := src.Stat(); err == nil {
		size = fi.Size()
	}

	var total int64
	if size > 0 {
		exts, holes, err := dataExtents(src, size)
		if err != nil {
			return 0, fserr.New("seek", t.SrcPath, err)
		}
		if holes {
			if err := dst.Truncate(size); err != nil {
				return 0, fserr.New("truncate", t.DstPath, err)
			}
		} else if e.cfg.PreallocThreshold > 0 && size >= e.cfg.PreallocThreshold {
			if err := platform.Preallocate(dst, size); err != nil {
				slog.Debug("preallocate failed", "path", t.DstPath, "error", err)
			}
		}

		for _, ext := range exts {
			res, err := platform.CopyFile(platform.CopyFileParams{
				Src:     src,
				Dst:     dst,
				Offset:  ext.Offset,
				Length:  ext.Length,
				Limiter: e.limiter,
			})
			total += e.account(res)
			if err != nil {
				return total, fserr.New("copy", t.SrcPath, fmt.Errorf("%s: %w", res.Method, err))
			}
		}
	}

	res, err := platform.CopyReadWrite(platform.CopyFileParams{
		Src:     src,
		Dst:     dst,
		Offset:  size,
		Length:  math.MaxInt64 - size,
		Limiter: e.limiter,
	})
	if res.BytesWritten > 0 {
		slog.Debug("source grew during copy", "path", t.SrcPath, "size", size, "extra", res.BytesWritten)
	}
	total += e.account(res)
	if err != nil {
		return total, fserr.New("copy", t.SrcPath, fmt.Errorf("%s: %w", res.Method, err))
	}
	return total, nil
}

// account adds one range result to the byte counters.
func (e *engine) account(res platform.CopyResult) int64 {
	e.stats.AddBytesZeroCopy(res.ZeroCopyBytes)
	e.stats.AddBytesBuffered(res.BytesWritten - res.ZeroCopyBytes)
	return res.BytesWritten
}

func (e *engine) copySymlink(w *Worker, t CopyTask) error {
	target, err := os.Readlink(t.SrcPath)
	if err != nil {
		return fserr.New("readlink", t.SrcPath, err)
	}
	if err := e.clearDst(t); err != nil {
		return err
	}
	if err := os.Symlink(target, t.DstPath); err != nil {
		return fserr.New("symlink", t.DstPath, err)
	}
	if err := e.preserveLink(w, t); err != nil {
		return err
	}
	e.stats.AddSymlinks(1)
	return nil
}
