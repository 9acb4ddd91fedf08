package engine

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/fserr"
)

// dirNode is one directory whose children are still outstanding. Its
// metadata is applied when the last child completes.
type dirNode struct {
	parent  *dirNode
	task    CopyTask
	pending atomic.Int64
}

// walkRoot classifies a source root and dispatches it.
func (e *engine) walkRoot(w *Worker, p Pair) {
	info, err := os.Lstat(p.Src)
	if err == nil && e.cfg.FollowRootSymlink && info.Mode()&fs.ModeSymlink != 0 {
		info, err = os.Stat(p.Src)
	}
	if err != nil {
		e.fail(w, CopyTask{SrcPath: p.Src, DstPath: p.Dst}, fserr.New("lstat", p.Src, err))
		return
	}

	task := newTask(p.Src, p.Dst, info)
	if task.Type == Directory {
		e.descend(w, &dirNode{task: task})
		return
	}
	e.dispatch(w, task, func(*Worker) {})
}

// visit stats one child discovered by a directory scan and dispatches it.
// The entry may have changed type or vanished since the scan.
func (e *engine) visit(w *Worker, parent *dirNode, src, dst string) {
	info, err := os.Lstat(src)
	if err != nil {
		e.fail(w, CopyTask{SrcPath: src, DstPath: dst}, fserr.New("lstat", src, err))
		e.childDone(w, parent)
		return
	}

	task := newTask(src, dst, info)
	if task.Type == Directory {
		e.descend(w, &dirNode{task: task, parent: parent})
		return
	}
	e.dispatch(w, task, func(w *Worker) { e.childDone(w, parent) })
}

// descend creates the destination directory for n, then schedules one unit
// per child. Children are never scheduled before the directory exists.
func (e *engine) descend(w *Worker, n *dirNode) {
	created, err := e.makeDir(n.task)
	if err != nil {
		e.fail(w, n.task, err)
		e.childDone(w, n.parent)
		return
	}
	if created {
		e.stats.AddDirsCreated(1)
		event.Emit(e.cfg.Events, event.Event{
			Type:     event.DirCreated,
			Path:     n.task.SrcPath,
			DstPath:  n.task.DstPath,
			WorkerID: w.ID(),
		})
	}

	entries, err := os.ReadDir(n.task.SrcPath)
	if err != nil {
		// os.ReadDir may return a partial listing; no child is scheduled from
		// a directory that could not be read completely.
		e.fail(w, n.task, fserr.New("readdir", n.task.SrcPath, err))
		entries = nil
	}

	// The extra count keeps n open until every child has been scheduled.
	n.pending.Store(int64(len(entries)) + 1)
	for _, ent := range entries {
		src := filepath.Join(n.task.SrcPath, ent.Name())
		dst := filepath.Join(n.task.DstPath, ent.Name())
		w.Spawn(func(w *Worker) { e.visit(w, n, src, dst) })
	}
	e.childDone(w, n)
}

// childDone records the completion of one child of n and finalizes every
// ancestor whose last child this was.
func (e *engine) childDone(w *Worker, n *dirNode) {
	for n != nil && n.pending.Add(-1) == 0 {
		e.finalizeDir(w, n.task)
		n = n.parent
	}
}

// makeDir applies the collision policy for a directory source. created is
// false when an existing directory is merged into.
func (e *engine) makeDir(t CopyTask) (created bool, err error) {
	err = os.Mkdir(t.DstPath, dirCreateMode(t.Mode))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return false, fserr.New("mkdir", t.DstPath, err)
	}

	info, err := os.Lstat(t.DstPath)
	if err != nil {
		return false, fserr.New("lstat", t.DstPath, err)
	}
	if !info.IsDir() {
		return false, fserr.Mismatch(t.DstPath, Directory.String(), classify(info.Mode()).String())
	}
	if info.Mode().Perm()&0o700 != 0o700 {
		if err := os.Chmod(t.DstPath, info.Mode().Perm()|0o700); err != nil {
			return false, fserr.New("chmod", t.DstPath, err)
		}
	}
	slog.Debug("merging into existing directory", "path", t.DstPath)
	return false, nil
}

// dirCreateMode keeps the owner able to populate the directory until its
// real mode is applied.
func dirCreateMode(mode fs.FileMode) fs.FileMode {
	return mode.Perm() | 0o700
}
