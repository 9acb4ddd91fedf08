package engine

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/fserr"
)

// preserveFile applies ownership, mode and times to an open destination.
// chown runs first because it clears set-id bits.
func (e *engine) preserveFile(w *Worker, t CopyTask, f *os.File) error {
	rawFd := int(f.Fd()) //nolint:gosec // G115: fd conversion is safe for file descriptors

	if e.cfg.PreserveOwner {
		e.ownerResult(w, t, unix.Fchown(rawFd, int(t.UID), int(t.GID)))
	}
	if err := unix.Fchmod(rawFd, unixPerm(t.Mode)); err != nil {
		return fserr.New("chmod", t.DstPath, err)
	}
	if err := setFileTimes(rawFd, f.Name(), t.AccTime, t.ModTime); err != nil {
		return fserr.New("utimes", t.DstPath, err)
	}
	return nil
}

// preservePath applies ownership, mode and times by path. Not for symlinks.
func (e *engine) preservePath(w *Worker, t CopyTask) error {
	if e.cfg.PreserveOwner {
		e.ownerResult(w, t, unix.Lchown(t.DstPath, int(t.UID), int(t.GID)))
	}
	if err := unix.Chmod(t.DstPath, unixPerm(t.Mode)); err != nil {
		return fserr.New("chmod", t.DstPath, err)
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, t.DstPath, timespecs(t), 0); err != nil {
		return fserr.New("utimes", t.DstPath, err)
	}
	return nil
}

// preserveLink applies times and ownership to the link itself.
func (e *engine) preserveLink(w *Worker, t CopyTask) error {
	if e.cfg.PreserveOwner {
		e.ownerResult(w, t, unix.Lchown(t.DstPath, int(t.UID), int(t.GID)))
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, t.DstPath, timespecs(t), unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fserr.New("utimes", t.DstPath, err)
	}
	return nil
}

// finalizeDir applies a directory's metadata once all of its descendants
// are done.
func (e *engine) finalizeDir(w *Worker, t CopyTask) {
	if err := e.preservePath(w, t); err != nil {
		e.fail(w, t, err)
		return
	}
	event.Emit(e.cfg.Events, event.Event{
		Type:     event.DirFinalized,
		Path:     t.SrcPath,
		DstPath:  t.DstPath,
		WorkerID: w.ID(),
	})
}

// ownerResult downgrades an ownership failure to a warning.
func (e *engine) ownerResult(w *Worker, t CopyTask, err error) {
	if err == nil {
		return
	}
	e.stats.AddWarnings(1)
	slog.Debug("preserve ownership", "path", t.DstPath, "uid", t.UID, "gid", t.GID, "error", err)
	event.Emit(e.cfg.Events, event.Event{
		Type:     event.MetadataWarning,
		Path:     t.SrcPath,
		DstPath:  t.DstPath,
		Error:    err,
		WorkerID: w.ID(),
	})
}

func timespecs(t CopyTask) []unix.Timespec {
	return []unix.Timespec{
		unix.NsecToTimespec(t.AccTime.UnixNano()),
		unix.NsecToTimespec(t.ModTime.UnixNano()),
	}
}
