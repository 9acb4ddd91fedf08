package engine

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/bamsammich/fcp/internal/fserr"
)

// copySpecial recreates a FIFO, socket or device node. No data is transferred.
func (e *engine) copySpecial(w *Worker, t CopyTask) error {
	if err := e.clearDst(t); err != nil {
		return err
	}

	perm := unixPerm(t.Mode)
	var err error
	switch t.Type {
	case FIFO:
		err = unix.Mkfifo(t.DstPath, perm)
	case Socket:
		err = unix.Mknod(t.DstPath, unix.S_IFSOCK|perm, 0)
	case Device:
		typ := uint32(unix.S_IFBLK)
		if t.Mode&os.ModeCharDevice != 0 {
			typ = unix.S_IFCHR
		}
		err = unix.Mknod(t.DstPath, typ|perm, int(t.Rdev)) //nolint:gosec // G115: dev_t round-trips through int
	default:
		return fserr.Unsupported(t.SrcPath, t.Type.String())
	}
	if err != nil {
		return fserr.New("mknod", t.DstPath, err)
	}

	// The umask applied at creation; set the exact mode now.
	if err := e.preservePath(w, t); err != nil {
		return err
	}
	e.stats.AddSpecials(1)
	return nil
}
