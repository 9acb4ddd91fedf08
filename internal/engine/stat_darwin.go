//go:build darwin

package engine

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func atimeFromStat(stat *syscall.Stat_t) time.Time {
	return time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec)
}

func devFromStat(stat *syscall.Stat_t) uint64 {
	return uint64(stat.Dev) //nolint:gosec // G115: dev_t is int32 on darwin, always non-negative
}

func rdevFromStat(stat *syscall.Stat_t) uint64 {
	return uint64(uint32(stat.Rdev)) //nolint:gosec // G115: keep the raw dev_t bits
}

func nlinkFromStat(stat *syscall.Stat_t) uint64 {
	return uint64(stat.Nlink)
}

// setFileTimes sets atime and mtime on a file by path.
// Darwin lacks AT_EMPTY_PATH, so we always use path-based utimensat.
func setFileTimes(_ int, fdPath string, accTime, modTime time.Time) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(accTime.UnixNano()),
		unix.NsecToTimespec(modTime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, fdPath, times, 0); err != nil {
		return fmt.Errorf("utimensat: %w", err)
	}
	return nil
}
