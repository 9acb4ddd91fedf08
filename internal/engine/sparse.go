package engine

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// extent is a contiguous data region of a file.
type extent struct {
	Offset int64
	Length int64
}

// dataExtents walks SEEK_DATA/SEEK_HOLE to map the data regions of f within
// its first size bytes. holes reports whether anything in that range is
// unallocated. Filesystems without SEEK_DATA report one extent covering the
// whole file.
//
//nolint:revive // cognitive-complexity: SEEK_DATA/SEEK_HOLE state machine with error recovery
func dataExtents(f *os.File, size int64) (exts []extent, holes bool, err error) {
	if size == 0 {
		return nil, false, nil
	}

	rawFd := int(f.Fd()) //nolint:gosec // G115: fd conversion is safe for file descriptors
	offset := int64(0)

	for offset < size {
		dataStart, err := unix.Seek(rawFd, offset, unix.SEEK_DATA)
		if err != nil {
			if errors.Is(err, unix.ENXIO) {
				// Rest of file is a hole.
				break
			}
			if unsupportedSeek(err) {
				return wholeFile(size), false, nil
			}
			return nil, false, err
		}
		if dataStart >= size {
			break
		}

		holeStart, err := unix.Seek(rawFd, dataStart, unix.SEEK_HOLE)
		if err != nil {
			switch {
			case errors.Is(err, unix.ENXIO):
				holeStart = size
			case unsupportedSeek(err):
				return wholeFile(size), false, nil
			default:
				return nil, false, err
			}
		}
		holeStart = min(holeStart, size)

		exts = append(exts, extent{Offset: dataStart, Length: holeStart - dataStart})
		offset = holeStart
	}

	holes = len(exts) != 1 || exts[0].Offset != 0 || exts[0].Length != size
	return exts, holes, nil
}

func wholeFile(size int64) []extent {
	return []extent{{Offset: 0, Length: size}}
}

func unsupportedSeek(err error) bool {
	return errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EOPNOTSUPP)
}
