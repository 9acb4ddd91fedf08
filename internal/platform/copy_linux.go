//go:build linux

package platform

import (
	"errors"
	"log/slog"

	"golang.org/x/sys/unix"
)

type zeroCopyStrategy struct {
	copy   func(CopyFileParams) (int64, error)
	method Method
}

var zeroCopyStrategies = []zeroCopyStrategy{
	{method: CopyFileRange, copy: copyFileRange},
	{method: Sendfile, copy: copySendfile},
}

// CopyFile moves the range with the most efficient method available. Each
// zero-copy strategy resumes where the previous one stopped; the buffered
// loop finishes whatever remains.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	var result CopyResult
	if params.Length <= 0 {
		return result, nil
	}

	if params.Limiter == nil {
		for _, s := range zeroCopyStrategies {
			n, err := s.copy(params)
			result.BytesWritten += n
			result.ZeroCopyBytes += n
			params.Offset += n
			params.Length -= n
			if err == nil {
				result.Method = s.method
				return result, nil
			}
			if !isFallbackErr(err) {
				result.Method = s.method
				return result, err
			}
			slog.Debug("zero-copy fallback",
				"method", s.method.String(),
				"file", params.Src.Name(),
				"offset", params.Offset,
				"error", err,
			)
		}
	}

	n, err := copyReadWrite(params)
	result.BytesWritten += n
	result.Method = ReadWrite
	return result, err
}

// copyFileRange returns nil once the range is done or the source hit EOF.
func copyFileRange(params CopyFileParams) (int64, error) {
	srcFd := int(params.Src.Fd())
	dstFd := int(params.Dst.Fd())
	roff := params.Offset
	woff := params.Offset
	remaining := params.Length

	var total int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(srcFd, &roff, dstFd, &woff, int(min(remaining, maxChunk)), 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return total, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}
	return total, nil
}

func copySendfile(params CopyFileParams) (int64, error) {
	// sendfile writes at the destination's file position.
	if _, err := params.Dst.Seek(params.Offset, 0); err != nil {
		return 0, err
	}

	srcFd := int(params.Src.Fd())
	dstFd := int(params.Dst.Fd())
	offset := params.Offset
	remaining := params.Length

	var total int64
	for remaining > 0 {
		n, err := unix.Sendfile(dstFd, srcFd, &offset, int(min(remaining, maxChunk)))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return total, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}
	return total, nil
}
