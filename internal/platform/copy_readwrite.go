package platform

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

const bufferSize = 1 << 20 // 1 MiB

// maxChunk caps a single kernel transfer call.
const maxChunk = 1 << 30

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyReadWrite copies the range using pread/pwrite with a pooled buffer.
func copyReadWrite(params CopyFileParams) (int64, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	chunk := bufferSize
	if params.Limiter != nil {
		chunk = min(chunk, params.Limiter.Burst())
	}

	srcFd := int(params.Src.Fd())
	dstFd := int(params.Dst.Fd())
	offset := params.Offset
	remaining := params.Length

	var total int64
	for remaining > 0 {
		toRead := int(min(remaining, int64(chunk)))
		n, err := unix.Pread(srcFd, buf[:toRead], offset)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return total, err
		}
		if n == 0 {
			break
		}

		if params.Limiter != nil {
			// In-flight transfers are never cancelled.
			if err := params.Limiter.WaitN(context.Background(), n); err != nil {
				return total, err
			}
		}

		written := 0
		for written < n {
			w, err := unix.Pwrite(dstFd, buf[written:n], offset+int64(written))
			if err != nil {
				if errors.Is(err, unix.EINTR) {
					continue
				}
				return total + int64(written), err
			}
			written += w
		}
		offset += int64(n)
		remaining -= int64(n)
		total += int64(n)
	}
	return total, nil
}

// CopyReadWrite runs only the buffered loop. It stops at end of file, so a
// Length past the end copies whatever the source currently holds.
func CopyReadWrite(params CopyFileParams) (CopyResult, error) {
	n, err := copyReadWrite(params)
	return CopyResult{BytesWritten: n, Method: ReadWrite}, err
}

// isFallbackErr reports whether a failed zero-copy attempt should be retried
// with the next strategy. Running out of space fails the same way everywhere.
func isFallbackErr(err error) bool {
	return !errors.Is(err, unix.ENOSPC) && !errors.Is(err, unix.EDQUOT)
}
