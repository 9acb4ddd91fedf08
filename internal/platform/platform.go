package platform

import (
	"os"

	"golang.org/x/time/rate"
)

// Method identifies the transfer strategy that moved the bytes.
type Method int

const (
	ReadWrite Method = iota
	CopyFileRange
	Sendfile
)

var methodNames = [...]string{
	ReadWrite:     "read/write",
	CopyFileRange: "copy_file_range",
	Sendfile:      "sendfile",
}

func (m Method) String() string {
	if m >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "unknown"
}

// CopyFileParams describes one range transfer between two open files. The
// range starts at Offset in both files.
type CopyFileParams struct {
	Src     *os.File
	Dst     *os.File
	Limiter *rate.Limiter // non-nil forces the throttled read/write loop
	Offset  int64
	Length  int64
}

// CopyResult reports how many bytes moved and by which method. A range that
// fell back part way has ZeroCopyBytes < BytesWritten.
type CopyResult struct {
	BytesWritten  int64
	ZeroCopyBytes int64
	Method        Method // strategy that finished the range
}
