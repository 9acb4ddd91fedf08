package engine

import (
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bamsammich/fcp/internal/fserr"
)

const hashBufferSize = 1 << 20

var hashBufs = sync.Pool{
	New: func() any {
		b := make([]byte, hashBufferSize)
		return &b
	},
}

// digest is a hex BLAKE3 sum and the number of bytes it covers.
type digest struct {
	sum  string
	size int64
}

// HashFile returns the hex-encoded BLAKE3 digest of the file at path. Holes
// in sparse files hash as zeros.
func HashFile(path string) (string, error) {
	d, err := hashPath(path)
	return d.sum, err
}

func hashPath(path string) (digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return digest{}, fserr.New("open", path, err)
	}
	defer f.Close()

	bufp := hashBufs.Get().(*[]byte) //nolint:forcetypeassert // pool only holds *[]byte
	defer hashBufs.Put(bufp)

	h := blake3.New()
	// Hide f's WriterTo so the pooled buffer is used.
	n, err := io.CopyBuffer(h, struct{ io.Reader }{f}, *bufp)
	if err != nil {
		return digest{}, fserr.New("read", path, err)
	}
	return digest{sum: hex.EncodeToString(h.Sum(nil)), size: n}, nil
}
