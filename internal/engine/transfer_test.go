package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fcp/internal/stats"
)

func openTransferPair(t *testing.T, data []byte) (src, dst *os.File, dstPath string) {
	t.Helper()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath = filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(srcPath, data, 0o644))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	dst, err = os.Create(dstPath)
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })
	return src, dst, dstPath
}

func TestTransferReadsPastScannedSize(t *testing.T) {
	tests := []struct {
		name    string
		scanned int64
	}{
		{"grew after scan", 4},
		{"size reported as zero", 0},
		{"exact", 26},
	}
	data := []byte("abcdefghijklmnopqrstuvwxyz")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst, dstPath := openTransferPair(t, data)
			e := &engine{stats: stats.NewCollector(0), cfg: DefaultConfig()}

			n, err := e.transfer(src, dst, CopyTask{SrcPath: src.Name(), DstPath: dstPath, Size: tt.scanned})
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), n)
			assert.Equal(t, int64(len(data)), e.stats.Snapshot().Bytes())

			got, err := os.ReadFile(dstPath)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestTransferShrunkAfterScan(t *testing.T) {
	data := []byte("short")
	src, dst, dstPath := openTransferPair(t, data)
	e := &engine{stats: stats.NewCollector(0), cfg: DefaultConfig()}

	n, err := e.transfer(src, dst, CopyTask{SrcPath: src.Name(), DstPath: dstPath, Size: 4096})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
