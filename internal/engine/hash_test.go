package engine

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/bamsammich/fcp/internal/fserr"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	h1, err := HashFile(write("a", "hello world"))
	require.NoError(t, err)
	h2, err := HashFile(write("b", "hello world"))
	require.NoError(t, err)
	h3, err := HashFile(write("c", "different content"))
	require.NoError(t, err)

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestHashFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", h)
}

func TestHashFileNotExist(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	var fe *fserr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fserr.NotFound, fe.Kind)
}

func TestHashPathSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big")
	data := make([]byte, 3*hashBufferSize+5)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	d, err := hashPath(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), d.size)

	sum := blake3.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), d.sum)
}
