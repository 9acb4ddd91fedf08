package engine_test

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fcp/internal/engine"
	"github.com/bamsammich/fcp/internal/event"
)

// createTestTree populates root with a standard test tree:
//
//	root.txt           (17 bytes)
//	big.bin            (320KB)
//	empty              (0 bytes)
//	sub/mid.txt        (19 bytes, mode 0600)
//	sub/deep/leaf.txt  (17 bytes)
//	link.txt           → root.txt (symlink)
//	sub/up             → ../shared/x (dangling symlink)
//	ro/                (mode 0555, holds ro/inner.txt)
//
// Every entry gets a fixed mtime in the past.
func createTestTree(t *testing.T, root string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ro"), 0o755))

	writeFile(t, filepath.Join(root, "root.txt"), []byte("root file content"), 0o644)
	writeFile(t, filepath.Join(root, "big.bin"), bytes.Repeat([]byte("ABCDEFGHIJKLMNOP"), 20000), 0o644)
	writeFile(t, filepath.Join(root, "empty"), nil, 0o644)
	writeFile(t, filepath.Join(root, "sub", "mid.txt"), []byte("middle file content"), 0o600)
	writeFile(t, filepath.Join(root, "sub", "deep", "leaf.txt"), []byte("leaf file content"), 0o644)
	writeFile(t, filepath.Join(root, "ro", "inner.txt"), []byte("inside read-only dir"), 0o444)

	require.NoError(t, os.Symlink("root.txt", filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink("../shared/x", filepath.Join(root, "sub", "up")))

	past := time.Date(2020, 3, 14, 15, 9, 26, 535897932, time.UTC)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.Type()&fs.ModeSymlink != 0 {
			return err
		}
		return os.Chtimes(path, past, past)
	})
	require.NoError(t, err)
	require.NoError(t, os.Chmod(filepath.Join(root, "ro"), 0o555))
	makeRemovable(t, root)
}

func writeFile(t *testing.T, path string, data []byte, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, perm))
	require.NoError(t, os.Chmod(path, perm))
}

// makeRemovable restores owner write permission on every directory under
// root before t.TempDir cleanup runs.
func makeRemovable(t *testing.T, root string) {
	t.Helper()
	t.Cleanup(func() {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				_ = os.Chmod(path, 0o755)
			}
			return nil
		})
	})
}

// assertSameTree checks that dst mirrors src: same entries and types,
// byte-identical regular files, identical link text, permission bits and
// modification times.
func assertSameTree(t *testing.T, src, dst string) {
	t.Helper()

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		require.NoError(t, err)
		dstPath := filepath.Join(dst, rel)

		srcInfo, err := os.Lstat(path)
		require.NoError(t, err)
		dstInfo, err := os.Lstat(dstPath)
		require.NoError(t, err, "missing in destination: %s", rel)

		assert.Equal(t, srcInfo.Mode().Type(), dstInfo.Mode().Type(), "type: %s", rel)

		switch {
		case srcInfo.Mode()&fs.ModeSymlink != 0:
			srcTarget, err := os.Readlink(path)
			require.NoError(t, err)
			dstTarget, err := os.Readlink(dstPath)
			require.NoError(t, err)
			assert.Equal(t, srcTarget, dstTarget, "link text: %s", rel)
			return nil
		case srcInfo.Mode().IsRegular():
			srcData, err := os.ReadFile(path)
			require.NoError(t, err)
			dstData, err := os.ReadFile(dstPath)
			require.NoError(t, err)
			assert.Equal(t, srcData, dstData, "content: %s", rel)
		}

		assert.Equal(t, srcInfo.Mode().Perm(), dstInfo.Mode().Perm(), "mode: %s", rel)
		assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()),
			"mtime %s: src %v dst %v", rel, srcInfo.ModTime(), dstInfo.ModTime())
		return nil
	})
	require.NoError(t, err)
}

// countEntries returns the number of non-directory entries under root.
func countEntries(t *testing.T, root string) int64 {
	t.Helper()
	var n int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

// runCopy copies src to dst with cfg and returns the result.
func runCopy(t *testing.T, src, dst string, cfg engine.Config) engine.Result {
	t.Helper()
	makeRemovable(t, dst)
	return engine.Run(context.Background(), []engine.Pair{{Src: src, Dst: dst}}, cfg)
}

// collectEvents creates a buffered event channel that records all events.
// Returns the channel for engine.Config and a function to retrieve collected
// events. The getter closes the channel and waits for the drain goroutine,
// so it is safe to read the slice. It may be called at most once. If the
// getter is never called, t.Cleanup closes the channel on test exit.
func collectEvents(t *testing.T) (chan<- event.Event, func() []event.Event) {
	t.Helper()
	ch := make(chan event.Event, 4096)
	var collected []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			collected = append(collected, ev)
		}
	}()
	var once sync.Once
	drain := func() {
		once.Do(func() { close(ch) })
		<-done
	}
	t.Cleanup(drain)
	return ch, func() []event.Event {
		drain()
		return collected
	}
}

// findTmpFiles returns any .fcp-tmp files found under root.
func findTmpFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(d.Name(), ".fcp-tmp") {
			found = append(found, path)
		}
		return nil
	})
	require.NoError(t, err)
	return found
}

// createHardlinkTree populates root with files that include hardlinks:
//
//	original.txt    (21 bytes)
//	hardlink.txt    → hardlink to original.txt
//	sub/third.txt   → hardlink to original.txt
//	sub/another.txt (23 bytes)
func createHardlinkTree(t *testing.T, root string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	writeFile(t, filepath.Join(root, "original.txt"), []byte("original file content"), 0o644)
	require.NoError(t, os.Link(filepath.Join(root, "original.txt"), filepath.Join(root, "hardlink.txt")))
	require.NoError(t, os.Link(filepath.Join(root, "original.txt"), filepath.Join(root, "sub", "third.txt")))
	writeFile(t, filepath.Join(root, "sub", "another.txt"), []byte("another file, different"), 0o644)
}

// createSparseFile creates a file at path with two data regions separated by a
// hole. Layout: [dataSize bytes of 'A'] [holeSize gap] [dataSize bytes of 'B'].
// Returns the apparent file size (2*dataSize + holeSize).
func createSparseFile(t *testing.T, path string, dataSize, holeSize int64) int64 {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(bytes.Repeat([]byte("A"), int(dataSize)))
	require.NoError(t, err)
	_, err = f.Seek(dataSize+holeSize, 0)
	require.NoError(t, err)
	_, err = f.Write(bytes.Repeat([]byte("B"), int(dataSize)))
	require.NoError(t, err)

	return 2*dataSize + holeSize
}
