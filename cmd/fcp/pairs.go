package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bamsammich/fcp/internal/engine"
)

// resolvePairs maps command-line operands to root copy pairs. A single
// source copied onto a path that is not an existing directory becomes that
// path; otherwise every source lands in dst under its own base name.
func resolvePairs(sources []string, dst string) ([]engine.Pair, error) {
	if len(sources) == 0 {
		return nil, errors.New("missing source operand")
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dst, err)
	}

	dstIsDir := false
	if fi, err := os.Stat(absDst); err == nil && fi.IsDir() {
		dstIsDir = true
	}
	if len(sources) > 1 && !dstIsDir {
		return nil, fmt.Errorf("target %s is not a directory", dst)
	}

	pairs := make([]engine.Pair, 0, len(sources))
	for _, src := range sources {
		absSrc, err := filepath.Abs(src)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", src, err)
		}
		target := absDst
		if dstIsDir {
			target = filepath.Join(absDst, filepath.Base(absSrc))
		}
		if within(absSrc, target) {
			return nil, fmt.Errorf("cannot copy %s into itself (%s)", src, target)
		}
		pairs = append(pairs, engine.Pair{Src: absSrc, Dst: target})
	}
	return pairs, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
