package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const tmpSuffix = ".fcp-tmp"

// tmpRegistry tracks in-progress temporary files of one run so that any left
// behind can be removed when the run ends.
type tmpRegistry struct {
	paths map[string]struct{}
	mu    sync.Mutex
}

// tmpName returns a hidden, unique sibling of dst.
func tmpName(dst string) string {
	base := filepath.Base(dst)
	if len(base) > 200 {
		base = base[:200]
	}
	return filepath.Join(filepath.Dir(dst), fmt.Sprintf(".%s.%s%s", base, uuid.New().String()[:8], tmpSuffix))
}

func (r *tmpRegistry) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *tmpRegistry) remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

// cleanup removes every registered temporary file.
func (r *tmpRegistry) cleanup() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = nil
	r.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
