package similarity

import (
	"sync"
	"sync/atomic"

	"github.com/mikebarrdiaz/redistour/internal/feature"
)

// Model bundles a fitted index with the feature matrix it was trained on
// and the content fingerprint of the reference table both derive from.
type Model struct {
	Fingerprint string
	Matrix      *feature.Matrix
	Index       *Index
}

// BuildFunc produces a fresh matrix and index from the current reference
// table. Called outside the cache's fast path, at most once per
// fingerprint change.
type BuildFunc func() (*feature.Matrix, *Index, error)

// Cache keeps the process-wide fitted model keyed by the reference table's
// content fingerprint. Invalidation is pull-based: the fingerprint is
// compared only when a request arrives. The current model is replaced via
// atomic pointer swap, so in-flight readers never observe a partially
// rebuilt index.
type Cache struct {
	mu      sync.Mutex
	current atomic.Pointer[Model]
}

// GetOrBuild returns the cached model when its fingerprint still matches,
// otherwise builds a new one and swaps it in. Concurrent callers for the
// same fingerprint build once; the rest wait and reuse the result.
func (c *Cache) GetOrBuild(fingerprint string, build BuildFunc) (*Model, error) {
	if m := c.current.Load(); m != nil && m.Fingerprint == fingerprint {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have rebuilt while we waited for the lock.
	if m := c.current.Load(); m != nil && m.Fingerprint == fingerprint {
		return m, nil
	}

	matrix, index, err := build()
	if err != nil {
		return nil, err
	}
	m := &Model{Fingerprint: fingerprint, Matrix: matrix, Index: index}
	c.current.Store(m)
	return m, nil
}

// Current returns the cached model without validating its fingerprint, or
// nil when nothing has been built yet.
func (c *Cache) Current() *Model {
	return c.current.Load()
}
