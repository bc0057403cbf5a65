package data

import (
	"sync"
	"sync/atomic"

	"github.com/luma-ml/luma/internal/tensor"
)

// Lazy defers reading a dataset until its first use.
// The load runs once; its result or error is kept for every later call.
type Lazy struct {
	once   sync.Once
	loadFn func() (*InMemory, error)
	ds     *InMemory
	err    error
	loaded atomic.Bool
}

var _ Dataset = (*Lazy)(nil)

// NewLazy returns a dataset that calls load on first access.
func NewLazy(load func() (*InMemory, error)) *Lazy {
	return &Lazy{loadFn: load}
}

func (l *Lazy) load() (*InMemory, error) {
	l.once.Do(func() {
		l.ds, l.err = l.loadFn()
		l.loadFn = nil
		l.loaded.Store(true)
	})
	return l.ds, l.err
}

// Loaded reports whether the underlying data has been read.
func (l *Lazy) Loaded() bool {
	return l.loaded.Load()
}

// Err forces the load and returns its error.
func (l *Lazy) Err() error {
	_, err := l.load()
	return err
}

// Size implements Dataset. It is 0 when loading failed.
func (l *Lazy) Size() int {
	ds, err := l.load()
	if err != nil {
		return 0
	}
	return ds.Size()
}

// FeatureCount implements Dataset. It is 0 when loading failed.
func (l *Lazy) FeatureCount() int {
	ds, err := l.load()
	if err != nil {
		return 0
	}
	return ds.FeatureCount()
}

// GetBatch implements Dataset.
func (l *Lazy) GetBatch(start, n int) (*tensor.Tensor, *tensor.Tensor, error) {
	ds, err := l.load()
	if err != nil {
		return nil, nil, err
	}
	return ds.GetBatch(start, n)
}
