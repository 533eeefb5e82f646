package storage

import (
	"sync"

	"github.com/pkg/errors"
)

// MemoryProviderOpts configures a MemoryProvider. It is empty today but
// follows the options-struct convention used elsewhere for read/write
// options (e.g. WriteOpts, GenerateReadShardsOpts) so a future knob
// (eviction, size limits) doesn't require an API break.
type MemoryProviderOpts struct{}

// MemoryProvider is an in-memory Provider, the sole concrete storage
// backend this module ships. A mutex-guarded map stands in for a
// GIL-guarded dict; bulk operations fan out over goroutines and a
// sync.WaitGroup instead of a thread pool.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider(Opts MemoryProviderOpts) *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

// Get implements Provider.
func (p *MemoryProvider) Get(path string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[path]
	if !ok {
		return nil, notFound(path)
	}
	// Return a copy so callers can't mutate our backing storage.
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put implements Provider.
func (p *MemoryProvider) Put(path string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[path] = v
	return nil
}

// Delete implements Provider.
func (p *MemoryProvider) Delete(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.data[path]; !ok {
		return notFound(path)
	}
	delete(p.data, path)
	return nil
}

// Iter implements Provider.
func (p *MemoryProvider) Iter() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	paths := make([]string, 0, len(p.data))
	for k := range p.data {
		paths = append(paths, k)
	}
	return paths
}

// Len implements Provider.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data)
}

// MGet implements Provider. Entries are fetched concurrently, mirroring the
// ThreadPool().map() fan-out in the Python original.
func (p *MemoryProvider) MGet(paths []string) ([][]byte, error) {
	out := make([][]byte, len(paths))
	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			v, err := p.Get(path)
			out[i] = v
			errs[i] = err
		}(i, path)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MPut implements Provider.
func (p *MemoryProvider) MPut(paths []string, values [][]byte) error {
	if len(paths) != len(values) {
		return errors.Errorf("MPut: len(paths)=%d != len(values)=%d", len(paths), len(values))
	}
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(path string, value []byte) {
			defer wg.Done()
			_ = p.Put(path, value)
		}(path, values[i])
	}
	wg.Wait()
	return nil
}
