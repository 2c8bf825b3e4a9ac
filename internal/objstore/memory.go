package objstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/arclot/internal/uri"
)

// Memory is an in-process Store.
//
// Thread-safety: Memory is safe for concurrent use; every operation holds
// the mutex, so Move is atomic.
type Memory struct {
	mu      sync.RWMutex
	objects map[uri.Ref][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[uri.Ref][]byte)}
}

var _ Store = (*Memory)(nil)

// Exists implements Store.
func (m *Memory) Exists(_ context.Context, ref uri.Ref) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[ref]
	return ok, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, prefix uri.Ref) ([]uri.Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs []uri.Ref
	for ref := range m.objects {
		if ref.Store == prefix.Store && strings.HasPrefix(ref.Key, prefix.Key) {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, ref uri.Ref) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, ref uri.Ref, data []byte) error {
	if err := validKey(ref); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref] = append([]byte{}, data...)
	return nil
}

// Create implements Store.
func (m *Memory) Create(_ context.Context, ref uri.Ref, data []byte) error {
	if err := validKey(ref); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[ref]; ok {
		return ErrExists
	}
	m.objects[ref] = append([]byte{}, data...)
	return nil
}

// Move implements Store.
func (m *Memory) Move(_ context.Context, src, dst uri.Ref) error {
	if err := validKey(dst); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[src]
	if !ok {
		return ErrNotFound
	}
	if _, taken := m.objects[dst]; taken {
		return ErrExists
	}
	m.objects[dst] = data
	delete(m.objects, src)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, ref uri.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
