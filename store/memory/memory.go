// Package memory provides an in-process, map-backed store manager. Data
// lives for the life of the manager and is lost on restart. It implements
// the full extension surface (batch, atomic increment, compare-and-swap)
// and is the reference backend for tests.
package memory

import (
	"bytes"
	"context"
	"strconv"
	"sync"

	"github.com/hostfactor/keyvalue"
)

// Manager defines a fixed set of store names at construction. Get returns
// the same shared Store for a given name on every call, so separately
// opened handles see one underlying dataset (each with its own cache when
// wrapped by a CachingStoreManager).
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
}

var _ keyvalue.StoreManager = (*Manager)(nil)

func NewManager(names ...string) *Manager {
	stores := make(map[string]*Store, len(names))
	for _, name := range names {
		stores[name] = NewStore()
	}
	return &Manager{stores: stores}
}

func (m *Manager) Get(_ context.Context, name string) (keyvalue.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[name]
	if !ok {
		return nil, keyvalue.ErrNoSuchStore
	}
	return s, nil
}

func (m *Manager) IsDefined(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stores[name]
	return ok
}

func (m *Manager) Summary(name string) (string, bool) {
	if !m.IsDefined(name) {
		return "", false
	}
	return "in-memory store", true
}

// Store is a concurrency-safe map of keys to byte values.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ keyvalue.Store       = (*Store)(nil)
	_ keyvalue.BatchStore  = (*Store)(nil)
	_ keyvalue.AtomicStore = (*Store)(nil)
	_ keyvalue.CasStore    = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *Store) GetKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			c := make([]byte, len(v))
			copy(c, v)
			out[k] = c
		}
	}
	return out, nil
}

func (s *Store) SetMany(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		c := make([]byte, len(v))
		copy(c, v)
		s.data[k] = c
	}
	return nil
}

func (s *Store) DeleteMany(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Increment(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if v, ok := s.data[key]; ok {
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, keyvalue.Otherf("increment %q: not an integer", key)
		}
		n = parsed
	}
	n += delta
	s.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (s *Store) NewCompareAndSwap(_ context.Context, key string) (keyvalue.Cas, error) {
	return &cas{store: s, key: key}, nil
}

// cas snapshots the observed value on Current and swaps only if the
// stored value is still byte-identical at Swap time. Until Current is
// called, the session observes "absent".
type cas struct {
	store *Store
	key   string

	mu       sync.Mutex
	observed []byte
	seen     bool
}

func (c *cas) Current(_ context.Context) ([]byte, bool, error) {
	c.store.mu.RLock()
	v, ok := c.store.data[c.key]
	c.store.mu.RUnlock()

	c.mu.Lock()
	if ok {
		c.observed = make([]byte, len(v))
		copy(c.observed, v)
		c.seen = true
	} else {
		c.observed = nil
		c.seen = false
	}
	c.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (c *cas) Swap(_ context.Context, value []byte) error {
	c.mu.Lock()
	observed, seen := c.observed, c.seen
	c.mu.Unlock()

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	current, ok := c.store.data[c.key]
	if ok != seen || (ok && !bytes.Equal(current, observed)) {
		return keyvalue.ErrCasMismatch
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.store.data[c.key] = v
	return nil
}
