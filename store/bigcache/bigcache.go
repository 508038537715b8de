// Package bigcache provides an ephemeral in-process store manager on
// allegro/bigcache. Entries age out after the configured life window, so
// this backend is cache-grade storage: suitable for scratch data a guest
// can recompute, not for data that must survive.
package bigcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/hostfactor/keyvalue"
)

type Config struct {
	// LifeWindow is how long entries live. 0 => 10m.
	LifeWindow time.Duration
	// CleanWindow is the eviction sweep interval. 0 => bigcache default.
	CleanWindow time.Duration
	// HardMaxCacheSizeMB caps memory; 0 = unlimited.
	HardMaxCacheSizeMB int

	// Names is the set of store names this manager defines.
	Names []string
}

// Manager creates one bigcache instance per defined name, lazily on
// first open.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	caches map[string]*bc.BigCache
}

var _ keyvalue.StoreManager = (*Manager)(nil)

func NewManager(cfg Config) *Manager {
	if cfg.LifeWindow <= 0 {
		cfg.LifeWindow = 10 * time.Minute
	}
	return &Manager{cfg: cfg, caches: make(map[string]*bc.BigCache)}
}

func (m *Manager) Get(ctx context.Context, name string) (keyvalue.Store, error) {
	if !m.IsDefined(name) {
		return nil, keyvalue.ErrNoSuchStore
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cache, ok := m.caches[name]
	if !ok {
		conf := bc.DefaultConfig(m.cfg.LifeWindow)
		if m.cfg.CleanWindow > 0 {
			conf.CleanWindow = m.cfg.CleanWindow
		}
		if m.cfg.HardMaxCacheSizeMB > 0 {
			conf.HardMaxCacheSize = m.cfg.HardMaxCacheSizeMB
		}
		var err error
		cache, err = bc.New(ctx, conf)
		if err != nil {
			return nil, keyvalue.Otherf("bigcache init: %v", err)
		}
		m.caches[name] = cache
	}
	return &Store{c: cache}, nil
}

func (m *Manager) IsDefined(name string) bool {
	for _, n := range m.cfg.Names {
		if n == name {
			return true
		}
	}
	return false
}

func (m *Manager) Summary(name string) (string, bool) {
	if !m.IsDefined(name) {
		return "", false
	}
	return fmt.Sprintf("in-process bigcache (ephemeral, life window %s)", m.cfg.LifeWindow), true
}

// Close releases all instantiated caches.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for name, c := range m.caches {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(m.caches, name)
	}
	return first
}

// Store implements the core surface only; bigcache has no transactions
// or counters, so batch/atomic/CAS callers get ErrUnsupported from the
// layers above.
type Store struct {
	c *bc.BigCache
}

var _ keyvalue.Store = (*Store)(nil)

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	return s.c.Set(key, value)
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Store) GetKeys(_ context.Context) ([]string, error) {
	var keys []string
	it := s.c.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			return nil, err
		}
		keys = append(keys, entry.Key())
	}
	return keys, nil
}
