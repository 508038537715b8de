package keyvalue

import (
	"context"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is the per-store bound on cached entries.
const DefaultCacheCapacity = 256

// CachingStoreManager wraps each Store produced by an inner StoreManager
// in a bounded, asynchronous write-behind cache.
//
// This serves two purposes: it makes guest-visible operations return as
// fast as a cache hit even when the backend is slow or distant, and it
// deliberately relaxes the consistency model so guests cannot come to
// depend on the synchronous behavior of whichever backend happens to be
// configured today.
//
// The model is "read-your-writes" within one cached Store instance:
// a value is readable as soon as it is written, as long as the read hits
// the same cache as the write. Reads and writes through separately opened
// stores are not ordered relative to each other, even for the same
// backend and key; a cached tuple is never refreshed from the backend
// once resident, since each cache lives only as long as its handle.
//
// Because writes are acknowledged before the backend task runs,
// durability is not guaranteed: an I/O error can surface after Set or
// Delete has already returned. Such a deferred failure is reported by the
// next operation on the same store that flushes the chain; if the store
// is dropped first, the failure is lost. Callers that need a durability
// signal should call Flush (or close through a Dispatch configured with
// FlushOnClose).
type CachingStoreManager struct {
	capacity int
	inner    StoreManager
	log      Logger
}

var _ StoreManager = (*CachingStoreManager)(nil)

func NewCachingStoreManager(inner StoreManager) *CachingStoreManager {
	return NewCachingStoreManagerWithCapacity(DefaultCacheCapacity, inner)
}

func NewCachingStoreManagerWithCapacity(capacity int, inner StoreManager) *CachingStoreManager {
	return &CachingStoreManager{
		capacity: coalesce(capacity, DefaultCacheCapacity),
		inner:    inner,
		log:      NopLogger{},
	}
}

// SetLogger installs a logger for deferred-write failures. Call before
// the manager produces stores.
func (m *CachingStoreManager) SetLogger(log Logger) {
	m.log = coalesce[Logger](log, NopLogger{})
}

// Get resolves name through the inner manager and wraps the result in a
// fresh cache. Every call produces an independent cache, even for the
// same name: no cache state is ever shared between two Store instances.
func (m *CachingStoreManager) Get(ctx context.Context, name string) (Store, error) {
	inner, err := m.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, cacheEntry](m.capacity)
	if err != nil {
		return nil, Otherf("cache init: %v", err)
	}
	return &cachingStore{inner: inner, cache: cache, log: m.log}, nil
}

func (m *CachingStoreManager) IsDefined(name string) bool { return m.inner.IsDefined(name) }

func (m *CachingStoreManager) Summary(name string) (string, bool) { return m.inner.Summary(name) }

// cacheEntry distinguishes a cached value from a tombstone. A tombstone
// (present=false) means "known to be deleted", not "unknown"; unknown
// keys are simply absent from the LRU.
type cacheEntry struct {
	value   []byte
	present bool
}

// cachingStore serializes all guest-visible calls on one handle through
// mu, held for the full call including any flush wait. Backend writes run
// on detached goroutines chained through buffered channels: each write
// waits for its predecessor, so at most one write executes at a time and
// writes land in submission order. Only the chain tail is retained; a
// link's result channel is consumed either by its successor or by flush.
type cachingStore struct {
	inner Store
	log   Logger

	mu    sync.Mutex
	cache *lru.Cache[string, cacheEntry]
	tail  chan error
}

var (
	_ Store   = (*cachingStore)(nil)
	_ Flusher = (*cachingStore)(nil)
)

// enqueue schedules fn behind any pending writes. If a predecessor
// failed, fn is skipped and the failure propagates down the chain until a
// flush observes it. The backend task is detached from the caller's
// cancellation. Callers must hold mu.
func (s *cachingStore) enqueue(ctx context.Context, op string, fn func(context.Context) error) {
	prev := s.tail
	done := make(chan error, 1)
	s.tail = done

	ctx = context.WithoutCancel(ctx)
	go func() {
		if prev != nil {
			if err := <-prev; err != nil {
				done <- err
				return
			}
		}
		err := fn(ctx)
		if err != nil {
			s.log.Warn("deferred write failed", Fields{"op": op, "err": err})
		}
		done <- err
	}()
}

// flush drains the pending-write chain, returning the first failure in
// it. Callers must hold mu.
func (s *cachingStore) flush() error {
	if s.tail == nil {
		return nil
	}
	err := <-s.tail
	s.tail = nil
	if err != nil {
		return &StoreError{Msg: "deferred write failed", Err: err}
	}
	return nil
}

// Flush waits for every previously submitted write to reach the backend.
func (s *cachingStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *cachingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.cache.Get(key); ok {
		if !e.present {
			return nil, false, nil
		}
		return slices.Clone(e.value), true, nil
	}

	// Miss. Flush outstanding writes before reading from the backend: the
	// LRU may already have evicted the entry for a write still in flight,
	// and reading around that write would break read-your-writes.
	if err := s.flush(); err != nil {
		return nil, false, err
	}

	value, ok, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(key, cacheEntry{value: slices.Clone(value), present: ok})
	return value, ok, nil
}

func (s *cachingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cache first so the write is immediately readable, then chain the
	// backend write. Returns without waiting for the backend.
	v := slices.Clone(value)
	s.cache.Add(key, cacheEntry{value: v, present: true})

	inner := s.inner
	s.enqueue(ctx, "set", func(ctx context.Context) error {
		return inner.Set(ctx, key, v)
	})
	return nil
}

func (s *cachingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(key, cacheEntry{})

	inner := s.inner
	s.enqueue(ctx, "delete", func(ctx context.Context) error {
		return inner.Delete(ctx, key)
	})
	return nil
}

func (s *cachingStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// GetKeys merges the backend's key list with the cache overlay: cached
// tombstones are removed, cached values are added. The chain is flushed
// first for the same reason as Get's miss path. The result is not cached;
// repeated calls re-derive it.
func (s *cachingStore) GetKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flush(); err != nil {
		return nil, err
	}

	backend, err := s.inner.GetKeys(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(backend))
	out := make([]string, 0, len(backend))
	for _, k := range backend {
		if e, ok := s.cache.Peek(k); ok && !e.present {
			continue // tombstoned
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range s.cache.Keys() {
		e, ok := s.cache.Peek(k)
		if !ok || !e.present {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// Extension operations are not cached. Each one flushes the chain so the
// backend is ordered with respect to buffered writes, forwards to the
// backend when it implements the extension, and invalidates any cache
// entries the operation may have made stale. Backends without the
// extension surface ErrUnsupported.

func (s *cachingStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.inner.(BatchStore)
	if !ok {
		return nil, ErrUnsupported
	}
	if err := s.flush(); err != nil {
		return nil, err
	}
	return b.GetMany(ctx, keys)
}

func (s *cachingStore) SetMany(ctx context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.inner.(BatchStore)
	if !ok {
		return ErrUnsupported
	}
	if err := s.flush(); err != nil {
		return err
	}
	if err := b.SetMany(ctx, entries); err != nil {
		return err
	}
	for k := range entries {
		s.cache.Remove(k)
	}
	return nil
}

func (s *cachingStore) DeleteMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.inner.(BatchStore)
	if !ok {
		return ErrUnsupported
	}
	if err := s.flush(); err != nil {
		return err
	}
	if err := b.DeleteMany(ctx, keys); err != nil {
		return err
	}
	for _, k := range keys {
		s.cache.Remove(k)
	}
	return nil
}

func (s *cachingStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.inner.(AtomicStore)
	if !ok {
		return 0, ErrUnsupported
	}
	if err := s.flush(); err != nil {
		return 0, err
	}
	n, err := a.Increment(ctx, key, delta)
	if err != nil {
		return 0, err
	}
	s.cache.Remove(key)
	return n, nil
}

func (s *cachingStore) NewCompareAndSwap(ctx context.Context, key string) (Cas, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.inner.(CasStore)
	if !ok {
		return nil, ErrUnsupported
	}
	if err := s.flush(); err != nil {
		return nil, err
	}
	inner, err := c.NewCompareAndSwap(ctx, key)
	if err != nil {
		return nil, err
	}
	return &cachingCas{store: s, key: key, inner: inner}, nil
}

// cachingCas keeps a CAS session coherent with its parent cache: both
// legs flush pending writes before touching the backend, and a
// successful swap invalidates the key so the next read refetches.
type cachingCas struct {
	store *cachingStore
	key   string
	inner Cas
}

func (c *cachingCas) Current(ctx context.Context) ([]byte, bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.flush(); err != nil {
		return nil, false, err
	}
	return c.inner.Current(ctx)
}

func (c *cachingCas) Swap(ctx context.Context, value []byte) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.flush(); err != nil {
		return err
	}
	if err := c.inner.Swap(ctx, value); err != nil {
		return err
	}
	c.store.cache.Remove(c.key)
	return nil
}
