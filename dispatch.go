package keyvalue

import (
	"context"
	"sync"
)

// DefaultStoreTableCapacity bounds how many stores one guest instance may
// hold open at once.
const DefaultStoreTableCapacity uint32 = 256

// DispatchOptions configure a Dispatch. Manager is required; everything
// else has defaults.
type DispatchOptions struct {
	// AllowedStores is the set of store names this dispatch may open.
	// Names outside the list fail with ErrAccessDenied before any backend
	// call. The list is immutable for the dispatch's lifetime.
	AllowedStores []string

	// Manager resolves allowed names to Store instances. Required.
	Manager StoreManager

	// TableCapacity bounds simultaneously open handles. 0 => 256.
	TableCapacity uint32

	// FlushOnClose makes Close drain the pending write chain of stores
	// that buffer writes and report the deferred error. The default
	// (false) keeps the reference behavior: close never waits, and write
	// failures after close are silently lost.
	FlushOnClose bool

	Logger Logger // if nil, NopLogger is used
}

// Dispatch is the capability-scoped handle multiplexer: an allow-list
// gate in front of a StoreManager, plus a bounded table mapping small
// integer handles to open Store instances. One Dispatch belongs to one
// guest-instance context and must not be shared across instances.
type Dispatch struct {
	allowed      map[string]struct{}
	manager      StoreManager
	flushOnClose bool
	log          Logger

	mu     sync.Mutex
	stores *table
}

// NewDispatch builds a Dispatch from opts. Returns an error only when
// opts.Manager is nil.
func NewDispatch(opts DispatchOptions) (*Dispatch, error) {
	if opts.Manager == nil {
		return nil, Otherf("dispatch: manager is required")
	}
	allowed := make(map[string]struct{}, len(opts.AllowedStores))
	for _, name := range opts.AllowedStores {
		allowed[name] = struct{}{}
	}
	return &Dispatch{
		allowed:      allowed,
		manager:      opts.Manager,
		flushOnClose: opts.FlushOnClose,
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
		stores:       newTable(coalesce(opts.TableCapacity, DefaultStoreTableCapacity)),
	}, nil
}

// AllowedStores returns the names this dispatch may open.
func (d *Dispatch) AllowedStores() []string {
	out := make([]string, 0, len(d.allowed))
	for name := range d.allowed {
		out = append(out, name)
	}
	return out
}

// Open resolves name to a Store and registers it in the handle table.
// The allow-list is checked before the manager is consulted, so
// ErrAccessDenied strictly precedes ErrNoSuchStore. When the table is at
// capacity the freshly resolved store is dropped without being inserted
// and ErrStoreTableFull is returned.
func (d *Dispatch) Open(ctx context.Context, name string) (uint32, error) {
	if _, ok := d.allowed[name]; !ok {
		return 0, ErrAccessDenied
	}

	store, err := d.manager.Get(ctx, name)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	handle, ok := d.stores.push(store)
	d.mu.Unlock()
	if !ok {
		return 0, ErrStoreTableFull
	}

	backend := "unknown"
	if s, ok := d.manager.Summary(name); ok {
		backend = s
	}
	d.log.Debug("store opened", Fields{"name": name, "handle": handle, "backend": backend})
	return handle, nil
}

// store resolves handle to its live Store, or ErrInvalidHandle.
func (d *Dispatch) store(handle uint32) (Store, error) {
	d.mu.Lock()
	s, ok := d.stores.get(handle)
	d.mu.Unlock()
	if !ok {
		return nil, ErrInvalidHandle
	}
	return s, nil
}

func (d *Dispatch) Get(ctx context.Context, handle uint32, key string) ([]byte, bool, error) {
	s, err := d.store(handle)
	if err != nil {
		return nil, false, err
	}
	return s.Get(ctx, key)
}

func (d *Dispatch) Set(ctx context.Context, handle uint32, key string, value []byte) error {
	s, err := d.store(handle)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, value)
}

func (d *Dispatch) Delete(ctx context.Context, handle uint32, key string) error {
	s, err := d.store(handle)
	if err != nil {
		return err
	}
	return s.Delete(ctx, key)
}

func (d *Dispatch) Exists(ctx context.Context, handle uint32, key string) (bool, error) {
	s, err := d.store(handle)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, key)
}

// ListKeys returns all keys in the store behind handle. Pagination is not
// implemented: only the zero cursor ("first page") is accepted, and the
// returned next-cursor is always zero. Any other cursor fails with
// ErrUnsupported.
func (d *Dispatch) ListKeys(ctx context.Context, handle uint32, cursor uint64) ([]string, uint64, error) {
	if cursor != 0 {
		return nil, 0, ErrUnsupported
	}
	s, err := d.store(handle)
	if err != nil {
		return nil, 0, err
	}
	keys, err := s.GetKeys(ctx)
	if err != nil {
		return nil, 0, err
	}
	return keys, 0, nil
}

// GetKeys is ListKeys without the cursor plumbing.
func (d *Dispatch) GetKeys(ctx context.Context, handle uint32) ([]string, error) {
	s, err := d.store(handle)
	if err != nil {
		return nil, err
	}
	return s.GetKeys(ctx)
}

// Close removes the handle from the table. Closing an unknown or already
// closed handle is a no-op. Unless FlushOnClose was set, close does not
// wait for pending asynchronous writes; their failures are silently lost.
func (d *Dispatch) Close(ctx context.Context, handle uint32) error {
	d.mu.Lock()
	s, ok := d.stores.remove(handle)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	d.log.Debug("store closed", Fields{"handle": handle})
	if d.flushOnClose {
		if f, ok := s.(Flusher); ok {
			return f.Flush(ctx)
		}
	}
	return nil
}

// Increment forwards to the store's AtomicStore extension, or fails with
// ErrUnsupported when the resolved store does not implement it.
func (d *Dispatch) Increment(ctx context.Context, handle uint32, key string, delta int64) (int64, error) {
	s, err := d.store(handle)
	if err != nil {
		return 0, err
	}
	a, ok := s.(AtomicStore)
	if !ok {
		return 0, ErrUnsupported
	}
	return a.Increment(ctx, key, delta)
}

func (d *Dispatch) GetMany(ctx context.Context, handle uint32, keys []string) (map[string][]byte, error) {
	s, err := d.store(handle)
	if err != nil {
		return nil, err
	}
	b, ok := s.(BatchStore)
	if !ok {
		return nil, ErrUnsupported
	}
	return b.GetMany(ctx, keys)
}

func (d *Dispatch) SetMany(ctx context.Context, handle uint32, entries map[string][]byte) error {
	s, err := d.store(handle)
	if err != nil {
		return err
	}
	b, ok := s.(BatchStore)
	if !ok {
		return ErrUnsupported
	}
	return b.SetMany(ctx, entries)
}

func (d *Dispatch) DeleteMany(ctx context.Context, handle uint32, keys []string) error {
	s, err := d.store(handle)
	if err != nil {
		return err
	}
	b, ok := s.(BatchStore)
	if !ok {
		return ErrUnsupported
	}
	return b.DeleteMany(ctx, keys)
}

// CompareAndSwap opens a CAS session on key through the store's CasStore
// extension.
func (d *Dispatch) CompareAndSwap(ctx context.Context, handle uint32, key string) (Cas, error) {
	s, err := d.store(handle)
	if err != nil {
		return nil, err
	}
	c, ok := s.(CasStore)
	if !ok {
		return nil, ErrUnsupported
	}
	return c.NewCompareAndSwap(ctx, key)
}
