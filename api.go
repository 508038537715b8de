package keyvalue

import "context"

// Store is the backend-facing contract over one named key-value store.
// Implementations must be safe for concurrent use: a single backend store
// may be wrapped by arbitrarily many independently-cached handles.
//
// Values are opaque bytes. Get distinguishes "absent" (ok=false) from an
// empty value (ok=true, len 0); implementations must preserve that
// distinction.
type Store interface {
	// Get returns (value, true, nil) when the key exists and
	// (nil, false, nil) when it does not.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, creating or overwriting as needed.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetKeys returns all keys currently in the store, in no particular
	// order.
	GetKeys(ctx context.Context) ([]string, error)
}

// StoreManager resolves store names to Store instances.
type StoreManager interface {
	// Get resolves name to a Store. Returns ErrNoSuchStore when the name
	// is not known to this manager.
	Get(ctx context.Context, name string) (Store, error)

	// IsDefined reports whether name is known to this manager. It is a
	// pure existence check, independent of any access policy.
	IsDefined(name string) bool

	// Summary returns a human-readable description of the named store's
	// configuration, e.g. "Redis at localhost:6379". It is used only for
	// observability, never for control flow.
	Summary(name string) (string, bool)
}

// BatchStore is an optional Store extension for multi-key operations.
// Backends that cannot provide it simply don't implement the interface;
// callers discover support via type assertion and surface ErrUnsupported.
type BatchStore interface {
	// GetMany returns the subset of keys that exist, mapped to their
	// values. Absent keys are omitted from the result.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany stores all entries. Atomicity is backend-defined.
	SetMany(ctx context.Context, entries map[string][]byte) error

	// DeleteMany removes all keys. Missing keys are ignored.
	DeleteMany(ctx context.Context, keys []string) error
}

// AtomicStore is an optional Store extension for atomic counters.
type AtomicStore interface {
	// Increment atomically adds delta to the integer stored at key
	// (treating an absent key as 0) and returns the new value. The stored
	// representation is the decimal string of the counter.
	Increment(ctx context.Context, key string, delta int64) (int64, error)
}

// Cas is a single-key compare-and-swap session obtained from a CasStore.
// The intended pattern is Current followed by Swap; Swap succeeds only if
// the backend value is still byte-identical to the last observed one
// (absent matches absent) and fails with ErrCasMismatch otherwise. A
// session on which Current was never called observes "absent".
type Cas interface {
	Current(ctx context.Context) ([]byte, bool, error)
	Swap(ctx context.Context, value []byte) error
}

// CasStore is an optional Store extension for compare-and-swap.
type CasStore interface {
	NewCompareAndSwap(ctx context.Context, key string) (Cas, error)
}

// Flusher is implemented by stores that buffer writes (notably the
// write-behind cache). Flush blocks until every previously submitted
// write has been applied to the backend, returning the first error
// encountered by the chain.
type Flusher interface {
	Flush(ctx context.Context) error
}
