package keyvalue

import "context"

// DelegatingStoreManager routes each store name to one of several
// underlying managers. Pure routing: no caching, no state beyond the
// mapping built at construction.
type DelegatingStoreManager struct {
	delegates map[string]StoreManager
}

var _ StoreManager = (*DelegatingStoreManager)(nil)

// NewDelegatingStoreManager builds a manager from a name -> delegate
// mapping. The map is copied.
func NewDelegatingStoreManager(delegates map[string]StoreManager) *DelegatingStoreManager {
	m := make(map[string]StoreManager, len(delegates))
	for name, d := range delegates {
		m[name] = d
	}
	return &DelegatingStoreManager{delegates: m}
}

func (m *DelegatingStoreManager) Get(ctx context.Context, name string) (Store, error) {
	d, ok := m.delegates[name]
	if !ok {
		return nil, ErrNoSuchStore
	}
	return d.Get(ctx, name)
}

func (m *DelegatingStoreManager) IsDefined(name string) bool {
	_, ok := m.delegates[name]
	return ok
}

func (m *DelegatingStoreManager) Summary(name string) (string, bool) {
	if d, ok := m.delegates[name]; ok {
		return d.Summary(name)
	}
	return "", false
}
