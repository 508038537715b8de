package keyvalue

import "context"

// LegacyDispatch exposes the same handle table through the older guest
// protocol, which passes borrowed small-integer handles and has no way to
// express an absent key on get. Both protocol versions route through the
// one Dispatch, so handles are interchangeable between them; the only
// translation is at the error boundary, where the taxonomy maps 1:1 plus
// ErrNoSuchKey for get-on-absent-key.
type LegacyDispatch struct {
	d *Dispatch
}

func NewLegacyDispatch(d *Dispatch) *LegacyDispatch {
	return &LegacyDispatch{d: d}
}

func (l *LegacyDispatch) Open(ctx context.Context, name string) (uint32, error) {
	return l.d.Open(ctx, name)
}

// Get returns the value for key, or ErrNoSuchKey when the key is absent.
func (l *LegacyDispatch) Get(ctx context.Context, handle uint32, key string) ([]byte, error) {
	value, ok, err := l.d.Get(ctx, handle, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSuchKey
	}
	return value, nil
}

func (l *LegacyDispatch) Set(ctx context.Context, handle uint32, key string, value []byte) error {
	return l.d.Set(ctx, handle, key, value)
}

func (l *LegacyDispatch) Delete(ctx context.Context, handle uint32, key string) error {
	return l.d.Delete(ctx, handle, key)
}

func (l *LegacyDispatch) Exists(ctx context.Context, handle uint32, key string) (bool, error) {
	return l.d.Exists(ctx, handle, key)
}

func (l *LegacyDispatch) GetKeys(ctx context.Context, handle uint32) ([]string, error) {
	return l.d.GetKeys(ctx, handle)
}

func (l *LegacyDispatch) Close(ctx context.Context, handle uint32) error {
	return l.d.Close(ctx, handle)
}
