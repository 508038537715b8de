package keyvalue

import (
	"context"

	"github.com/hostfactor/keyvalue/codec"
)

// TypedStore is a convenience view over a Store for callers that work
// with structured values rather than raw bytes. Serialization is handled
// by a pluggable Codec; consistency semantics are exactly those of the
// wrapped Store (including write-behind caching when the store came from
// a CachingStoreManager).
type TypedStore[V any] struct {
	store Store
	codec codec.Codec[V]
}

func NewTypedStore[V any](store Store, c codec.Codec[V]) *TypedStore[V] {
	return &TypedStore[V]{store: store, codec: c}
}

func (t *TypedStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.codec.Decode(raw)
	if err != nil {
		return zero, false, &StoreError{Msg: "decode " + key, Err: err}
	}
	return v, true, nil
}

func (t *TypedStore[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := t.codec.Encode(value)
	if err != nil {
		return &StoreError{Msg: "encode " + key, Err: err}
	}
	return t.store.Set(ctx, key, raw)
}

func (t *TypedStore[V]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, key)
}

func (t *TypedStore[V]) Exists(ctx context.Context, key string) (bool, error) {
	return t.store.Exists(ctx, key)
}

func (t *TypedStore[V]) GetKeys(ctx context.Context) ([]string, error) {
	return t.store.GetKeys(ctx)
}
