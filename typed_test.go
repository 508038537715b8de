package keyvalue

import (
	"context"
	"testing"

	"github.com/hostfactor/keyvalue/codec"
)

type session struct {
	ID    string `json:"id"`
	Seen  int    `json:"seen"`
	Token string `json:"token" msgpack:"token"`
}

func TestTypedStoreJSON(t *testing.T) {
	ctx := context.Background()
	ts := NewTypedStore[session](newFakeStore(), codec.JSON[session]{})

	want := session{ID: "s1", Seen: 3, Token: "abc"}
	if err := ts.Set(ctx, "s1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := ts.Get(ctx, "s1")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: got=%+v ok=%v err=%v", got, ok, err)
	}

	exists, err := ts.Exists(ctx, "s1")
	if err != nil || !exists {
		t.Fatalf("Exists: ok=%v err=%v", exists, err)
	}
	keys, err := ts.GetKeys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "s1" {
		t.Fatalf("GetKeys: %v, %v", keys, err)
	}
	if err := ts.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := ts.Get(ctx, "s1"); ok {
		t.Fatal("value present after Delete")
	}
}

func TestTypedStoreCBOR(t *testing.T) {
	ctx := context.Background()
	ts := NewTypedStore[session](newFakeStore(), codec.MustCBOR[session](true))

	want := session{ID: "s2", Seen: 1}
	if err := ts.Set(ctx, "s2", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := ts.Get(ctx, "s2")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: got=%+v ok=%v err=%v", got, ok, err)
	}
}

func TestTypedStoreMsgpack(t *testing.T) {
	ctx := context.Background()
	ts := NewTypedStore[session](newFakeStore(), codec.Msgpack[session]{})

	want := session{ID: "s3", Token: "tok"}
	if err := ts.Set(ctx, "s3", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := ts.Get(ctx, "s3")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: got=%+v ok=%v err=%v", got, ok, err)
	}
}

func TestTypedStoreDecodeLimit(t *testing.T) {
	ctx := context.Background()
	backend := newFakeStore()
	ts := NewTypedStore[session](backend, codec.Limit[session]{
		Inner:     codec.JSON[session]{},
		MaxDecode: 8,
	})

	if err := ts.Set(ctx, "big", session{ID: "long-enough-to-exceed-the-limit"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, _, err := ts.Get(ctx, "big"); err == nil {
		t.Fatal("expected decode limit error")
	}
}

func TestTypedStoreDecodeFailure(t *testing.T) {
	ctx := context.Background()
	backend := newFakeStore()
	backend.data["bad"] = []byte("{not json")

	ts := NewTypedStore[session](backend, codec.JSON[session]{})
	if _, _, err := ts.Get(ctx, "bad"); err == nil {
		t.Fatal("expected decode error for corrupt payload")
	}
}
