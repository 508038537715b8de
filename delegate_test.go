package keyvalue

import (
	"context"
	"errors"
	"testing"
)

func TestDelegatingManagerRoutesByName(t *testing.T) {
	ctx := context.Background()
	a := newFakeStore()
	b := newFakeStore()
	m := NewDelegatingStoreManager(map[string]StoreManager{
		"alpha": &fakeManager{stores: map[string]Store{"alpha": a}},
		"beta":  &fakeManager{stores: map[string]Store{"beta": b}},
	})

	got, err := m.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("Get(alpha): %v", err)
	}
	if got != Store(a) {
		t.Fatal("alpha routed to the wrong delegate")
	}
	got, err = m.Get(ctx, "beta")
	if err != nil {
		t.Fatalf("Get(beta): %v", err)
	}
	if got != Store(b) {
		t.Fatal("beta routed to the wrong delegate")
	}
}

func TestDelegatingManagerUnknownName(t *testing.T) {
	m := NewDelegatingStoreManager(map[string]StoreManager{
		"alpha": &fakeManager{stores: map[string]Store{"alpha": newFakeStore()}},
	})

	if _, err := m.Get(context.Background(), "gamma"); !errors.Is(err, ErrNoSuchStore) {
		t.Fatalf("Get(gamma): %v, want ErrNoSuchStore", err)
	}
	if m.IsDefined("gamma") {
		t.Fatal("IsDefined(gamma) = true")
	}
	if !m.IsDefined("alpha") {
		t.Fatal("IsDefined(alpha) = false")
	}
	if _, ok := m.Summary("gamma"); ok {
		t.Fatal("Summary(gamma) reported a value")
	}
	if s, ok := m.Summary("alpha"); !ok || s != "fake store" {
		t.Fatalf("Summary(alpha) = %q, %v", s, ok)
	}
}
