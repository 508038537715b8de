package bigcache

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/hostfactor/keyvalue"
)

func newTestStore(t *testing.T) keyvalue.Store {
	t.Helper()
	m := NewManager(Config{LifeWindow: time.Minute, Names: []string{"default"}})
	t.Cleanup(func() { m.Close() })

	s, err := m.Get(context.Background(), "default")
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	return s
}

func TestManagerDefinesNames(t *testing.T) {
	m := NewManager(Config{Names: []string{"default"}})
	defer m.Close()

	if !m.IsDefined("default") || m.IsDefined("other") {
		t.Fatal("IsDefined mismatch")
	}
	if _, err := m.Get(context.Background(), "other"); !errors.Is(err, keyvalue.ErrNoSuchStore) {
		t.Fatalf("Get(other): %v, want ErrNoSuchStore", err)
	}
	if s, ok := m.Summary("default"); !ok || s == "" {
		t.Fatalf("Summary = %q, %v", s, ok)
	}
}

func TestSameNameSharesCache(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Config{LifeWindow: time.Minute, Names: []string{"default"}})
	defer m.Close()

	s1, _ := m.Get(ctx, "default")
	s2, _ := m.Get(ctx, "default")
	s1.Set(ctx, "k", []byte("v"))
	if got, ok, _ := s2.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Fatalf("shared cache not visible: got=%q ok=%v", got, ok)
	}
}

func TestStoreCoreOps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get: got=%q ok=%v err=%v", got, ok, err)
	}
	if exists, _ := s.Exists(ctx, "k"); !exists {
		t.Fatal("Exists = false after Set")
	}

	s.Set(ctx, "k2", []byte("v2"))
	keys, err := s.GetKeys(ctx)
	if err != nil {
		t.Fatalf("GetKeys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "k" || keys[1] != "k2" {
		t.Fatalf("GetKeys = %v", keys)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if exists, _ := s.Exists(ctx, "k"); exists {
		t.Fatal("key exists after Delete")
	}
	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "nope"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}
