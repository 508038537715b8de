package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hostfactor/keyvalue"
)

func newTestManager(t *testing.T, names ...string) *Manager {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "kv.db"), names...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerDefinesNames(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "default")

	if !m.IsDefined("default") || m.IsDefined("other") {
		t.Fatal("IsDefined mismatch")
	}
	if _, err := m.Get(ctx, "other"); !errors.Is(err, keyvalue.ErrNoSuchStore) {
		t.Fatalf("Get(other): %v, want ErrNoSuchStore", err)
	}
	if s, ok := m.Summary("default"); !ok || s == "" {
		t.Fatalf("Summary = %q, %v", s, ok)
	}
}

func TestStoreCoreOps(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "default")
	s, err := m.Get(ctx, "default")
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}

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
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	m, err := Open(path, "default")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s, _ := m.Get(ctx, "default")
	if err := s.Set(ctx, "k", []byte("persisted")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2, err := Open(path, "default")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()
	s2, _ := m2.Get(ctx, "default")
	got, ok, err := s2.Get(ctx, "k")
	if err != nil || !ok || string(got) != "persisted" {
		t.Fatalf("Get after reopen: got=%q ok=%v err=%v", got, ok, err)
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "a", "b")

	sa, _ := m.Get(ctx, "a")
	sb, _ := m.Get(ctx, "b")
	sa.Set(ctx, "k", []byte("from-a"))
	if _, ok, _ := sb.Get(ctx, "k"); ok {
		t.Fatal("stores share a bucket")
	}
}

func TestStoreBatchOps(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "default")
	st, _ := m.Get(ctx, "default")
	s := st.(*Store)

	if err := s.SetMany(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	got, err := s.GetMany(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Fatalf("GetMany = %v", got)
	}
	if err := s.DeleteMany(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if keys, _ := s.GetKeys(ctx); len(keys) != 0 {
		t.Fatalf("keys after DeleteMany: %v", keys)
	}
}

func TestStoreIncrement(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "default")
	st, _ := m.Get(ctx, "default")
	s := st.(*Store)

	n, err := s.Increment(ctx, "n", 41)
	if err != nil || n != 41 {
		t.Fatalf("Increment from absent: n=%d err=%v", n, err)
	}
	n, err = s.Increment(ctx, "n", 1)
	if err != nil || n != 42 {
		t.Fatalf("Increment: n=%d err=%v", n, err)
	}

	s.Set(ctx, "s", []byte("text"))
	if _, err := s.Increment(ctx, "s", 1); err == nil {
		t.Fatal("Increment on non-integer value should fail")
	}
}

func TestStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "default")
	st, _ := m.Get(ctx, "default")
	s := st.(*Store)
	s.Set(ctx, "k", []byte("v1"))

	cas, err := s.NewCompareAndSwap(ctx, "k")
	if err != nil {
		t.Fatalf("NewCompareAndSwap: %v", err)
	}
	if _, _, err := cas.Current(ctx); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if err := cas.Swap(ctx, []byte("v2")); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if got, _, _ := s.Get(ctx, "k"); string(got) != "v2" {
		t.Fatalf("value after Swap = %q", got)
	}

	cas2, _ := s.NewCompareAndSwap(ctx, "k")
	cas2.Current(ctx)
	s.Set(ctx, "k", []byte("interleaved"))
	if err := cas2.Swap(ctx, []byte("v3")); !errors.Is(err, keyvalue.ErrCasMismatch) {
		t.Fatalf("Swap after interleaved write: %v, want ErrCasMismatch", err)
	}
}
