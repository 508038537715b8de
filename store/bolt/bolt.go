// Package bolt provides a persistent store manager on bbolt (embedded
// B+ tree). Each store name maps to one bucket in a single database
// file.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"github.com/hostfactor/keyvalue"
)

type Manager struct {
	db    *bolt.DB
	path  string
	names map[string]struct{}
}

var _ keyvalue.StoreManager = (*Manager)(nil)

// Open creates or opens a bbolt database at path and defines the given
// store names. Buckets are created eagerly so read paths never have to
// special-case a missing bucket.
func Open(path string, names ...string) (*Manager, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	set := make(map[string]struct{}, len(names))
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %q: %w", name, err)
			}
			set[name] = struct{}{}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Manager{db: db, path: path, names: set}, nil
}

func (m *Manager) Close() error { return m.db.Close() }

func (m *Manager) Get(_ context.Context, name string) (keyvalue.Store, error) {
	if _, ok := m.names[name]; !ok {
		return nil, keyvalue.ErrNoSuchStore
	}
	return &Store{db: m.db, bucket: []byte(name)}, nil
}

func (m *Manager) IsDefined(name string) bool {
	_, ok := m.names[name]
	return ok
}

func (m *Manager) Summary(name string) (string, bool) {
	if !m.IsDefined(name) {
		return "", false
	}
	return "bbolt at " + m.path, true
}

type Store struct {
	db     *bolt.DB
	bucket []byte
}

var (
	_ keyvalue.Store       = (*Store)(nil)
	_ keyvalue.BatchStore  = (*Store)(nil)
	_ keyvalue.AtomicStore = (*Store)(nil)
	_ keyvalue.CasStore    = (*Store)(nil)
)

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			val = make([]byte, len(v))
			copy(val, v)
			found = true
		}
		return nil
	})
	return val, found, err
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(s.bucket).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

func (s *Store) GetKeys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *Store) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			if v := b.Get([]byte(k)); v != nil {
				c := make([]byte, len(v))
				copy(c, v)
				out[k] = c
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) SetMany(_ context.Context, entries map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for k, v := range entries {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteMany(_ context.Context, keys []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Increment(_ context.Context, key string, delta int64) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if v := b.Get([]byte(key)); v != nil {
			parsed, err := strconv.ParseInt(string(v), 10, 64)
			if err != nil {
				return keyvalue.Otherf("increment %q: not an integer", key)
			}
			n = parsed
		}
		n += delta
		return b.Put([]byte(key), []byte(strconv.FormatInt(n, 10)))
	})
	return n, err
}

func (s *Store) NewCompareAndSwap(_ context.Context, key string) (keyvalue.Cas, error) {
	return &cas{store: s, key: key}, nil
}

type cas struct {
	store *Store
	key   string

	observed []byte
	seen     bool
}

func (c *cas) Current(ctx context.Context) ([]byte, bool, error) {
	v, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, false, err
	}
	c.observed, c.seen = v, ok
	return v, ok, nil
}

// Swap compares and writes inside one update transaction.
func (c *cas) Swap(_ context.Context, value []byte) error {
	return c.store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(c.store.bucket)
		cur := b.Get([]byte(c.key))
		if (cur != nil) != c.seen || (c.seen && !bytes.Equal(cur, c.observed)) {
			return keyvalue.ErrCasMismatch
		}
		return b.Put([]byte(c.key), value)
	})
}
