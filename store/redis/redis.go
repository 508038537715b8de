// Package redis provides a Redis-backed store manager. Each store name
// maps onto one Redis hash ("kv:<name>"), which gives key listing,
// multi-key operations and atomic increment directly from hash commands;
// compare-and-swap runs as a Lua script so the compare and the write are
// one round trip.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hostfactor/keyvalue"
)

var ErrNilClient = errors.New("redis store: nil client")

const keyPrefix = "kv:"

// Config for a Manager. Client is required. Addr is used only for
// Summary output; leave empty to report "Redis".
type Config struct {
	Client goredis.UniversalClient
	Addr   string

	// Names is the set of store names this manager defines.
	Names []string
}

type Manager struct {
	rdb   goredis.UniversalClient
	addr  string
	names map[string]struct{}
}

var _ keyvalue.StoreManager = (*Manager)(nil)

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	names := make(map[string]struct{}, len(cfg.Names))
	for _, n := range cfg.Names {
		names[n] = struct{}{}
	}
	return &Manager{rdb: cfg.Client, addr: cfg.Addr, names: names}, nil
}

func (m *Manager) Get(_ context.Context, name string) (keyvalue.Store, error) {
	if _, ok := m.names[name]; !ok {
		return nil, keyvalue.ErrNoSuchStore
	}
	return &Store{rdb: m.rdb, hash: keyPrefix + name}, nil
}

func (m *Manager) IsDefined(name string) bool {
	_, ok := m.names[name]
	return ok
}

func (m *Manager) Summary(name string) (string, bool) {
	if !m.IsDefined(name) {
		return "", false
	}
	if m.addr == "" {
		return "Redis", true
	}
	return "Redis at " + m.addr, true
}

// Store operates on one hash. Safe for concurrent use; the client pools
// connections.
type Store struct {
	rdb  goredis.UniversalClient
	hash string
}

var (
	_ keyvalue.Store       = (*Store)(nil)
	_ keyvalue.BatchStore  = (*Store)(nil)
	_ keyvalue.AtomicStore = (*Store)(nil)
	_ keyvalue.CasStore    = (*Store)(nil)
)

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.HGet(ctx, s.hash, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.HSet(ctx, s.hash, key, value).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.HDel(ctx, s.hash, key).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.rdb.HExists(ctx, s.hash, key).Result()
}

func (s *Store) GetKeys(ctx context.Context) ([]string, error) {
	return s.rdb.HKeys(ctx, s.hash).Result()
}

func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	vals, err := s.rdb.HMGet(ctx, s.hash, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, keyvalue.Otherf("redis: unexpected HMGET reply type for %q", keys[i])
		}
		out[keys[i]] = []byte(str)
	}
	return out, nil
}

func (s *Store) SetMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	args := make([]any, 0, len(entries)*2)
	for k, v := range entries {
		args = append(args, k, v)
	}
	return s.rdb.HSet(ctx, s.hash, args...).Err()
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.HDel(ctx, s.hash, keys...).Err()
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return s.rdb.HIncrBy(ctx, s.hash, key, delta).Result()
}

// swapScript compares the current field value against the observed one
// and writes only on match.
//
// KEYS[1] = hash key
// ARGV[1] = field
// ARGV[2] = "1" if a value was observed, "0" if absent was observed
// ARGV[3] = observed value
// ARGV[4] = new value
var swapScript = goredis.NewScript(`
local cur = redis.call("HGET", KEYS[1], ARGV[1])
if ARGV[2] == "1" then
    if cur == false or cur ~= ARGV[3] then
        return 0
    end
else
    if cur ~= false then
        return 0
    end
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[4])
return 1
`)

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

func (c *cas) Swap(ctx context.Context, value []byte) error {
	seen := "0"
	if c.seen {
		seen = "1"
	}
	n, err := swapScript.Run(ctx, c.store.rdb,
		[]string{c.store.hash}, c.key, seen, string(c.observed), string(value)).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return keyvalue.ErrCasMismatch
	}
	return nil
}
