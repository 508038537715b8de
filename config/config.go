// Package config assembles a StoreManager from a TOML runtime
// configuration. Each [store.<name>] section maps a guest-visible store
// name onto a backend definition; stores that share a backend (same bolt
// path, same redis address, same bigcache life window) share one manager
// and therefore one connection or database file.
//
// Example:
//
//	[cache]
//	enabled = true
//	capacity = 256
//
//	[store.default]
//	type = "memory"
//
//	[store.sessions]
//	type = "bolt"
//	path = "sessions.db"
//
//	[store.shared]
//	type = "redis"
//	addr = "localhost:6379"
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hostfactor/keyvalue"
	bigcachestore "github.com/hostfactor/keyvalue/store/bigcache"
	boltstore "github.com/hostfactor/keyvalue/store/bolt"
	memorystore "github.com/hostfactor/keyvalue/store/memory"
	redisstore "github.com/hostfactor/keyvalue/store/redis"
)

type Config struct {
	Cache  CacheConfig            `toml:"cache"`
	Stores map[string]StoreConfig `toml:"store"`
}

type CacheConfig struct {
	// Enabled wraps every produced store in the write-behind cache.
	Enabled bool `toml:"enabled"`
	// Capacity bounds cached entries per opened store. 0 => 256.
	Capacity int `toml:"capacity"`
}

type StoreConfig struct {
	// Type selects the backend: "memory", "redis", "bolt" or "bigcache".
	Type string `toml:"type"`
	// Path is the database file for bolt stores.
	Path string `toml:"path"`
	// Addr is the server address for redis stores.
	Addr string `toml:"addr"`
	// LifeWindow is the entry lifetime for bigcache stores, e.g. "10m".
	LifeWindow duration `toml:"life_window"`
}

// duration wraps time.Duration for TOML string decoding ("10m", "1h").
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a configuration from raw TOML and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	for name, sc := range c.Stores {
		switch sc.Type {
		case "memory", "bigcache":
		case "redis":
			if sc.Addr == "" {
				return fmt.Errorf("store %q: redis requires addr", name)
			}
		case "bolt":
			if sc.Path == "" {
				return fmt.Errorf("store %q: bolt requires path", name)
			}
		case "":
			return fmt.Errorf("store %q: type is required", name)
		default:
			return fmt.Errorf("store %q: unknown type %q", name, sc.Type)
		}
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache: capacity must be >= 0")
	}
	return nil
}

// BuildManager materializes the configured backends behind a delegating
// manager, optionally wrapped in the caching layer. The returned close
// function releases backend resources (database files, redis clients)
// and must be called when the manager is no longer needed.
func (c *Config) BuildManager() (keyvalue.StoreManager, func() error, error) {
	var (
		memNames []string
		bcBy     = map[time.Duration][]string{} // life window -> names
		boltBy   = map[string][]string{}        // path -> names
		redisBy  = map[string][]string{}        // addr -> names
	)
	for name, sc := range c.Stores {
		switch sc.Type {
		case "memory":
			memNames = append(memNames, name)
		case "bigcache":
			lw := sc.LifeWindow.Duration
			bcBy[lw] = append(bcBy[lw], name)
		case "bolt":
			boltBy[sc.Path] = append(boltBy[sc.Path], name)
		case "redis":
			redisBy[sc.Addr] = append(redisBy[sc.Addr], name)
		}
	}

	delegates := make(map[string]keyvalue.StoreManager, len(c.Stores))
	var closers []func() error
	closeAll := func() error {
		var first error
		for _, fn := range closers {
			if err := fn(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	if len(memNames) > 0 {
		m := memorystore.NewManager(memNames...)
		for _, name := range memNames {
			delegates[name] = m
		}
	}
	for life, names := range bcBy {
		m := bigcachestore.NewManager(bigcachestore.Config{
			LifeWindow: life,
			Names:      names,
		})
		closers = append(closers, m.Close)
		for _, name := range names {
			delegates[name] = m
		}
	}
	for path, names := range boltBy {
		m, err := boltstore.Open(path, names...)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, m.Close)
		for _, name := range names {
			delegates[name] = m
		}
	}
	for addr, names := range redisBy {
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		m, err := redisstore.NewManager(redisstore.Config{
			Client: client,
			Addr:   addr,
			Names:  names,
		})
		if err != nil {
			client.Close()
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		for _, name := range names {
			delegates[name] = m
		}
	}

	var manager keyvalue.StoreManager = keyvalue.NewDelegatingStoreManager(delegates)
	if c.Cache.Enabled {
		capacity := c.Cache.Capacity
		if capacity == 0 {
			capacity = keyvalue.DefaultCacheCapacity
		}
		manager = keyvalue.NewCachingStoreManagerWithCapacity(capacity, manager)
	}
	return manager, closeAll, nil
}
