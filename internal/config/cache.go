package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultCacheTTL bounds how long a table list may survive a missed
// invalidation.
const DefaultCacheTTL = 3600 * time.Second

// CacheConfig defines settings for the table list cache.  When Enabled is
// false or Redis is unreachable, reads always go to the store.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

func setCacheDefaults(v *viper.Viper) {
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("cache_prefix", "")
}

func loadCache(v *viper.Viper) CacheConfig {
	cfg := CacheConfig{
		Enabled: v.GetBool("cache_enabled"),
		TTL:     v.GetDuration("cache_ttl"),
		Prefix:  v.GetString("cache_prefix"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	return cfg
}
