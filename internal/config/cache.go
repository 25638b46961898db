package config

import (
	"time"
)

// CacheConfig tunes the Redis cache in front of the capacity read
// endpoint.  The cache only ever serves GET responses, keyed on the
// requested URL, so the knobs are lifetime and size: TTL bounds how
// stale a served capacity number can be, and MaxBodyBytes caps the
// stored response so an unexpectedly large body never fills Redis.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CAPACITY_CACHE_* environment variables.
// The default TTL is deliberately short: a capacity figure more than a
// few seconds old misleads clients racing for the last open spots.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CAPACITY_CACHE_ENABLED", true),
		TTL:          envDur("CAPACITY_CACHE_TTL", 5*time.Second),
		Prefix:       envStr("CAPACITY_CACHE_PREFIX", "capacity"),
		MaxBodyBytes: envInt("CAPACITY_CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return cfg
}
