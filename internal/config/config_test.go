package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecondsOr(t *testing.T) {
	t.Run("unset falls back to the default", func(t *testing.T) {
		assert.Equal(t, 120*time.Second, secondsOr("LEASE_TTL_SECONDS", 120))
	})

	t.Run("set value wins", func(t *testing.T) {
		t.Setenv("LEASE_TTL_SECONDS", "45")
		assert.Equal(t, 45*time.Second, secondsOr("LEASE_TTL_SECONDS", 120))
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Run("envStr", func(t *testing.T) {
		assert.Equal(t, "fallback", envStr("BOOKING_TEST_STR", "fallback"))
		t.Setenv("BOOKING_TEST_STR", "set")
		assert.Equal(t, "set", envStr("BOOKING_TEST_STR", "fallback"))
	})

	t.Run("envBool accepts the usual spellings", func(t *testing.T) {
		assert.True(t, envBool("BOOKING_TEST_BOOL", true))
		for _, v := range []string{"1", "true", "yes", "on"} {
			t.Setenv("BOOKING_TEST_BOOL", v)
			assert.True(t, envBool("BOOKING_TEST_BOOL", false), v)
		}
		for _, v := range []string{"0", "false", "no", "off"} {
			t.Setenv("BOOKING_TEST_BOOL", v)
			assert.False(t, envBool("BOOKING_TEST_BOOL", true), v)
		}
		t.Setenv("BOOKING_TEST_BOOL", "maybe")
		assert.True(t, envBool("BOOKING_TEST_BOOL", true))
	})

	t.Run("envInt ignores garbage", func(t *testing.T) {
		assert.Equal(t, 7, envInt("BOOKING_TEST_INT", 7))
		t.Setenv("BOOKING_TEST_INT", "42")
		assert.Equal(t, 42, envInt("BOOKING_TEST_INT", 7))
		t.Setenv("BOOKING_TEST_INT", "not-a-number")
		assert.Equal(t, 7, envInt("BOOKING_TEST_INT", 7))
	})

	t.Run("envDur parses Go durations", func(t *testing.T) {
		assert.Equal(t, time.Minute, envDur("BOOKING_TEST_DUR", time.Minute))
		t.Setenv("BOOKING_TEST_DUR", "250ms")
		assert.Equal(t, 250*time.Millisecond, envDur("BOOKING_TEST_DUR", time.Minute))
	})
}

func TestLoadCacheConfig(t *testing.T) {
	t.Run("defaults keep capacity reads fresh", func(t *testing.T) {
		cfg := LoadCacheConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 5*time.Second, cfg.TTL)
		assert.Equal(t, "capacity", cfg.Prefix)
		assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
	})

	t.Run("non-positive TTL is corrected", func(t *testing.T) {
		t.Setenv("CAPACITY_CACHE_TTL", "-1s")
		assert.Equal(t, 5*time.Second, LoadCacheConfig().TTL)
	})
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadRateLimitConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 60, cfg.Capacity)
		assert.Equal(t, 1, cfg.RefillTokens)
		assert.Equal(t, time.Second, cfg.RefillInterval)
		assert.Equal(t, "ip_session_route", cfg.KeyStrategy)
	})

	t.Run("burst shorthand overrides capacity", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_BURST", "10")
		assert.Equal(t, 10, LoadRateLimitConfig().Capacity)
	})

	t.Run("TTL never drops below five refill intervals", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
		t.Setenv("RATE_LIMIT_TTL", "1s")
		assert.Equal(t, 5*time.Minute, LoadRateLimitConfig().TTL)
	})
}
