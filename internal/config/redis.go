package config

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance backing the rate
// limiter and the capacity response cache.  Redis is an accelerator
// here, not a dependency: when the connection cannot be established
// the function logs and returns nil, and callers run with caching and
// rate limiting disabled rather than refusing to serve bookings.
//
// Connection parameters come from the environment:
//
//	REDIS_ADDR      host:port, default localhost:6379
//	REDIS_PASSWORD  optional
//	REDIS_DB        database number, default 0
//	REDIS_POOL_SIZE connection pool size, default 10
//	REDIS_TLS       "true" enables TLS
func NewRedisClient() *redis.Client {
	opts := &redis.Options{
		Addr:     envStr("REDIS_ADDR", "localhost:6379"),
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
		PoolSize: envInt("REDIS_POOL_SIZE", 10),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s, capacity cache and rate limiting disabled: %v", opts.Addr, err)
		return nil
	}
	return client
}
