package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or its TTL has
// elapsed. Callers must treat absence as a normal outcome, not a failure.
var ErrNotFound = errors.New("storage: key not found")

// Store is the key-value interface all labtrack state lives behind.
//
// Put with ttl == 0 stores the value without expiry. TTL enforcement is
// best-effort; it bounds how long a stale record can linger, it is not the
// correctness mechanism.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// PutIfAbsent writes the value only when the key does not already
	// exist. Returns false when the key was present.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies backend connectivity for health checks.
	Ping(ctx context.Context) error
	Close() error
}

// Config holds storage backend settings.
type Config struct {
	// RedisURL is a redis:// connection URL.
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns storage defaults suitable for local development.
func DefaultConfig() Config {
	return Config{
		RedisURL:        "redis://localhost:6379",
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
	}
}
