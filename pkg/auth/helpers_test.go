package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mspacademy/labtrack/pkg/storage"
)

// setupStoreTest backs the tests with a miniredis instance so TTL and key
// semantics match production.
func setupStoreTest(t *testing.T) (storage.Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := storage.NewRedisStore(storage.Config{
		RedisURL: "redis://" + mr.Addr(),
	})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis store: %v", err)
	}

	cleanup := func() {
		store.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

var errStoreDown = errors.New("store down")

// failingStore simulates an unreachable backend for fail-open tests.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errStoreDown
}

func (failingStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errStoreDown
}

func (failingStore) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, errStoreDown
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return errStoreDown
}

func (failingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, errStoreDown
}

func (failingStore) Ping(ctx context.Context) error { return errStoreDown }

func (failingStore) Close() error { return nil }
