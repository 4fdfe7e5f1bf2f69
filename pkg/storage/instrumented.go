package storage

import (
	"context"
	"time"

	"github.com/mspacademy/labtrack/pkg/observability"
)

// InstrumentedStore wraps a Store and records operation counts, durations
// and errors into the Prometheus collectors.
type InstrumentedStore struct {
	inner   Store
	metrics *observability.Metrics
}

// NewInstrumentedStore wraps the store. A nil metrics returns the store
// unwrapped.
func NewInstrumentedStore(inner Store, metrics *observability.Metrics) Store {
	if metrics == nil {
		return inner
	}
	return &InstrumentedStore{inner: inner, metrics: metrics}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.StorageOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil && err != ErrNotFound {
		status = "error"
		s.metrics.StorageErrorsTotal.WithLabelValues(op).Inc()
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(op, status).Inc()
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := s.inner.Get(ctx, key)
	s.observe("get", start, err)
	return data, err
}

func (s *InstrumentedStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.inner.Put(ctx, key, value, ttl)
	s.observe("put", start, err)
	return err
}

func (s *InstrumentedStore) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := s.inner.PutIfAbsent(ctx, key, value, ttl)
	s.observe("put_if_absent", start, err)
	return ok, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.inner.List(ctx, prefix)
	s.observe("list", start, err)
	return keys, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
