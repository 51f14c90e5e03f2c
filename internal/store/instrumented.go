package store

import (
	"context"
	"errors"
	"time"

	"pitch-scorer/internal/common/logger"
	"pitch-scorer/internal/common/metrics"
)

// Instrumented bounds every call with a timeout and records its duration.
type Instrumented struct {
	inner   Store
	backend string
	timeout time.Duration
	logger  logger.Logger
}

// NewInstrumented wraps inner. A zero timeout leaves the caller's deadline
// untouched.
func NewInstrumented(inner Store, backend string, timeout time.Duration, log logger.Logger) *Instrumented {
	return &Instrumented{
		inner:   inner,
		backend: backend,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"storeBackend": backend}),
	}
}

func (s *Instrumented) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Instrumented) observe(op, key string, start time.Time, err error) {
	metrics.StoreOperationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
	fields := map[string]interface{}{
		"operation":  op,
		"key":        key,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		fields["error"] = err
		s.logger.Warn("store call failed", fields)
		return
	}
	s.logger.Debug("store call", fields)
}

func (s *Instrumented) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	err := s.inner.Put(ctx, key, data, contentType)
	s.observe("put", key, start, err)
	return err
}

func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	data, err := s.inner.Get(ctx, key)
	s.observe("get", key, start, err)
	return data, err
}

func (s *Instrumented) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	children, err := s.inner.List(ctx, prefix)
	s.observe("list", prefix, start, err)
	return children, err
}
