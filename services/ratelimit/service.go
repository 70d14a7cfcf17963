package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Store keeps request timestamps per scope key
type Store interface {
	// Window returns the number of events for key at or after since, and the oldest of them
	Window(ctx context.Context, key string, since time.Time) (count int, oldest time.Time, err error)

	// Record stores one event for key
	Record(ctx context.Context, key string, at time.Time) error

	// Cleanup removes events older than before and returns how many were dropped
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

// AtomicStore is implemented by stores that can check and record under one lock
type AtomicStore interface {
	// Admit records an event at now only when fewer than limit events exist at or after since.
	// It returns the count and oldest event seen before the decision.
	Admit(ctx context.Context, key string, since, now time.Time, limit int) (count int, oldest time.Time, admitted bool, err error)
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimitService enforces a sliding window of requests per scope key
type RateLimitService struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewRateLimitService creates a new RateLimitService allowing limit requests per window
func NewRateLimitService(store Store, limit int, window time.Duration, logger *zap.Logger) (*RateLimitService, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitService{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Limit returns the configured requests per window
func (s *RateLimitService) Limit() int {
	return s.limit
}

// Allow checks the window for key and, when under the limit, records the request
func (s *RateLimitService) Allow(ctx context.Context, key string) (*Result, error) {
	now := s.now()
	since := now.Add(-s.window)

	count, oldest, admitted, err := s.admit(ctx, key, since, now)
	if err != nil {
		return nil, err
	}

	if !admitted {
		resetAt := oldest.Add(s.window)
		retryAfter := resetAt.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return &Result{
			Allowed:    false,
			Limit:      s.limit,
			Remaining:  0,
			RetryAfter: retryAfter,
			ResetAt:    resetAt,
		}, nil
	}

	resetAt := now.Add(s.window)
	if count > 0 {
		resetAt = oldest.Add(s.window)
	}
	return &Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - count - 1,
		ResetAt:   resetAt,
	}, nil
}

// admit checks and records in one step when the store supports it, otherwise
// counts then inserts (a concurrent burst may briefly exceed the limit)
func (s *RateLimitService) admit(ctx context.Context, key string, since, now time.Time) (int, time.Time, bool, error) {
	if atomic, ok := s.store.(AtomicStore); ok {
		count, oldest, admitted, err := atomic.Admit(ctx, key, since, now, s.limit)
		if err != nil {
			return 0, time.Time{}, false, fmt.Errorf("failed to check rate limit window: %w", err)
		}
		return count, oldest, admitted, nil
	}

	count, oldest, err := s.store.Window(ctx, key, since)
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to check rate limit window: %w", err)
	}
	if count >= s.limit {
		return count, oldest, false, nil
	}
	if err := s.store.Record(ctx, key, now); err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to record request: %w", err)
	}
	return count, oldest, true, nil
}

// CleanupOldRequests removes events that can no longer affect any window
func (s *RateLimitService) CleanupOldRequests(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.window)

	rows, err := s.store.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old requests: %w", err)
	}

	s.logger.Debug("cleaned up old rate limit events",
		zap.Int64("rows_deleted", rows),
		zap.Time("cutoff_time", cutoff))

	return rows, nil
}

// StartCleanupWorker periodically cleans up old events until ctx is done
func (s *RateLimitService) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("window", s.window))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldRequests(ctx); err != nil {
				s.logger.Error("failed to cleanup old requests", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
