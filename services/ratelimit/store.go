package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps timestamps in process memory. Limits are per replica.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]time.Time)}
}

func (m *MemoryStore) Window(_ context.Context, key string, since time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := prune(m.events[key], since)
	if len(kept) == 0 {
		delete(m.events, key)
		return 0, time.Time{}, nil
	}
	m.events[key] = kept
	return len(kept), kept[0], nil
}

func (m *MemoryStore) Record(_ context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[key] = append(m.events[key], at)
	return nil
}

// Admit counts and records under the store lock so concurrent requests cannot overshoot limit
func (m *MemoryStore) Admit(_ context.Context, key string, since, now time.Time, limit int) (int, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := prune(m.events[key], since)
	var oldest time.Time
	if len(kept) > 0 {
		oldest = kept[0]
	}
	if len(kept) >= limit {
		m.events[key] = kept
		return len(kept), oldest, false, nil
	}
	m.events[key] = append(kept, now)
	return len(kept), oldest, true, nil
}

func (m *MemoryStore) Cleanup(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dropped int64
	for key, ts := range m.events {
		kept := prune(ts, before)
		dropped += int64(len(ts) - len(kept))
		if len(kept) == 0 {
			delete(m.events, key)
			continue
		}
		m.events[key] = kept
	}
	return dropped, nil
}

// prune drops timestamps before since. ts is in insertion order.
func prune(ts []time.Time, since time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(since) {
		i++
	}
	return ts[i:]
}

// PostgresStore shares limits across replicas through the rate_limit_events table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an open pool
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Window(ctx context.Context, key string, since time.Time) (int, time.Time, error) {
	query := `
		SELECT COUNT(*), MIN(timestamp)
		FROM rate_limit_events
		WHERE scope_key = $1
		  AND timestamp >= $2
	`

	var (
		count  int
		oldest sql.NullTime
	)
	if err := p.db.QueryRowContext(ctx, query, key, since).Scan(&count, &oldest); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to query rate limit: %w", err)
	}
	return count, oldest.Time, nil
}

func (p *PostgresStore) Record(ctx context.Context, key string, at time.Time) error {
	query := `
		INSERT INTO rate_limit_events (scope_key, timestamp)
		VALUES ($1, $2)
	`

	if _, err := p.db.ExecContext(ctx, query, key, at); err != nil {
		return fmt.Errorf("failed to insert rate limit event: %w", err)
	}
	return nil
}

func (p *PostgresStore) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM rate_limit_events
		WHERE timestamp < $1
	`

	result, err := p.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rate limit events: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
