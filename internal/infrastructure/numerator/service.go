// Package numerator implements core/numerator.Generator on the sys_sequences table.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "storeops/internal/core/numerator"
)

// Querier is the subset of pgx used here.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierSource resolves the querier for a call. With the TxManager it
// returns the ambient transaction, so strict numbers roll back with the order.
type QuerierSource func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service issues document numbers.
type Service struct {
	source QuerierSource

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(source QuerierSource) *Service {
	return &Service{
		source: source,
		ranges: make(map[string]*cachedRange),
	}
}

// Next returns the next number for cfg, e.g. ORD-2026-00042.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, at time.Time) (string, error) {
	if s == nil || s.source == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := cfg.Key(at)

	var (
		num int64
		err error
	)
	switch cfg.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.nextCached(ctx, key, cfg.RangeSize)
	default:
		num, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return cfg.Format(at, num), nil
}

func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.source(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// nextCached hands out numbers from an in-memory range, reserving a new
// range of size numbers when the current one is used up.
func (s *Service) nextCached(ctx context.Context, key string, size int64) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.source(ctx).QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		// reserved range is (newMax-size, newMax]
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}
