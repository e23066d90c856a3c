package numerator

import (
	"context"
	"sync"
	"time"
)

// Sequence is an in-process Generator for tests and local tools. Counters
// live as long as the value.
type Sequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

var _ Generator = (*Sequence)(nil)

func (s *Sequence) Next(_ context.Context, cfg Config, at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counters == nil {
		s.counters = make(map[string]int64)
	}
	key := cfg.Key(at)
	s.counters[key]++
	return cfg.Format(at, s.counters[key]), nil
}
