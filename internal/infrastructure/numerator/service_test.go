package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "storeops/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = m.val
	}
	return nil
}

// mockQuerier simulates the sys_sequences upsert for a single key.
type mockQuerier struct {
	mu      sync.Mutex
	current int64
	calls   int
	keys    []string
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	increment := int64(1)
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	m.calls++
	m.keys = append(m.keys, args[0].(string))
	m.current += increment
	return &mockRow{val: m.current}
}

func source(q Querier) QuerierSource {
	return func(context.Context) Querier { return q }
}

func TestNext_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(source(q))
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := corenumerator.DefaultConfig("ORD")

	first, err := svc.Next(context.Background(), cfg, at)
	require.NoError(t, err)
	second, err := svc.Next(context.Background(), cfg, at)
	require.NoError(t, err)

	assert.Equal(t, "ORD-2026-00001", first)
	assert.Equal(t, "ORD-2026-00002", second)
	assert.Equal(t, []string{"ORD_2026", "ORD_2026"}, q.keys)
}

func TestNext_CachedReservesRanges(t *testing.T) {
	q := &mockQuerier{}
	svc := New(source(q))
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := corenumerator.DefaultConfig("RET")
	cfg.Strategy = corenumerator.StrategyCached
	cfg.RangeSize = 3

	var got []string
	for i := 0; i < 4; i++ {
		n, err := svc.Next(context.Background(), cfg, at)
		require.NoError(t, err)
		got = append(got, n)
	}

	assert.Equal(t, []string{"RET-2026-00001", "RET-2026-00002", "RET-2026-00003", "RET-2026-00004"}, got)
	assert.Equal(t, 2, q.calls, "one reservation per range")
}

func TestNext_CachedConcurrentCallersGetDistinctNumbers(t *testing.T) {
	q := &mockQuerier{}
	svc := New(source(q))
	cfg := corenumerator.DefaultConfig("ORD")
	cfg.Strategy = corenumerator.StrategyCached
	cfg.RangeSize = 7

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.Next(context.Background(), cfg, time.Now())
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}

func TestNext_WithoutYear(t *testing.T) {
	svc := New(source(&mockQuerier{}))
	cfg := corenumerator.Config{Prefix: "SHP", PadWidth: 3}

	n, err := svc.Next(context.Background(), cfg, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SHP-001", n)
}
