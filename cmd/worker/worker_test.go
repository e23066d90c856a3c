package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"storeops/internal/core/id"
	"storeops/internal/domain/registers/stock"
	"storeops/pkg/logger"
)

type fakeRelay struct {
	batches    []int
	batchErr   error
	calls      int
	dlqErr     error
	dlqCalls   int
	cleanCalls int
}

func (f *fakeRelay) ProcessBatch(context.Context) (int, error) {
	f.calls++
	if f.batchErr != nil {
		return 0, f.batchErr
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func (f *fakeRelay) MoveToDLQ(context.Context) (int64, error) {
	f.dlqCalls++
	return 1, f.dlqErr
}

func (f *fakeRelay) CleanupPublished(context.Context) (int64, error) {
	f.cleanCalls++
	return 3, nil
}

type fakeCleaner struct {
	calls     int
	retention time.Duration
}

func (f *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

func (f *fakeCleaner) CleanupOlderThan(_ context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	return 0, nil
}

type fakeAuditor struct {
	ids   []id.ID
	calls int
	out   []stock.Balance
}

func (f *fakeAuditor) Drift(_ context.Context, ids []id.ID) ([]stock.Balance, error) {
	f.calls++
	f.ids = ids
	return f.out, nil
}

func nopLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newTestWorker(r *fakeRelay, c *fakeCleaner, a *fakeAuditor) *Worker {
	return NewWorker(r, c, c, a, Intervals{
		Poll:             time.Millisecond,
		Cleanup:          time.Hour,
		Drift:            time.Hour,
		WebhookRetention: 48 * time.Hour,
	}, nopLogger())
}

func TestRelayOnceDrainsUntilEmpty(t *testing.T) {
	r := &fakeRelay{batches: []int{100, 100, 7}}
	w := newTestWorker(r, &fakeCleaner{}, &fakeAuditor{})

	w.relayOnce(context.Background())

	assert.Equal(t, 4, r.calls)
}

func TestRelayOnceStopsOnError(t *testing.T) {
	r := &fakeRelay{batchErr: errors.New("broker down")}
	w := newTestWorker(r, &fakeCleaner{}, &fakeAuditor{})

	w.relayOnce(context.Background())

	assert.Equal(t, 1, r.calls)
}

func TestCleanupOnceRunsEverySweep(t *testing.T) {
	r := &fakeRelay{dlqErr: errors.New("dlq failed")}
	c := &fakeCleaner{}
	w := newTestWorker(r, c, &fakeAuditor{})

	w.cleanupOnce(context.Background())

	assert.Equal(t, 1, r.dlqCalls)
	assert.Equal(t, 1, r.cleanCalls)
	assert.Equal(t, 2, c.calls)
	assert.Equal(t, 48*time.Hour, c.retention)
}

func TestAuditOnceChecksAllProducts(t *testing.T) {
	a := &fakeAuditor{out: []stock.Balance{{ProductID: id.New(), Counter: 5, OpeningStock: 10, TotalOut: 4}}}
	w := newTestWorker(&fakeRelay{}, &fakeCleaner{}, a)

	w.auditOnce(context.Background())

	assert.Equal(t, 1, a.calls)
	assert.Nil(t, a.ids)
}

func TestRunStopsOnCancel(t *testing.T) {
	r := &fakeRelay{}
	w := newTestWorker(r, &fakeCleaner{}, &fakeAuditor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
