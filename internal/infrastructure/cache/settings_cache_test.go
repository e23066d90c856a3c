package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storeops/internal/domain/settings"
)

type fakeStore struct {
	mu    sync.Mutex
	raw   map[string]string
	err   error
	loads int
}

func (s *fakeStore) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]string, len(s.raw))
	for k, v := range s.raw {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) Save(_ context.Context, key, value, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[key] = value
	return nil
}

func newTestCache(store *fakeStore) (*SettingsCache, *time.Time) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	c := NewSettingsCache(store, nil, "", time.Minute)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSettingsCache_TTL(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{raw: map[string]string{settings.KeyReturnWindowDays: "14"}}
	c, now := newTestCache(store)

	assert.Equal(t, 14, c.ReturnWindowDays(ctx))
	assert.Equal(t, settings.DefaultReviewEditWindowHours, c.ReviewEditWindowHours(ctx))
	assert.Equal(t, 1, store.loads)

	_ = store.Save(ctx, settings.KeyReturnWindowDays, "30", "admin")
	assert.Equal(t, 14, c.ReturnWindowDays(ctx), "served from cache within TTL")

	*now = now.Add(time.Minute)
	assert.Equal(t, 30, c.ReturnWindowDays(ctx))
	assert.Equal(t, 2, store.loads)
}

func TestSettingsCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{raw: map[string]string{settings.KeyReturnWindowDays: "14"}}
	c, _ := newTestCache(store)
	assert.NoError(t, c.Start(ctx))

	_ = store.Save(ctx, settings.KeyReturnWindowDays, "3", "admin")
	c.Invalidate()

	assert.Equal(t, 3, c.ReturnWindowDays(ctx))
}

func TestSettingsCache_KeepsLastGoodValues(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{raw: map[string]string{settings.KeyReturnWindowDays: "10"}}
	c, now := newTestCache(store)
	assert.Equal(t, 10, c.ReturnWindowDays(ctx))

	store.err = errors.New("connection refused")
	*now = now.Add(2 * time.Minute)

	assert.Equal(t, 10, c.ReturnWindowDays(ctx))
}

func TestSettingsCache_DefaultsWhenNeverLoaded(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	c, _ := newTestCache(store)

	assert.Equal(t, settings.DefaultReturnWindowDays, c.ReturnWindowDays(context.Background()))
	assert.Error(t, c.Start(context.Background()))
}
