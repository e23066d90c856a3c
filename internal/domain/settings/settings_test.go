package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/apperror"
)

type memStore struct {
	values  map[string]string
	loadErr error
}

func (m *memStore) Load(context.Context) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, key, value, _ string) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want Snapshot
	}{
		{"empty uses defaults", nil, Defaults()},
		{"stored values", map[string]string{KeyReturnWindowDays: "14", KeyReviewEditWindowHours: "48"}, Snapshot{14, 48}},
		{"garbage falls back", map[string]string{KeyReturnWindowDays: "two weeks"}, Defaults()},
		{"zero falls back", map[string]string{KeyReturnWindowDays: "0", KeyReviewEditWindowHours: "-1"}, Defaults()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(context.Background(), tt.raw))
		})
	}
}

func TestService_UpdateReturnWindow(t *testing.T) {
	store := &memStore{}
	svc := NewService(store)

	snap, err := svc.UpdateReturnWindow(context.Background(), 30, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 30, snap.ReturnWindowDays)
	assert.Equal(t, DefaultReviewEditWindowHours, snap.ReviewEditWindowHours)
	assert.Equal(t, "30", store.values[KeyReturnWindowDays])
}

func TestService_UpdateRejectsNonPositive(t *testing.T) {
	svc := NewService(&memStore{})

	_, err := svc.UpdateReviewEditWindow(context.Background(), 0, "emp-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_SnapshotPropagatesStoreErrors(t *testing.T) {
	svc := NewService(&memStore{loadErr: errors.New("boom")})

	_, err := svc.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestFixedProvider(t *testing.T) {
	var p Provider = Fixed{Snapshot{ReturnWindowDays: 3, ReviewEditWindowHours: 1}}
	assert.Equal(t, 3, p.ReturnWindowDays(context.Background()))
	assert.Equal(t, 1, p.ReviewEditWindowHours(context.Background()))
}
