// Package settings exposes the tunable system settings read by the order
// workflows.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"storeops/internal/core/apperror"
	"storeops/pkg/logger"
)

// Setting keys as stored.
const (
	KeyReturnWindowDays      = "RETURN_WINDOW_DAYS"
	KeyReviewEditWindowHours = "REVIEW_EDIT_WINDOW_HOURS"
)

// Defaults used when a setting is missing or invalid.
const (
	DefaultReturnWindowDays      = 7
	DefaultReviewEditWindowHours = 24
)

// Provider is read by services. Implementations decide how often values reload.
type Provider interface {
	ReturnWindowDays(ctx context.Context) int
	ReviewEditWindowHours(ctx context.Context) int
}

// Snapshot is a resolved set of settings.
type Snapshot struct {
	ReturnWindowDays      int `json:"returnWindowDays"`
	ReviewEditWindowHours int `json:"reviewEditWindowHours"`
}

// Fixed is a constant Provider for tests and tools.
type Fixed struct {
	Snapshot Snapshot
}

// ReturnWindowDays implements Provider.
func (f Fixed) ReturnWindowDays(context.Context) int { return f.Snapshot.ReturnWindowDays }

// ReviewEditWindowHours implements Provider.
func (f Fixed) ReviewEditWindowHours(context.Context) int { return f.Snapshot.ReviewEditWindowHours }

// Defaults returns the built-in settings.
func Defaults() Snapshot {
	return Snapshot{
		ReturnWindowDays:      DefaultReturnWindowDays,
		ReviewEditWindowHours: DefaultReviewEditWindowHours,
	}
}

// Resolve turns stored raw values into a Snapshot. Missing, non-numeric or
// non-positive values fall back to the defaults.
func Resolve(ctx context.Context, raw map[string]string) Snapshot {
	return Snapshot{
		ReturnWindowDays:      resolveInt(ctx, raw, KeyReturnWindowDays, DefaultReturnWindowDays),
		ReviewEditWindowHours: resolveInt(ctx, raw, KeyReviewEditWindowHours, DefaultReviewEditWindowHours),
	}
}

func resolveInt(ctx context.Context, raw map[string]string, key string, def int) int {
	v, ok := raw[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn(ctx, "invalid system setting, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// Store persists raw setting values.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, key, value, updatedBy string) error
}

// Service reads and updates settings.
type Service struct {
	store Store
}

// NewService creates a settings service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Snapshot reads the current settings from the store.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	raw, err := s.store.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load settings: %w", err)
	}
	return Resolve(ctx, raw), nil
}

// UpdateReturnWindow sets the number of days after delivery during which
// returns may be requested.
func (s *Service) UpdateReturnWindow(ctx context.Context, days int, updatedBy string) (Snapshot, error) {
	return s.update(ctx, KeyReturnWindowDays, days, updatedBy)
}

// UpdateReviewEditWindow sets how long reviews stay editable.
func (s *Service) UpdateReviewEditWindow(ctx context.Context, hours int, updatedBy string) (Snapshot, error) {
	return s.update(ctx, KeyReviewEditWindowHours, hours, updatedBy)
}

func (s *Service) update(ctx context.Context, key string, value int, updatedBy string) (Snapshot, error) {
	if value <= 0 {
		return Snapshot{}, apperror.NewValidation(key + " must be greater than 0").WithDetail("field", key)
	}
	if err := s.store.Save(ctx, key, strconv.Itoa(value), updatedBy); err != nil {
		return Snapshot{}, fmt.Errorf("save setting %s: %w", key, err)
	}
	logger.Info(ctx, "system setting updated", "key", key, "value", value)
	return s.Snapshot(ctx)
}
