// Package numerator defines how human-readable order and return numbers are issued.
// The implementation lives in infrastructure/numerator.
package numerator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict takes every number from the database inside the caller's
	// transaction. A rolled back order releases its number.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges in memory. Numbers may have gaps after a restart.
	StrategyCached
)

// ParseStrategy reads a strategy name: "strict" (also the empty string) or
// "cached".
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return StrategyStrict, nil
	case "cached":
		return StrategyCached, nil
	default:
		return StrategyStrict, fmt.Errorf("unknown numbering strategy %q", name)
	}
}

// Config holds numbering configuration for one document kind.
type Config struct {
	// Prefix added to all numbers ("ORD", "RET")
	Prefix string

	// IncludeYear adds year to the number and resets the counter yearly
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	Strategy Strategy

	// RangeSize is used by StrategyCached (default 50)
	RangeSize int64
}

// DefaultConfig returns the PREFIX-YYYY-NNNNN layout with strict numbering.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		Strategy:    StrategyStrict,
	}
}

// Key is the counter a number at time at is drawn from. Yearly numbering
// restarts because each year has its own key.
func (c Config) Key(at time.Time) string {
	if c.IncludeYear {
		return fmt.Sprintf("%s_%d", c.Prefix, at.Year())
	}
	return c.Prefix
}

// Format renders counter value n, e.g. ORD-2026-00042.
func (c Config) Format(at time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 5
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", c.Prefix, at.Year(), width, n)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, width, n)
}

// Generator issues sequential numbers, e.g. ORD-2026-00001.
type Generator interface {
	Next(ctx context.Context, cfg Config, at time.Time) (string, error)
}
