// Package clock lets services read the current time through an injectable func.
package clock

import "time"

// Func returns the current time.
type Func func() time.Time

// System is the wall clock in UTC.
func System() time.Time { return time.Now().UTC() }

// Fixed returns a Func that always reports t.
func Fixed(t time.Time) Func {
	return func() time.Time { return t }
}
