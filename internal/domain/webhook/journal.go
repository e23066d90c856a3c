// Package webhook contains the delivery journal shared by the payment and
// shipping reconcilers.
package webhook

import (
	"context"
	"time"
)

// Provider identifies the external notifier.
type Provider string

const (
	ProviderPayOS Provider = "payos"
	ProviderGHN   Provider = "ghn"
)

// Outcome is what a delivery did to our state.
type Outcome string

const (
	// OutcomeApplied means the delivery changed order or shipment state.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the same event was delivered before.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeStale means a different event already moved the aggregate on.
	OutcomeStale Outcome = "stale"
	// OutcomeIgnored means there was nothing to apply it to.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected means the body was unparseable or unsigned. Not journaled.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means processing hit an internal error. Not journaled, so
	// the provider's retry is processed again.
	OutcomeFailed Outcome = "failed"
)

// Receipt is one delivery as received.
type Receipt struct {
	Provider   Provider
	EventKey   string
	Payload    []byte
	ReceivedAt time.Time
}

// Journal remembers deliveries by (provider, event key).
// Both calls must run inside the transaction that applies the event, so a
// rolled back delivery leaves no trace and is processed again on retry.
type Journal interface {
	// Begin records a delivery. It returns false when the key was recorded before.
	Begin(ctx context.Context, r Receipt) (bool, error)

	// Finish stores the outcome of a delivery started with Begin.
	Finish(ctx context.Context, provider Provider, eventKey string, outcome Outcome, note string) error
}

// Result is reported back to the HTTP layer, which always answers 200.
type Result struct {
	Outcome Outcome
	Message string
}

// Status is the value of the "status" member of the acknowledgement body.
func (r Result) Status() string {
	switch r.Outcome {
	case OutcomeRejected, OutcomeFailed:
		return "error"
	case OutcomeIgnored:
		return "warning"
	default:
		return "success"
	}
}
