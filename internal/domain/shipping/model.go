// Package shipping tracks the shipment of an order and reconciles carrier
// (GHN) status webhooks with it.
package shipping

import (
	"strings"
	"time"

	"storeops/internal/core/id"
)

// Status is the internal shipping status. It only moves forward.
type Status string

const (
	StatusPreparing Status = "PREPARING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
)

func (s Status) rank() int {
	switch s {
	case StatusPreparing:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	}
	return 0
}

// Shipment is the 1:1 delivery record of an order.
type Shipment struct {
	ID               id.ID      `db:"id" json:"id"`
	OrderID          id.ID      `db:"order_id" json:"orderId"`
	Status           Status     `db:"status" json:"status"`
	CarrierOrderCode string     `db:"carrier_order_code" json:"carrierOrderCode"`
	CarrierStatus    string     `db:"carrier_status" json:"carrierStatus,omitempty"`
	CarrierUpdatedAt *time.Time `db:"carrier_updated_at" json:"carrierUpdatedAt,omitempty"`
	CarrierNote      string     `db:"carrier_note" json:"carrierNote,omitempty"`
	Version          int        `db:"version" json:"version"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// advance moves the status forward; it never goes back.
func (s *Shipment) advance(to Status) bool {
	if to.rank() <= s.Status.rank() {
		return false
	}
	s.Status = to
	return true
}

// Class groups carrier statuses by their effect.
type Class int

const (
	// ClassUnknown statuses are recorded and logged.
	ClassUnknown Class = iota
	// ClassProgress statuses map onto an internal status.
	ClassProgress
	// ClassFailure statuses need human follow-up; the internal status stays.
	ClassFailure
	// ClassCanceled is the carrier canceling the delivery.
	ClassCanceled
)

var carrierStatuses = map[string]struct {
	class  Class
	status Status
}{
	"ready_to_pick": {ClassProgress, StatusPreparing},
	"picking":       {ClassProgress, StatusPreparing},

	"picked":                   {ClassProgress, StatusShipped},
	"storing":                  {ClassProgress, StatusShipped},
	"transporting":             {ClassProgress, StatusShipped},
	"sorting":                  {ClassProgress, StatusShipped},
	"delivering":               {ClassProgress, StatusShipped},
	"money_collect_delivering": {ClassProgress, StatusShipped},

	"delivered": {ClassProgress, StatusDelivered},

	"cancel":        {ClassCanceled, ""},
	"delivery_fail": {ClassFailure, ""},
	"return_fail":   {ClassFailure, ""},
	"exception":     {ClassFailure, ""},
	"damage":        {ClassFailure, ""},
	"lost":          {ClassFailure, ""},
}

// Classify maps a carrier status string. The status is only meaningful for
// ClassProgress.
func Classify(carrierStatus string) (Class, Status) {
	m, ok := carrierStatuses[strings.ToLower(strings.TrimSpace(carrierStatus))]
	if !ok {
		return ClassUnknown, ""
	}
	return m.class, m.status
}

// CarrierEvent is a status notification from the carrier.
type CarrierEvent struct {
	OrderCode       string `json:"order_code"`
	Status          string `json:"status"`
	UpdatedAt       string `json:"updated_at"`
	Note            string `json:"note"`
	ClientOrderCode string `json:"client_order_code"`
}

// EventKey identifies a delivery for de-duplication.
func (e CarrierEvent) EventKey() string {
	return e.OrderCode + "|" + strings.ToLower(strings.TrimSpace(e.Status)) + "|" + e.UpdatedAt
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime reads the carrier timestamp, falling back to now.
func ParseTime(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now
}
