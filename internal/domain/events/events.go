// Package events defines the domain events written to the transactional outbox.
package events

import (
	"context"

	"storeops/internal/core/id"
)

// Event types.
const (
	OrderCreated   = "order.created"
	OrderConfirmed = "order.confirmed"
	OrderCanceled  = "order.canceled"
	OrderCompleted = "order.completed"

	ReturnRequested = "return.requested"
	ReturnApproved  = "return.approved"
	ReturnRejected  = "return.rejected"
	ReturnCompleted = "return.completed"

	ShipmentUpdated = "shipment.updated"
)

// Aggregate types.
const (
	AggregateOrder    = "order"
	AggregateReturn   = "order_return"
	AggregateShipment = "shipment"
)

// Event is a fact about an aggregate that other systems may consume.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher stores events in the caller's transaction.
// Delivery to consumers happens after commit.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
