package shipping

import (
	"context"

	"storeops/internal/core/id"
)

// Repository persists shipments.
type Repository interface {
	GetByOrderID(ctx context.Context, orderID id.ID) (*Shipment, error)
	GetByCarrierCode(ctx context.Context, carrierOrderCode string) (*Shipment, error)

	// GetForUpdate locks the shipment row until the transaction ends.
	GetForUpdate(ctx context.Context, shipmentID id.ID) (*Shipment, error)

	Create(ctx context.Context, s *Shipment) error

	// Update writes the shipment with an optimistic version check.
	Update(ctx context.Context, s *Shipment) error
}
