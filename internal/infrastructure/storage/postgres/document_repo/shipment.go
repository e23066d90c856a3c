package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/shipping"
	"storeops/internal/infrastructure/storage/postgres"
)

const shipmentsTable = "shipments"

// ShipmentRepo implements shipping.Repository.
type ShipmentRepo struct {
	baseRepo[shipping.Shipment]
}

// NewShipmentRepo creates a new shipment repository.
func NewShipmentRepo(txm *postgres.TxManager) *ShipmentRepo {
	return &ShipmentRepo{baseRepo: newBaseRepo[shipping.Shipment](txm, shipmentsTable, "shipment")}
}

func (r *ShipmentRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*shipping.Shipment, error) {
	return r.getOne(ctx, r.selectQuery().Where(squirrel.Eq{"order_id": orderID}), orderID)
}

func (r *ShipmentRepo) GetByCarrierCode(ctx context.Context, carrierOrderCode string) (*shipping.Shipment, error) {
	return r.getOne(ctx, r.selectQuery().Where(squirrel.Eq{"carrier_order_code": carrierOrderCode}), carrierOrderCode)
}

func (r *ShipmentRepo) GetForUpdate(ctx context.Context, shipmentID id.ID) (*shipping.Shipment, error) {
	return r.getOne(ctx, r.selectQuery().Where(squirrel.Eq{"id": shipmentID}).Suffix("FOR UPDATE"), shipmentID)
}

// Create inserts a shipment. An order has at most one.
func (r *ShipmentRepo) Create(ctx context.Context, s *shipping.Shipment) error {
	if err := r.insert(ctx, s); err != nil {
		if postgres.IsUniqueViolation(err, "uq_shipments_order") {
			return apperror.NewDuplicate("shipment", "order_id", s.OrderID.String())
		}
		if postgres.IsUniqueViolation(err, "uq_shipments_carrier_code") {
			return apperror.NewDuplicate("shipment", "carrier_order_code", s.CarrierOrderCode)
		}
		return err
	}
	return nil
}

func (r *ShipmentRepo) Update(ctx context.Context, s *shipping.Shipment) error {
	if err := r.update(ctx, s); err != nil {
		return err
	}
	s.Version++
	return nil
}

var _ shipping.Repository = (*ShipmentRepo)(nil)
