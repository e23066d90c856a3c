package memstore

import (
	"context"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/shipping"
)

type shipmentRepo struct{ s *Store }

func (r shipmentRepo) find(ctx context.Context, what string, key any, match func(shipping.Shipment) bool) (*shipping.Shipment, error) {
	var out *shipping.Shipment
	err := r.s.do(ctx, func(st *state) error {
		for _, sh := range st.shipments {
			if match(sh) {
				out = &sh
				return nil
			}
		}
		return apperror.NewNotFound(what, key)
	})
	return out, err
}

func (r shipmentRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*shipping.Shipment, error) {
	return r.find(ctx, "shipment", orderID, func(sh shipping.Shipment) bool { return sh.OrderID == orderID })
}

func (r shipmentRepo) GetByCarrierCode(ctx context.Context, code string) (*shipping.Shipment, error) {
	return r.find(ctx, "shipment", code, func(sh shipping.Shipment) bool { return sh.CarrierOrderCode == code })
}

func (r shipmentRepo) GetForUpdate(ctx context.Context, shipmentID id.ID) (*shipping.Shipment, error) {
	return r.find(ctx, "shipment", shipmentID, func(sh shipping.Shipment) bool { return sh.ID == shipmentID })
}

func (r shipmentRepo) Create(ctx context.Context, sh *shipping.Shipment) error {
	return r.s.do(ctx, func(st *state) error {
		for _, other := range st.shipments {
			if other.OrderID == sh.OrderID {
				return apperror.NewDuplicate("shipment", "order_id", sh.OrderID.String())
			}
		}
		st.shipments[sh.ID] = *sh
		return nil
	})
}

func (r shipmentRepo) Update(ctx context.Context, sh *shipping.Shipment) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.shipments[sh.ID]
		if !ok {
			return apperror.NewNotFound("shipment", sh.ID)
		}
		if stored.Version != sh.Version {
			return apperror.NewConcurrentModification("shipment", sh.ID)
		}
		sh.Version++
		st.shipments[sh.ID] = *sh
		return nil
	})
}
