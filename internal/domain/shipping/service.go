package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/id"
	"storeops/internal/core/tx"
	"storeops/internal/domain/events"
	"storeops/internal/domain/order"
	"storeops/internal/domain/settings"
	"storeops/internal/domain/webhook"
	"storeops/pkg/logger"
)

// Transitions are the order transitions carrier events trigger.
type Transitions interface {
	CompleteDelivered(ctx context.Context, o *order.Order, deliveredAt time.Time, returnWindowDays int) (bool, error)
	CancelByCarrier(ctx context.Context, o *order.Order) (bool, error)
}

// Deps are the collaborators of Service.
type Deps struct {
	Tx          tx.Manager
	Shipments   Repository
	Orders      order.Repository
	Transitions Transitions
	Journal     webhook.Journal
	Settings    settings.Provider
	Events      events.Publisher
	Clock       clock.Func
}

// Service registers shipments and applies carrier webhooks.
type Service struct {
	txm         tx.Manager
	shipments   Repository
	orders      order.Repository
	transitions Transitions
	journal     webhook.Journal
	settings    settings.Provider
	events      events.Publisher
	now         clock.Func
}

// NewService creates a shipping service.
func NewService(d Deps) *Service {
	now := d.Clock
	if now == nil {
		now = clock.System
	}
	return &Service{
		txm:         d.Tx,
		shipments:   d.Shipments,
		orders:      d.Orders,
		transitions: d.Transitions,
		journal:     d.Journal,
		settings:    d.Settings,
		events:      d.Events,
		now:         now,
	}
}

// Register links an order with the carrier order created for it, creating
// the shipment on first use. Registering again replaces the carrier code.
func (s *Service) Register(ctx context.Context, orderID id.ID, carrierOrderCode string) (*Shipment, error) {
	carrierOrderCode = strings.TrimSpace(carrierOrderCode)
	if carrierOrderCode == "" {
		return nil, apperror.NewValidation("carrier order code is required").WithDetail("field", "carrierOrderCode")
	}

	var result *Shipment
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		unpaid := o.PaymentMethod == order.PaymentPayOS && o.Status == order.StatusPending
		if o.IsTerminal() || unpaid {
			return apperror.NewInvalidOrderState(o.ID, string(o.Status), "ship")
		}

		now := s.now()
		sh, err := s.shipments.GetByOrderID(ctx, o.ID)
		switch {
		case err == nil:
			sh.CarrierOrderCode = carrierOrderCode
			sh.UpdatedAt = now
			if err := s.shipments.Update(ctx, sh); err != nil {
				return err
			}
		case apperror.IsNotFound(err):
			sh = &Shipment{
				ID:               id.New(),
				OrderID:          o.ID,
				Status:           StatusPreparing,
				CarrierOrderCode: carrierOrderCode,
				Version:          1,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := s.shipments.Create(ctx, sh); err != nil {
				return err
			}
		default:
			return err
		}

		result = sh
		return s.publish(ctx, sh)
	})
	return result, err
}

// GetByOrder returns the shipment of an order. A non-nil customerID limits
// access to that customer's orders.
func (s *Service) GetByOrder(ctx context.Context, orderID id.ID, customerID *id.ID) (*Shipment, error) {
	if customerID != nil {
		o, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !o.OwnedBy(*customerID) {
			return nil, apperror.NewAccessDenied("Order belongs to another customer")
		}
	}
	return s.shipments.GetByOrderID(ctx, orderID)
}

// HandleWebhook applies one carrier notification. Like the payment
// webhook it never fails towards the carrier.
func (s *Service) HandleWebhook(ctx context.Context, ev CarrierEvent, raw []byte) webhook.Result {
	if strings.TrimSpace(ev.OrderCode) == "" {
		logger.Warn(ctx, "carrier webhook without order code")
		return webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Missing order code"}
	}

	key := ev.EventKey()
	log := logger.FromContext(ctx).With("carrier_order_code", ev.OrderCode, "carrier_status", ev.Status)

	var result webhook.Result
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		fresh, err := s.journal.Begin(ctx, webhook.Receipt{
			Provider:   webhook.ProviderGHN,
			EventKey:   key,
			Payload:    raw,
			ReceivedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("journal begin: %w", err)
		}
		if !fresh {
			result = webhook.Result{Outcome: webhook.OutcomeDuplicate, Message: "Event already processed"}
			return nil
		}

		result, err = s.apply(ctx, ev)
		if err != nil {
			return err
		}
		return s.journal.Finish(ctx, webhook.ProviderGHN, key, result.Outcome, result.Message)
	})
	if err != nil {
		log.Errorw("carrier webhook processing failed", "error", err)
		return webhook.Result{Outcome: webhook.OutcomeFailed, Message: "Internal error"}
	}

	log.Infow("carrier webhook processed", "outcome", result.Outcome)
	return result
}

func (s *Service) apply(ctx context.Context, ev CarrierEvent) (webhook.Result, error) {
	found, err := s.shipments.GetByCarrierCode(ctx, ev.OrderCode)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "carrier webhook for unknown shipment", "carrier_order_code", ev.OrderCode)
			return webhook.Result{Outcome: webhook.OutcomeIgnored, Message: "Shipment not found"}, nil
		}
		return webhook.Result{}, err
	}

	// order first, then shipment: the same lock order as Register
	o, err := s.orders.GetForUpdate(ctx, found.OrderID)
	if err != nil {
		return webhook.Result{}, err
	}
	sh, err := s.shipments.GetForUpdate(ctx, found.ID)
	if err != nil {
		return webhook.Result{}, err
	}

	now := s.now()
	reportedAt := ParseTime(ev.UpdatedAt, now)
	sh.CarrierStatus = ev.Status
	sh.CarrierUpdatedAt = &reportedAt
	sh.CarrierNote = ev.Note
	sh.UpdatedAt = now

	class, mapped := Classify(ev.Status)
	switch class {
	case ClassProgress:
		if !sh.advance(mapped) {
			logger.Debug(ctx, "carrier status does not advance shipment",
				"shipment_id", sh.ID, "current", sh.Status, "reported", mapped)
		}
	case ClassFailure, ClassCanceled:
		logger.Warn(ctx, "carrier reported a delivery problem",
			"shipment_id", sh.ID, "order_id", o.ID, "carrier_status", ev.Status, "note", ev.Note)
	default:
		logger.Warn(ctx, "unknown carrier status", "shipment_id", sh.ID, "carrier_status", ev.Status)
	}

	if err := s.shipments.Update(ctx, sh); err != nil {
		return webhook.Result{}, err
	}

	message := "Shipment updated"
	switch {
	case class == ClassProgress && mapped == StatusDelivered:
		completed, err := s.transitions.CompleteDelivered(ctx, o, reportedAt, s.settings.ReturnWindowDays(ctx))
		if err != nil {
			return webhook.Result{}, err
		}
		if completed {
			message = "Order completed"
		}
	case class == ClassCanceled:
		canceled, err := s.transitions.CancelByCarrier(ctx, o)
		if err != nil {
			return webhook.Result{}, err
		}
		if canceled {
			message = "Order canceled"
		}
	}

	if err := s.publish(ctx, sh); err != nil {
		return webhook.Result{}, err
	}
	return webhook.Result{Outcome: webhook.OutcomeApplied, Message: message}, nil
}

// EventPayload is the outbox payload of shipment events.
type EventPayload struct {
	ShipmentID       id.ID  `json:"shipmentId"`
	OrderID          id.ID  `json:"orderId"`
	Status           Status `json:"status"`
	CarrierOrderCode string `json:"carrierOrderCode"`
	CarrierStatus    string `json:"carrierStatus,omitempty"`
}

func (s *Service) publish(ctx context.Context, sh *Shipment) error {
	err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateShipment,
		AggregateID:   sh.ID,
		Type:          events.ShipmentUpdated,
		Payload: EventPayload{
			ShipmentID:       sh.ID,
			OrderID:          sh.OrderID,
			Status:           sh.Status,
			CarrierOrderCode: sh.CarrierOrderCode,
			CarrierStatus:    sh.CarrierStatus,
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", events.ShipmentUpdated, err)
	}
	return nil
}
