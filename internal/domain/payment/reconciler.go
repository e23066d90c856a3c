package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/tx"
	"storeops/internal/domain/order"
	"storeops/internal/domain/webhook"
	"storeops/pkg/logger"
)

// SuccessCode is the PayOS result code of a paid transaction.
const SuccessCode = "00"

// Webhook is the PayOS notification envelope. Data is kept raw because the
// signature covers its exact bytes.
type Webhook struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// Data is the signed transaction payload.
type Data struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	AccountNumber       string `json:"accountNumber"`
	Reference           string `json:"reference"`
	TransactionDateTime string `json:"transactionDateTime"`
	Currency            string `json:"currency"`
	PaymentLinkID       string `json:"paymentLinkId"`
	Code                string `json:"code"`
	Desc                string `json:"desc"`
}

// Paid reports whether the notification confirms a payment.
func (w *Webhook) Paid(d *Data) bool {
	return w.Code == SuccessCode && (d.Code == "" || d.Code == SuccessCode)
}

// EventKey identifies a delivery for de-duplication.
func (d *Data) EventKey(envelopeCode string) string {
	return strings.Join([]string{d.PaymentLinkID, envelopeCode, d.Reference}, ":")
}

// Transitions are the order transitions a payment outcome triggers.
type Transitions interface {
	ConfirmPaid(ctx context.Context, o *order.Order) error
	CancelUnpaid(ctx context.Context, o *order.Order, reason string) error
}

// Reconciler applies payment webhooks exactly once per distinct event.
type Reconciler struct {
	txm         tx.Manager
	verifier    *Verifier
	orders      order.Repository
	transitions Transitions
	journal     webhook.Journal
	now         clock.Func
}

// NewReconciler creates a payment reconciler.
func NewReconciler(txm tx.Manager, verifier *Verifier, orders order.Repository, transitions Transitions, journal webhook.Journal, now clock.Func) *Reconciler {
	if now == nil {
		now = clock.System
	}
	return &Reconciler{
		txm:         txm,
		verifier:    verifier,
		orders:      orders,
		transitions: transitions,
		journal:     journal,
		now:         now,
	}
}

// HandleWebhook processes one delivery. It never fails: every problem is
// logged and reported in the result, and the provider is always acknowledged.
func (r *Reconciler) HandleWebhook(ctx context.Context, raw []byte) webhook.Result {
	var hook Webhook
	if err := json.Unmarshal(raw, &hook); err != nil {
		logger.Warn(ctx, "unparseable payment webhook", "error", err)
		return webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Invalid payload"}
	}
	if len(hook.Data) == 0 || hook.Signature == "" {
		logger.Warn(ctx, "payment webhook without data or signature")
		return webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Missing signature"}
	}
	if !r.verifier.Verify(hook.Data, hook.Signature) {
		logger.Warn(ctx, "payment webhook signature mismatch")
		return webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Invalid signature"}
	}

	var data Data
	if err := json.Unmarshal(hook.Data, &data); err != nil || data.PaymentLinkID == "" {
		logger.Warn(ctx, "payment webhook without payment link id", "error", err)
		return webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Invalid payload"}
	}

	key := data.EventKey(hook.Code)
	log := logger.FromContext(ctx).With("payment_link_id", data.PaymentLinkID, "code", hook.Code, "event_key", key)

	var result webhook.Result
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		fresh, err := r.journal.Begin(ctx, webhook.Receipt{
			Provider:   webhook.ProviderPayOS,
			EventKey:   key,
			Payload:    raw,
			ReceivedAt: r.now(),
		})
		if err != nil {
			return fmt.Errorf("journal begin: %w", err)
		}
		if !fresh {
			result = webhook.Result{Outcome: webhook.OutcomeDuplicate, Message: "Event already processed"}
			return nil
		}

		result, err = r.apply(ctx, &hook, &data)
		if err != nil {
			return err
		}
		return r.journal.Finish(ctx, webhook.ProviderPayOS, key, result.Outcome, result.Message)
	})
	if err != nil {
		log.Errorw("payment webhook processing failed", "error", err)
		return webhook.Result{Outcome: webhook.OutcomeFailed, Message: "Internal error"}
	}

	log.Infow("payment webhook processed", "outcome", result.Outcome)
	return result
}

func (r *Reconciler) apply(ctx context.Context, hook *Webhook, data *Data) (webhook.Result, error) {
	o, err := r.orders.GetByPaymentLinkForUpdate(ctx, data.PaymentLinkID)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "payment webhook for unknown order", "payment_link_id", data.PaymentLinkID)
			return webhook.Result{Outcome: webhook.OutcomeIgnored, Message: "Order not found"}, nil
		}
		return webhook.Result{}, err
	}

	// PENDING is the only status a payment outcome applies to
	if o.Status != order.StatusPending {
		return webhook.Result{Outcome: webhook.OutcomeStale, Message: "Order already processed"}, nil
	}

	if hook.Paid(data) {
		if data.Amount != o.FinalAmount.IntPart() {
			logger.Warn(ctx, "paid amount differs from order amount",
				"order_id", o.ID, "paid", data.Amount, "expected", o.FinalAmount.String())
		}
		if err := r.transitions.ConfirmPaid(ctx, o); err != nil {
			return webhook.Result{}, err
		}
		return webhook.Result{Outcome: webhook.OutcomeApplied, Message: "Payment confirmed"}, nil
	}

	reason := strings.TrimSpace(hook.Desc + " " + data.Desc)
	if err := r.transitions.CancelUnpaid(ctx, o, reason); err != nil {
		return webhook.Result{}, err
	}
	return webhook.Result{Outcome: webhook.OutcomeApplied, Message: "Order canceled"}, nil
}
