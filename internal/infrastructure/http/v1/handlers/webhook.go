package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storeops/internal/domain/shipping"
	"storeops/internal/domain/webhook"
	"storeops/internal/infrastructure/http/v1/dto"
	"storeops/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

// PaymentWebhook processes PayOS deliveries.
type PaymentWebhook interface {
	HandleWebhook(ctx context.Context, raw []byte) webhook.Result
}

// CarrierWebhook processes GHN deliveries.
type CarrierWebhook interface {
	HandleWebhook(ctx context.Context, ev shipping.CarrierEvent, raw []byte) webhook.Result
}

// WebhookHandler receives provider callbacks. Providers retry on anything
// but 200, so every answer is 200 and the outcome travels in the body.
type WebhookHandler struct {
	payments PaymentWebhook
	carrier  CarrierWebhook
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(payments PaymentWebhook, carrier CarrierWebhook) *WebhookHandler {
	return &WebhookHandler{payments: payments, carrier: carrier}
}

// PayOS handles POST /payments/payos/webhook
func (h *WebhookHandler) PayOS(c *gin.Context) {
	raw, ok := readWebhookBody(c)
	if !ok {
		return
	}
	ack(c, h.payments.HandleWebhook(c.Request.Context(), raw))
}

// GHN handles POST /ghn/webhook
func (h *WebhookHandler) GHN(c *gin.Context) {
	raw, ok := readWebhookBody(c)
	if !ok {
		return
	}

	var ev shipping.CarrierEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		logger.Warn(c.Request.Context(), "unparseable carrier webhook", "error", err)
		ack(c, webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Invalid payload"})
		return
	}
	ack(c, h.carrier.HandleWebhook(c.Request.Context(), ev, raw))
}

func readWebhookBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		logger.Warn(c.Request.Context(), "failed to read webhook body", "error", err)
		ack(c, webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Unreadable body"})
		return nil, false
	}
	if len(raw) > maxWebhookBodyBytes {
		ack(c, webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Body too large"})
		return nil, false
	}
	return raw, true
}

func ack(c *gin.Context, r webhook.Result) {
	c.JSON(http.StatusOK, dto.WebhookAck{Status: r.Status(), Message: r.Message})
}
