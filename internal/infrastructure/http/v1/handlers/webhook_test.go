package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/domain/shipping"
	"storeops/internal/domain/webhook"
	"storeops/internal/infrastructure/http/v1/dto"
)

type fakePayments struct {
	result webhook.Result
	raw    []byte
	calls  int
}

func (f *fakePayments) HandleWebhook(_ context.Context, raw []byte) webhook.Result {
	f.calls++
	f.raw = raw
	return f.result
}

type fakeCarrier struct {
	result webhook.Result
	event  shipping.CarrierEvent
	calls  int
}

func (f *fakeCarrier) HandleWebhook(_ context.Context, ev shipping.CarrierEvent, _ []byte) webhook.Result {
	f.calls++
	f.event = ev
	return f.result
}

func newWebhookRouter(p PaymentWebhook, cw CarrierWebhook) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(p, cw)
	r.POST("/payments/payos/webhook", h.PayOS)
	r.POST("/ghn/webhook", h.GHN)
	return r
}

func post(t *testing.T, r http.Handler, path, body string) (int, dto.WebhookAck) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got dto.WebhookAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return w.Code, got
}

func TestPayOSWebhookAlwaysAnswers200(t *testing.T) {
	tests := []struct {
		name       string
		result     webhook.Result
		wantStatus string
	}{
		{"applied", webhook.Result{Outcome: webhook.OutcomeApplied, Message: "Payment confirmed"}, "success"},
		{"duplicate", webhook.Result{Outcome: webhook.OutcomeDuplicate, Message: "Event already processed"}, "success"},
		{"ignored", webhook.Result{Outcome: webhook.OutcomeIgnored, Message: "Order not found"}, "warning"},
		{"bad signature", webhook.Result{Outcome: webhook.OutcomeRejected, Message: "Invalid signature"}, "error"},
		{"internal failure", webhook.Result{Outcome: webhook.OutcomeFailed, Message: "Internal error"}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &fakePayments{result: tt.result}
			r := newWebhookRouter(payments, &fakeCarrier{})

			code, body := post(t, r, "/payments/payos/webhook", `{"code":"00","data":{},"signature":"x"}`)

			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.result.Message, body.Message)
			assert.Equal(t, 1, payments.calls)
			assert.JSONEq(t, `{"code":"00","data":{},"signature":"x"}`, string(payments.raw))
		})
	}
}

func TestGHNWebhookParsesEvent(t *testing.T) {
	carrier := &fakeCarrier{result: webhook.Result{Outcome: webhook.OutcomeApplied, Message: "Shipment updated"}}
	r := newWebhookRouter(&fakePayments{}, carrier)

	code, body := post(t, r, "/ghn/webhook",
		`{"order_code":"GHN123","status":"delivered","updated_at":"2026-05-01T10:00:00Z","client_order_code":"ORD-2026-00001"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body.Status)
	require.Equal(t, 1, carrier.calls)
	assert.Equal(t, "GHN123", carrier.event.OrderCode)
	assert.Equal(t, "delivered", carrier.event.Status)
	assert.Equal(t, "ORD-2026-00001", carrier.event.ClientOrderCode)
}

func TestGHNWebhookRejectsGarbageWith200(t *testing.T) {
	carrier := &fakeCarrier{}
	r := newWebhookRouter(&fakePayments{}, carrier)

	code, body := post(t, r, "/ghn/webhook", `not json`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Invalid payload", body.Message)
	assert.Zero(t, carrier.calls)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	payments := &fakePayments{}
	r := newWebhookRouter(payments, &fakeCarrier{})

	code, body := post(t, r, "/payments/payos/webhook", strings.Repeat("a", maxWebhookBodyBytes+1))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body.Status)
	assert.Zero(t, payments.calls)
}
