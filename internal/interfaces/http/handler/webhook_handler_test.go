package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billingapp "github.com/vendora/backend/internal/application/billing"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/payment"
	"github.com/vendora/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

type stubAdapter struct {
	provider billing.Provider
	event    billing.NormalizedEvent
	err      error
}

func (a stubAdapter) Provider() billing.Provider { return a.provider }

func (a stubAdapter) ParseWebhook(context.Context, http.Header, []byte) (billing.NormalizedEvent, error) {
	return a.event, a.err
}

type stubEngine struct {
	result *billingapp.ProcessResult
	err    error
	events []billing.NormalizedEvent
}

func (e *stubEngine) ProcessEvent(_ context.Context, _ billing.Provider, ev billing.NormalizedEvent) (*billingapp.ProcessResult, error) {
	e.events = append(e.events, ev)
	return e.result, e.err
}

func webhookRouter(registry AdapterRegistry, engine EventProcessor) *gin.Engine {
	h := NewWebhookHandler(registry, engine, 0)
	r := newRouter(nil)
	g := r.Group("/webhooks")
	g.POST("/stripe", h.Stripe)
	g.POST("/pagseguro", h.PagSeguro)
	g.POST("/paddle", h.Paddle)
	return r
}

func postWebhook(r http.Handler, path string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) dto.WebhookAck {
	t.Helper()
	var ack dto.WebhookAck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack), rec.Body.String())
	return ack
}

func TestWebhookHandler_Responses(t *testing.T) {
	event := billing.NormalizedEvent{ID: "evt_1", Type: billing.EventSubscriptionCreated}

	tests := []struct {
		name      string
		adapter   stubAdapter
		engine    *stubEngine
		status    int
		errCode   string
		ack       dto.WebhookAck
		processed int
	}{
		{
			name:      "processed",
			adapter:   stubAdapter{provider: billing.ProviderStripe, event: event},
			engine:    &stubEngine{result: &billingapp.ProcessResult{Processed: true}},
			status:    http.StatusOK,
			ack:       dto.WebhookAck{Received: true},
			processed: 1,
		},
		{
			name:      "duplicate",
			adapter:   stubAdapter{provider: billing.ProviderStripe, event: event},
			engine:    &stubEngine{result: &billingapp.ProcessResult{Duplicate: true}},
			status:    http.StatusOK,
			ack:       dto.WebhookAck{Received: true, Duplicate: true},
			processed: 1,
		},
		{
			name:      "ignored",
			adapter:   stubAdapter{provider: billing.ProviderStripe, event: billing.NormalizedEvent{ID: "evt_2"}},
			engine:    &stubEngine{result: &billingapp.ProcessResult{Processed: true, Ignored: true}},
			status:    http.StatusOK,
			ack:       dto.WebhookAck{Received: true, Ignored: true},
			processed: 1,
		},
		{
			name:    "handler failure is acknowledged",
			adapter: stubAdapter{provider: billing.ProviderStripe, event: event},
			engine: &stubEngine{
				result: &billingapp.ProcessResult{},
				err:    &billing.ReconciliationError{Provider: billing.ProviderStripe, EventID: "evt_1", Err: errors.New("boom")},
			},
			status:    http.StatusOK,
			ack:       dto.WebhookAck{Received: true, Error: "Processing failed"},
			processed: 1,
		},
		{
			name:      "unrecorded failure asks for redelivery",
			adapter:   stubAdapter{provider: billing.ProviderStripe, event: event},
			engine:    &stubEngine{err: errors.New("db down")},
			status:    http.StatusInternalServerError,
			errCode:   dto.ErrCodeInternal,
			processed: 1,
		},
		{
			name:    "bad signature",
			adapter: stubAdapter{provider: billing.ProviderStripe, err: fmt.Errorf("%w: mismatch", payment.ErrInvalidSignature)},
			engine:  &stubEngine{},
			status:  http.StatusUnauthorized,
			errCode: dto.ErrCodeInvalidSignature,
		},
		{
			name:    "undecodable payload",
			adapter: stubAdapter{provider: billing.ProviderStripe, err: &payment.DecodeError{Provider: billing.ProviderStripe, Err: errors.New("eof")}},
			engine:  &stubEngine{},
			status:  http.StatusBadRequest,
			errCode: dto.ErrCodeInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := webhookRouter(payment.NewRegistry(tt.adapter), tt.engine)
			rec := postWebhook(r, "/webhooks/stripe", []byte(`{}`), nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Len(t, tt.engine.events, tt.processed)
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decode(t, rec).Error.Code)
				return
			}
			assert.Equal(t, tt.ack, decodeAck(t, rec))
		})
	}
}

func TestWebhookHandler_ProviderNotConfigured(t *testing.T) {
	engine := &stubEngine{}
	r := webhookRouter(payment.NewRegistry(), engine)

	for _, path := range []string{"/webhooks/stripe", "/webhooks/pagseguro", "/webhooks/paddle"} {
		rec := postWebhook(r, path, []byte(`{}`), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, dto.ErrCodeProviderDisabled, decode(t, rec).Error.Code, path)
	}
	assert.Empty(t, engine.events)
}

func TestWebhookHandler_PayloadTooLarge(t *testing.T) {
	engine := &stubEngine{}
	r := webhookRouter(payment.NewRegistry(stubAdapter{provider: billing.ProviderPaddle}), engine)

	body := []byte(`{"pad":"` + strings.Repeat("x", MaxWebhookPayloadSize) + `"}`)
	rec := postWebhook(r, "/webhooks/paddle", body, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, engine.events)
}

func TestWebhookHandler_PagSeguroEndToEnd(t *testing.T) {
	adapter := payment.NewPagSeguroAdapter("token", zap.NewNop())
	engine := &stubEngine{result: &billingapp.ProcessResult{Processed: true}}
	r := webhookRouter(payment.NewRegistry(adapter), engine)

	body := []byte(`{"id":"ps_evt_9","type":"SUBSCRIPTION.CANCELED","created_at":"2026-02-01T12:00:00Z",
"data":{"id":"ps_sub_9","reference_id":"acme","status":"CANCELED","plan":{"id":"pro"}}}`)
	header := http.Header{}
	header.Set(payment.PagSeguroSignatureHeader, adapter.Sign(body))

	rec := postWebhook(r, "/webhooks/pagseguro", body, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeAck(t, rec).Received)
	require.Len(t, engine.events, 1)
	assert.Equal(t, "ps_evt_9", engine.events[0].ID)
	assert.Equal(t, billing.EventSubscriptionDeleted, engine.events[0].Type)

	header.Set(payment.PagSeguroSignatureHeader, "forged")
	rec = postWebhook(r, "/webhooks/pagseguro", body, header)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, engine.events, 1)
}
