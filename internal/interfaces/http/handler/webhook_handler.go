package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/vendora/backend/internal/application/billing"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/logger"
	"github.com/vendora/backend/internal/infrastructure/payment"
	"github.com/vendora/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// MaxWebhookPayloadSize is the default cap on provider deliveries
const MaxWebhookPayloadSize = 64 << 10

// EventProcessor applies a verified event to the ledger
type EventProcessor interface {
	ProcessEvent(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) (*billingapp.ProcessResult, error)
}

// AdapterRegistry resolves the adapter of a configured provider
type AdapterRegistry interface {
	Get(provider billing.Provider) (payment.Adapter, error)
}

// WebhookHandler receives payment-provider webhooks. These endpoints are
// called by the providers and do not require authentication; every delivery
// is verified by the provider's adapter instead.
type WebhookHandler struct {
	BaseHandler
	registry   AdapterRegistry
	engine     EventProcessor
	maxPayload int64
}

// NewWebhookHandler creates a new WebhookHandler. A maxPayload of zero
// means MaxWebhookPayloadSize.
func NewWebhookHandler(registry AdapterRegistry, engine EventProcessor, maxPayload int64) *WebhookHandler {
	if maxPayload <= 0 {
		maxPayload = MaxWebhookPayloadSize
	}
	return &WebhookHandler{registry: registry, engine: engine, maxPayload: maxPayload}
}

// MaxPayload returns the configured body cap
func (h *WebhookHandler) MaxPayload() int64 {
	return h.maxPayload
}

// Stripe handles POST /webhooks/stripe
func (h *WebhookHandler) Stripe(c *gin.Context) {
	h.handle(c, billing.ProviderStripe)
}

// PagSeguro handles POST /webhooks/pagseguro
func (h *WebhookHandler) PagSeguro(c *gin.Context) {
	h.handle(c, billing.ProviderPagSeguro)
}

// Paddle handles POST /webhooks/paddle
func (h *WebhookHandler) Paddle(c *gin.Context) {
	h.handle(c, billing.ProviderPaddle)
}

// handle verifies and processes one delivery. Failures before the event is
// recorded answer non-2xx so the provider redelivers; once recorded the
// answer is always 200.
func (h *WebhookHandler) handle(c *gin.Context, provider billing.Provider) {
	ctx := c.Request.Context()
	log := logger.L(ctx).With(zap.String("provider", string(provider)))

	adapter, err := h.registry.Get(provider)
	if err != nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeProviderDisabled, "Payment provider not configured")
		return
	}

	// The adapters verify signatures over the raw body
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPayload+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if int64(len(payload)) > h.maxPayload {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
		return
	}

	ev, err := adapter.ParseWebhook(ctx, c.Request.Header, payload)
	if err != nil {
		var decodeErr *payment.DecodeError
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			log.Warn("Webhook signature verification failed", zap.Error(err))
			h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Invalid webhook signature")
		case errors.As(err, &decodeErr):
			log.Warn("Webhook payload could not be decoded", zap.Error(err))
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidPayload, "Invalid webhook payload")
		default:
			log.Warn("Webhook rejected", zap.Error(err))
			h.BadRequest(c, "Invalid webhook request")
		}
		return
	}

	result, err := h.engine.ProcessEvent(ctx, provider, ev)
	if err != nil {
		var recErr *billing.ReconciliationError
		if !errors.As(err, &recErr) {
			log.Error("Webhook event could not be recorded",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
			h.InternalError(c, "Failed to record webhook event")
			return
		}
		c.JSON(http.StatusOK, dto.WebhookAck{Received: true, Error: "Processing failed"})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAck{
		Received:  true,
		Duplicate: result.Duplicate,
		Ignored:   result.Ignored,
	})
}
