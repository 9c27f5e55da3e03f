package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/vendora/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// PaddleSignatureHeader carries "ts=<unix>;h1=<hex hmac>"
const PaddleSignatureHeader = "Paddle-Signature"

type paddleEnvelope struct {
	EventID    string     `json:"event_id"`
	EventType  string     `json:"event_type"`
	OccurredAt string     `json:"occurred_at"`
	Data       paddleData `json:"data"`
}

type paddleData struct {
	ID             string            `json:"id"`
	SubscriptionID string            `json:"subscription_id"`
	CustomerID     string            `json:"customer_id"`
	Status         string            `json:"status"`
	CustomData     map[string]string `json:"custom_data"`
	BillingPeriod  *struct {
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
	} `json:"current_billing_period"`
	ScheduledChange *struct {
		Action string `json:"action"`
	} `json:"scheduled_change"`
}

// PaddleAdapter verifies Paddle Billing notifications with the SDK verifier
type PaddleAdapter struct {
	verifier *paddle.WebhookVerifier
	logger   *zap.Logger
}

// NewPaddleAdapter creates a new Paddle adapter
func NewPaddleAdapter(secret string, logger *zap.Logger) *PaddleAdapter {
	return &PaddleAdapter{verifier: paddle.NewWebhookVerifier(secret), logger: logger}
}

// Provider returns billing.ProviderPaddle
func (a *PaddleAdapter) Provider() billing.Provider {
	return billing.ProviderPaddle
}

// ParseWebhook verifies the Paddle-Signature header and decodes the notification
func (a *PaddleAdapter) ParseWebhook(ctx context.Context, header http.Header, body []byte) (billing.NormalizedEvent, error) {
	// The SDK verifier reads the signature and body from a request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhooks/paddle", bytes.NewReader(body))
	if err != nil {
		return billing.NormalizedEvent{}, err
	}
	req.Header.Set(PaddleSignatureHeader, header.Get(PaddleSignatureHeader))

	valid, err := a.verifier.Verify(req)
	if err != nil || !valid {
		return billing.NormalizedEvent{}, ErrInvalidSignature
	}

	var env paddleEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderPaddle, Err: err}
	}
	if env.EventID == "" {
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderPaddle, Err: errors.New("missing event_id")}
	}

	ev := billing.NormalizedEvent{
		ID:           env.EventID,
		ProviderType: env.EventType,
		Payload:      json.RawMessage(body),
		OccurredAt:   parseTimeOrZero(env.OccurredAt),
	}

	subscriptionRef := env.Data.ID
	switch env.EventType {
	case "subscription.created":
		ev.Type = billing.EventSubscriptionCreated
	case "subscription.updated", "subscription.activated", "subscription.resumed",
		"subscription.paused", "subscription.past_due", "subscription.trialing":
		ev.Type = billing.EventSubscriptionUpdated
	case "subscription.canceled":
		ev.Type = billing.EventSubscriptionDeleted
	case "transaction.completed":
		ev.Type = billing.EventPaymentSucceeded
		subscriptionRef = env.Data.SubscriptionID
	case "transaction.payment_failed":
		ev.Type = billing.EventPaymentFailed
		subscriptionRef = env.Data.SubscriptionID
	default:
		a.logger.Debug("Unhandled Paddle event type", zap.String("type", env.EventType))
		return ev, nil
	}

	if subscriptionRef == "" {
		// transaction outside a subscription
		ev.Type = ""
		return ev, nil
	}

	plan, err := parsePlan(env.Data.CustomData["plan_type"])
	if err != nil {
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderPaddle, Err: err}
	}

	p := &billing.SubscriptionPayload{
		ProviderSubscriptionID: subscriptionRef,
		ProviderCustomerID:     env.Data.CustomerID,
		TenantID:               env.Data.CustomData["account_id"],
		PlanID:                 plan,
		Status:                 env.Data.Status,
	}
	if bp := env.Data.BillingPeriod; bp != nil {
		p.CurrentPeriodStart = parseTimeOrZero(bp.StartsAt)
		p.CurrentPeriodEnd = parseTimeOrZero(bp.EndsAt)
	}
	if sc := env.Data.ScheduledChange; sc != nil && strings.EqualFold(sc.Action, "cancel") {
		p.CancelAtPeriodEnd = true
	}
	ev.Subscription = p
	return ev, nil
}
