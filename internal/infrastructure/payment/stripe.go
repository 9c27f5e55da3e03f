package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/vendora/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// Stripe metadata keys set at checkout
const (
	stripeMetaAccountID = "account_id"
	stripeMetaPlanType  = "plan_type"
)

// StripeConfig holds the Stripe webhook settings
type StripeConfig struct {
	WebhookSecret string
	// Tolerance is the maximum signature age; zero uses the library default
	Tolerance time.Duration
	// IgnoreAPIVersion accepts events rendered for another API version
	IgnoreAPIVersion bool
}

// StripeAdapter verifies Stripe-Signature headers and decodes subscription and invoice events
type StripeAdapter struct {
	config StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(cfg StripeConfig, logger *zap.Logger) *StripeAdapter {
	return &StripeAdapter{config: cfg, logger: logger}
}

// Provider returns billing.ProviderStripe
func (a *StripeAdapter) Provider() billing.Provider {
	return billing.ProviderStripe
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event
func (a *StripeAdapter) ParseWebhook(_ context.Context, header http.Header, body []byte) (billing.NormalizedEvent, error) {
	event, err := webhook.ConstructEventWithOptions(body, header.Get("Stripe-Signature"), a.config.WebhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                a.config.Tolerance,
			IgnoreAPIVersionMismatch: a.config.IgnoreAPIVersion,
		})
	if err != nil {
		if isStripeSignatureError(err) {
			return billing.NormalizedEvent{}, ErrInvalidSignature
		}
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderStripe, Err: err}
	}

	ev := billing.NormalizedEvent{
		ID:           event.ID,
		ProviderType: string(event.Type),
		Payload:      json.RawMessage(body),
	}
	if event.Created > 0 {
		ev.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	if event.Data == nil {
		return ev, nil
	}

	switch event.Type {
	case "customer.subscription.created":
		ev.Type = billing.EventSubscriptionCreated
	case "customer.subscription.updated":
		ev.Type = billing.EventSubscriptionUpdated
	case "customer.subscription.deleted":
		ev.Type = billing.EventSubscriptionDeleted
	case "invoice.payment_succeeded", "invoice.paid":
		ev.Type = billing.EventPaymentSucceeded
	case "invoice.payment_failed":
		ev.Type = billing.EventPaymentFailed
	default:
		a.logger.Debug("Unhandled Stripe event type", zap.String("type", string(event.Type)))
		return ev, nil
	}

	if ev.Type == billing.EventPaymentSucceeded || ev.Type == billing.EventPaymentFailed {
		payload, err := decodeStripeInvoice(event.Data.Raw)
		if err != nil {
			return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderStripe, Err: err}
		}
		if payload.ProviderSubscriptionID == "" {
			// one-off invoice, nothing to reconcile
			ev.Type = ""
			return ev, nil
		}
		ev.Subscription = payload
		return ev, nil
	}

	payload, err := decodeStripeSubscription(event.Data.Raw)
	if err != nil {
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderStripe, Err: err}
	}
	ev.Subscription = payload
	return ev, nil
}

func decodeStripeSubscription(raw json.RawMessage) (*billing.SubscriptionPayload, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, err
	}
	plan, err := parsePlan(sub.Metadata[stripeMetaPlanType])
	if err != nil {
		return nil, err
	}

	p := &billing.SubscriptionPayload{
		ProviderSubscriptionID: sub.ID,
		TenantID:               sub.Metadata[stripeMetaAccountID],
		PlanID:                 plan,
		Status:                 string(sub.Status),
		CurrentPeriodStart:     unixOrZero(sub.CurrentPeriodStart),
		CurrentPeriodEnd:       unixOrZero(sub.CurrentPeriodEnd),
		TrialStart:             unixPtr(sub.TrialStart),
		TrialEnd:               unixPtr(sub.TrialEnd),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		p.ProviderCustomerID = sub.Customer.ID
	}
	return p, nil
}

// decodeStripeInvoice extracts the subscription reference of an invoice
func decodeStripeInvoice(raw json.RawMessage) (*billing.SubscriptionPayload, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, err
	}

	meta := inv.Metadata
	if inv.SubscriptionDetails != nil && len(inv.SubscriptionDetails.Metadata) > 0 {
		meta = inv.SubscriptionDetails.Metadata
	}
	plan, err := parsePlan(meta[stripeMetaPlanType])
	if err != nil {
		return nil, err
	}

	p := &billing.SubscriptionPayload{
		TenantID: meta[stripeMetaAccountID],
		PlanID:   plan,
	}
	if inv.Subscription != nil {
		p.ProviderSubscriptionID = inv.Subscription.ID
	}
	if inv.Customer != nil {
		p.ProviderCustomerID = inv.Customer.ID
	}
	return p, nil
}

func isStripeSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}

func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
