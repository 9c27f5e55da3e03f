package billing

import (
	"encoding/json"
	"time"

	"github.com/vendora/backend/internal/domain/shared"
)

// EventType is the provider-independent webhook event type
type EventType string

const (
	EventSubscriptionCreated EventType = "subscription.created"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
	EventPaymentSucceeded    EventType = "payment.succeeded"
	EventPaymentFailed       EventType = "payment.failed"
)

// IsKnown returns true if the engine has a handler for the type
func (t EventType) IsKnown() bool {
	switch t {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted,
		EventPaymentSucceeded, EventPaymentFailed:
		return true
	}
	return false
}

// SubscriptionPayload is the decoded subscription state carried by an event.
// Status is in the provider's vocabulary.
type SubscriptionPayload struct {
	ProviderSubscriptionID string
	ProviderCustomerID     string
	TenantID               string
	PlanID                 PlanID
	Status                 string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	CancelAtPeriodEnd      bool
}

// NormalizedEvent is what a provider adapter hands to the reconciliation
// engine after verifying and decoding a delivery.
type NormalizedEvent struct {
	ID           string
	Type         EventType
	ProviderType string
	OccurredAt   time.Time
	Payload      json.RawMessage
	Subscription *SubscriptionPayload
}

// WebhookEvent is the deduplication record for one provider event.
// Processed is monotonic: once true it never goes back to false.
type WebhookEvent struct {
	shared.BaseEntity
	Provider        Provider
	ProviderEventID string
	EventType       string
	Payload         json.RawMessage
	Processed       bool
	ProcessedAt     *time.Time
	RetryCount      int
	Error           string
	OccurredAt      *time.Time
}

// NewWebhookEvent creates an unprocessed record for a first delivery
func NewWebhookEvent(provider Provider, ev NormalizedEvent) (*WebhookEvent, error) {
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Unknown payment provider: "+string(provider))
	}
	if ev.ID == "" {
		return nil, shared.NewDomainError("INVALID_EVENT", "Provider event ID cannot be empty")
	}

	eventType := ev.ProviderType
	if eventType == "" {
		eventType = string(ev.Type)
	}

	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	record := &WebhookEvent{
		BaseEntity:      shared.NewBaseEntity(),
		Provider:        provider,
		ProviderEventID: ev.ID,
		EventType:       eventType,
		Payload:         payload,
	}
	if !ev.OccurredAt.IsZero() {
		at := ev.OccurredAt
		record.OccurredAt = &at
	}
	return record, nil
}
