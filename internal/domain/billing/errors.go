package billing

import (
	"errors"
	"fmt"

	"github.com/vendora/backend/internal/domain/shared"
)

var (
	// ErrUnknownSubscription means an event referenced a subscription the ledger has never seen
	ErrUnknownSubscription = errors.New("unknown subscription reference")
	// ErrDuplicateEvent is returned by the webhook event store when the unique
	// (provider, provider_event_id) constraint rejects an insert
	ErrDuplicateEvent = errors.New("webhook event already recorded")
	// ErrDuplicateSubscription is returned when a subscription with the same
	// (provider, provider_subscription_id) already exists
	ErrDuplicateSubscription = shared.NewDomainError("ALREADY_EXISTS", "Subscription already recorded for this provider reference")
)

// QuotaExceededError is returned when admission is refused for a resource kind
type QuotaExceededError struct {
	Kind    ResourceKind
	Current int64
	Limit   int64
	PlanID  PlanID
	Message string
}

// NewQuotaExceededError builds the rejection with an upgrade prompt for the kind
func NewQuotaExceededError(check LimitCheck) *QuotaExceededError {
	return &QuotaExceededError{
		Kind:    check.Kind,
		Current: check.Current,
		Limit:   check.Limit,
		PlanID:  check.PlanID,
		Message: quotaMessage(check.Kind, check.Limit),
	}
}

func (e *QuotaExceededError) Error() string {
	return e.Message
}

func quotaMessage(kind ResourceKind, limit int64) string {
	switch kind {
	case ResourceOrder:
		return fmt.Sprintf("You have reached the limit of %d orders this month. Upgrade your plan to keep selling.", limit)
	case ResourceCustomer:
		return fmt.Sprintf("You have reached the limit of %d customers on your plan. Upgrade your plan to add more customers.", limit)
	default:
		return fmt.Sprintf("You have reached the limit of %d products on your plan. Upgrade your plan to add more products.", limit)
	}
}

// ReconciliationError wraps a failure while applying a webhook event
type ReconciliationError struct {
	Provider  Provider
	EventID   string
	EventType EventType
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s event %s (%s): %v", e.Provider, e.EventID, e.EventType, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
