package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReconciliationEngine applies verified provider events to the ledger exactly once
type ReconciliationEngine struct {
	events  billing.WebhookEventRepository
	store   billing.LedgerStore
	metrics Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// ReconciliationEngineConfig contains dependencies for ReconciliationEngine
type ReconciliationEngineConfig struct {
	Events  billing.WebhookEventRepository
	Store   billing.LedgerStore
	Metrics Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewReconciliationEngine creates a new ReconciliationEngine
func NewReconciliationEngine(cfg ReconciliationEngineConfig) *ReconciliationEngine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ReconciliationEngine{
		events:  cfg.Events,
		store:   cfg.Store,
		metrics: metricsOrNoop(cfg.Metrics),
		logger:  log,
		now:     now,
	}
}

// ProcessEvent records the delivery, dispatches it to its handler and marks it
// processed. A delivery whose record is already processed returns a duplicate
// result without touching the ledger. A handler failure is persisted on the
// record, which stays unprocessed, and returned as *billing.ReconciliationError.
func (e *ReconciliationEngine) ProcessEvent(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) (*ProcessResult, error) {
	started := e.now()
	result := &ProcessResult{Provider: provider, EventID: ev.ID, EventType: ev.Type}

	record, err := e.claim(ctx, provider, ev)
	if err != nil {
		e.metrics.RecordWebhook(ctx, provider, OutcomeFailed, e.now().Sub(started))
		return nil, err
	}
	result.RetryCount = record.RetryCount

	if record.Processed {
		e.logger.Info("Webhook event already processed",
			zap.String("provider", string(provider)),
			zap.String("event_id", ev.ID),
		)
		result.Duplicate = true
		e.metrics.RecordWebhook(ctx, provider, OutcomeDuplicate, e.now().Sub(started))
		return result, nil
	}

	outcome := OutcomeProcessed
	ignored, err := e.dispatch(ctx, provider, ev)
	if err != nil {
		if recErr := e.events.RecordFailure(ctx, record.ID, err.Error()); recErr != nil {
			e.logger.Error("Failed to record webhook failure",
				zap.String("event_id", ev.ID),
				zap.Error(recErr),
			)
		}
		e.logger.Error("Webhook event processing failed",
			zap.String("provider", string(provider)),
			zap.String("event_id", ev.ID),
			zap.String("event_type", string(ev.Type)),
			zap.Int("retry_count", record.RetryCount),
			zap.Error(err),
		)
		e.metrics.RecordWebhook(ctx, provider, OutcomeFailed, e.now().Sub(started))
		return result, &billing.ReconciliationError{
			Provider:  provider,
			EventID:   ev.ID,
			EventType: ev.Type,
			Err:       err,
		}
	}
	if ignored {
		outcome = OutcomeIgnored
		result.Ignored = true
	}

	if err := e.events.MarkProcessed(ctx, record.ID, e.now()); err != nil {
		e.metrics.RecordWebhook(ctx, provider, OutcomeFailed, e.now().Sub(started))
		return result, &billing.ReconciliationError{
			Provider:  provider,
			EventID:   ev.ID,
			EventType: ev.Type,
			Err:       fmt.Errorf("failed to mark event processed: %w", err),
		}
	}

	result.Processed = true
	e.metrics.RecordWebhook(ctx, provider, outcome, e.now().Sub(started))
	return result, nil
}

// claim returns the dedup record for the event, inserting it on first
// delivery and bumping its retry count on redelivery of an unprocessed event.
func (e *ReconciliationEngine) claim(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) (*billing.WebhookEvent, error) {
	existing, err := e.events.FindByProviderEventID(ctx, provider, ev.ID)
	switch {
	case err == nil:
		return e.redeliver(ctx, existing)
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("failed to look up webhook event: %w", err)
	}

	record, err := billing.NewWebhookEvent(provider, ev)
	if err != nil {
		return nil, err
	}
	err = e.events.Create(ctx, record)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, billing.ErrDuplicateEvent) {
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}

	// a concurrent delivery inserted the row first
	existing, err = e.events.FindByProviderEventID(ctx, provider, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload webhook event: %w", err)
	}
	return e.redeliver(ctx, existing)
}

func (e *ReconciliationEngine) redeliver(ctx context.Context, record *billing.WebhookEvent) (*billing.WebhookEvent, error) {
	if record.Processed {
		return record, nil
	}
	if err := e.events.IncrementRetry(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("failed to increment retry count: %w", err)
	}
	record.RetryCount++
	return record, nil
}

// dispatch runs the handler for the event type and reports whether the type was ignored
func (e *ReconciliationEngine) dispatch(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) (bool, error) {
	switch ev.Type {
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return false, e.handleSubscriptionUpsert(ctx, provider, ev)
	case billing.EventSubscriptionDeleted:
		return false, e.handleSubscriptionDeleted(ctx, provider, ev)
	case billing.EventPaymentSucceeded:
		return false, e.handlePaymentSucceeded(ctx, provider, ev)
	case billing.EventPaymentFailed:
		return false, e.handlePaymentFailed(ctx, provider, ev)
	default:
		e.logger.Info("Unhandled webhook event type",
			zap.String("provider", string(provider)),
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.ProviderType),
		)
		return true, nil
	}
}
