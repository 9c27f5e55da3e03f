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

// handleSubscriptionUpsert applies subscription.created and subscription.updated.
// The stored row mirrors the reported state and the account plan follows it:
// active or trialing grants the subscription plan, canceled downgrades to free,
// other statuses leave the plan alone.
func (e *ReconciliationEngine) handleSubscriptionUpsert(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) error {
	p, err := subscriptionPayload(ev)
	if err != nil {
		return err
	}
	status := e.mapStatus(provider, p.Status)

	err = e.upsertSubscription(ctx, provider, ev, p, status)
	if errors.Is(err, billing.ErrDuplicateSubscription) {
		// another delivery for the same subscription inserted it first
		e.logger.Info("Subscription created concurrently, applying as update",
			zap.String("provider", string(provider)),
			zap.String("event_id", ev.ID),
			zap.String("subscription_id", p.ProviderSubscriptionID),
		)
		err = e.upsertSubscription(ctx, provider, ev, p, status)
	}
	return err
}

func (e *ReconciliationEngine) upsertSubscription(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent, p *billing.SubscriptionPayload, status billing.SubscriptionStatus) error {
	actor := systemActor(provider)
	return e.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		sub, err := findByProvider(ctx, l, provider, p.ProviderSubscriptionID)
		if errors.Is(err, billing.ErrUnknownSubscription) {
			return e.createFromPayload(ctx, l, provider, p, status)
		}
		if err != nil {
			return err
		}

		before := *sub
		if applyPayload(sub, p, status, e.now()) {
			if err := l.Subscriptions.Save(ctx, sub); err != nil {
				return fmt.Errorf("failed to save subscription: %w", err)
			}
			action := billing.AuditUpdate
			if before.Status != sub.Status {
				action = billing.AuditStatusChange
			}
			entry := billing.NewAuditEntry(sub.TenantID, actor, action, billing.AuditEntitySubscription,
				sub.ID.String(), before, sub).WithMeta("event_id", ev.ID)
			if err := l.Audit.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to write audit entry: %w", err)
			}
		}
		return followStatus(ctx, l, sub, actor)
	})
}

func (e *ReconciliationEngine) createFromPayload(ctx context.Context, l billing.Ledger, provider billing.Provider, p *billing.SubscriptionPayload, status billing.SubscriptionStatus) error {
	if p.TenantID == "" {
		e.logger.Warn("Subscription event without account reference",
			zap.String("provider", string(provider)),
			zap.String("subscription_id", p.ProviderSubscriptionID),
		)
		return nil
	}

	plan := p.PlanID
	if plan == "" {
		plan = billing.PlanPro
	}
	sub, err := billing.NewSubscription(billing.NewSubscriptionInput{
		TenantID:               p.TenantID,
		PlanID:                 plan,
		Provider:               provider,
		ProviderSubscriptionID: p.ProviderSubscriptionID,
		ProviderCustomerID:     p.ProviderCustomerID,
		PeriodStart:            p.CurrentPeriodStart,
		PeriodEnd:              p.CurrentPeriodEnd,
		TrialStart:             p.TrialStart,
		TrialEnd:               p.TrialEnd,
		Status:                 status,
	})
	if err != nil {
		return err
	}
	sub.CancelAtPeriodEnd = p.CancelAtPeriodEnd
	if status == billing.StatusCanceled {
		sub.Cancel(e.now())
	}

	if err := l.Subscriptions.Create(ctx, sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	actor := systemActor(provider)
	entry := billing.NewAuditEntry(sub.TenantID, actor, billing.AuditCreate, billing.AuditEntitySubscription,
		sub.ID.String(), nil, sub)
	if err := l.Audit.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	e.logger.Info("Subscription recorded from webhook",
		zap.String("provider", string(provider)),
		zap.String("tenant_id", sub.TenantID),
		zap.String("subscription_id", sub.ProviderSubscriptionID),
		zap.String("status", string(sub.Status)),
	)
	return followStatus(ctx, l, sub, actor)
}

// handleSubscriptionDeleted cancels the subscription and downgrades the account to free
func (e *ReconciliationEngine) handleSubscriptionDeleted(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) error {
	p, err := subscriptionPayload(ev)
	if err != nil {
		return err
	}
	actor := systemActor(provider)

	return e.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		sub, err := findByProvider(ctx, l, provider, p.ProviderSubscriptionID)
		if errors.Is(err, billing.ErrUnknownSubscription) {
			if p.TenantID == "" {
				e.logger.Warn("Cancellation for unknown subscription",
					zap.String("provider", string(provider)),
					zap.String("subscription_id", p.ProviderSubscriptionID),
				)
				return nil
			}
			_, err := assignPlan(ctx, l, p.TenantID, billing.PlanFree, actor, "subscription_deleted")
			return err
		}
		if err != nil {
			return err
		}

		if sub.Status != billing.StatusCanceled {
			before := *sub
			sub.Cancel(e.now())
			if err := l.Subscriptions.Save(ctx, sub); err != nil {
				return fmt.Errorf("failed to save subscription: %w", err)
			}
			entry := billing.NewAuditEntry(sub.TenantID, actor, billing.AuditStatusChange, billing.AuditEntitySubscription,
				sub.ID.String(), before, sub).WithMeta("event_id", ev.ID)
			if err := l.Audit.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to write audit entry: %w", err)
			}
		}

		tenantID := sub.TenantID
		if tenantID == "" {
			tenantID = p.TenantID
		}
		_, err = assignPlan(ctx, l, tenantID, billing.PlanFree, actor, "subscription_deleted")
		return err
	})
}

// handlePaymentSucceeded reactivates the subscription and restores its plan
func (e *ReconciliationEngine) handlePaymentSucceeded(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) error {
	return e.applyPaymentStatus(ctx, provider, ev, billing.StatusActive)
}

// handlePaymentFailed marks the subscription past due. The account plan is unchanged.
func (e *ReconciliationEngine) handlePaymentFailed(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent) error {
	return e.applyPaymentStatus(ctx, provider, ev, billing.StatusPastDue)
}

func (e *ReconciliationEngine) applyPaymentStatus(ctx context.Context, provider billing.Provider, ev billing.NormalizedEvent, status billing.SubscriptionStatus) error {
	p, err := subscriptionPayload(ev)
	if err != nil {
		return err
	}
	actor := systemActor(provider)

	return e.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		sub, err := findByProvider(ctx, l, provider, p.ProviderSubscriptionID)
		if errors.Is(err, billing.ErrUnknownSubscription) {
			e.logger.Info("Payment event for unknown subscription",
				zap.String("provider", string(provider)),
				zap.String("event_id", ev.ID),
				zap.String("subscription_id", p.ProviderSubscriptionID),
			)
			return nil
		}
		if err != nil {
			return err
		}

		// a late payment event never revives a canceled subscription
		if sub.Status == billing.StatusCanceled {
			return nil
		}

		if sub.Status != status {
			before := *sub
			sub.SetStatus(status)
			sub.SetPeriod(p.CurrentPeriodStart, p.CurrentPeriodEnd)
			if err := l.Subscriptions.Save(ctx, sub); err != nil {
				return fmt.Errorf("failed to save subscription: %w", err)
			}
			entry := billing.NewAuditEntry(sub.TenantID, actor, billing.AuditStatusChange, billing.AuditEntitySubscription,
				sub.ID.String(), before, sub).WithMeta("event_id", ev.ID)
			if err := l.Audit.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to write audit entry: %w", err)
			}
		}
		return followStatus(ctx, l, sub, actor)
	})
}

func (e *ReconciliationEngine) mapStatus(provider billing.Provider, raw string) billing.SubscriptionStatus {
	status, ok := billing.MapProviderStatus(provider, raw)
	if !ok {
		e.logger.Warn("Unknown provider subscription status, treating as active",
			zap.String("provider", string(provider)),
			zap.String("status", raw),
		)
	}
	return status
}

// followStatus moves the account plan to match the subscription status
func followStatus(ctx context.Context, l billing.Ledger, sub *billing.Subscription, actor string) error {
	switch {
	case sub.Status.GrantsPlan():
		_, err := assignPlan(ctx, l, sub.TenantID, sub.PlanID, actor, "subscription_"+string(sub.Status))
		return err
	case sub.Status.IsTerminal():
		_, err := assignPlan(ctx, l, sub.TenantID, billing.PlanFree, actor, "subscription_canceled")
		return err
	}
	return nil
}

// applyPayload copies the reported state onto sub and reports whether anything changed
func applyPayload(sub *billing.Subscription, p *billing.SubscriptionPayload, status billing.SubscriptionStatus, now time.Time) bool {
	changed := false
	if sub.Status != status {
		changed = true
		if status == billing.StatusCanceled {
			sub.Cancel(now)
		} else {
			sub.SetStatus(status)
		}
	}
	if p.PlanID != "" && p.PlanID.IsValid() && sub.PlanID != p.PlanID {
		sub.PlanID = p.PlanID
		changed = true
	}
	if (!p.CurrentPeriodStart.IsZero() && !p.CurrentPeriodStart.Equal(sub.CurrentPeriodStart)) ||
		(!p.CurrentPeriodEnd.IsZero() && !p.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd)) {
		sub.SetPeriod(p.CurrentPeriodStart, p.CurrentPeriodEnd)
		changed = true
	}
	if sub.CancelAtPeriodEnd != p.CancelAtPeriodEnd {
		sub.CancelAtPeriodEnd = p.CancelAtPeriodEnd
		changed = true
	}
	if p.ProviderCustomerID != "" && sub.ProviderCustomerID != p.ProviderCustomerID {
		sub.ProviderCustomerID = p.ProviderCustomerID
		changed = true
	}
	if changed {
		sub.Touch()
	}
	return changed
}

func findByProvider(ctx context.Context, l billing.Ledger, provider billing.Provider, providerSubscriptionID string) (*billing.Subscription, error) {
	sub, err := l.Subscriptions.FindByProviderID(ctx, provider, providerSubscriptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, billing.ErrUnknownSubscription
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

func subscriptionPayload(ev billing.NormalizedEvent) (*billing.SubscriptionPayload, error) {
	if ev.Subscription == nil || ev.Subscription.ProviderSubscriptionID == "" {
		return nil, shared.NewDomainError("INVALID_EVENT", "Event carries no subscription reference")
	}
	return ev.Subscription, nil
}

func systemActor(provider billing.Provider) string {
	return "system:" + string(provider)
}
