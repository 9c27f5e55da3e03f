package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/shared"
	"github.com/vendora/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// LedgerService owns account plans and subscriptions outside of webhook delivery
type LedgerService struct {
	store  billing.LedgerStore
	logger *zap.Logger
	now    func() time.Time
}

// LedgerServiceConfig contains dependencies for LedgerService
type LedgerServiceConfig struct {
	Store  billing.LedgerStore
	Logger *zap.Logger
	Now    func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LedgerService{store: cfg.Store, logger: log, now: now}
}

// GetAccountPlan returns the tenant's current plan, free when no account exists
func (s *LedgerService) GetAccountPlan(ctx context.Context, tenantID string) (billing.PlanID, error) {
	def, err := s.GetPlanDefinition(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return def.ID, nil
}

// GetPlanDefinition returns the catalog entry for the tenant's plan
func (s *LedgerService) GetPlanDefinition(ctx context.Context, tenantID string) (billing.PlanDefinition, error) {
	account, err := s.store.Ledger().Accounts.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.PlanOrFree(billing.PlanFree), nil
		}
		return billing.PlanDefinition{}, fmt.Errorf("failed to load account: %w", err)
	}
	return account.Plan(), nil
}

// HasFeature reports whether the tenant's plan unlocks feature
func (s *LedgerService) HasFeature(ctx context.Context, tenantID string, feature billing.Feature) (bool, error) {
	def, err := s.GetPlanDefinition(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return def.HasFeature(feature), nil
}

// GetActiveSubscription returns the newest active or trialing subscription
func (s *LedgerService) GetActiveSubscription(ctx context.Context, tenantID string) (*billing.Subscription, error) {
	return s.store.Ledger().Subscriptions.FindActiveByTenant(ctx, tenantID)
}

// UpdatePlan assigns plan to the tenant's account
func (s *LedgerService) UpdatePlan(ctx context.Context, tenantID string, plan billing.PlanID) error {
	if !plan.IsValid() {
		return shared.NewDomainError("INVALID_PLAN", "Unknown plan: "+plan.String())
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		_, err := assignPlan(ctx, l, tenantID, plan, actorID(ctx), "admin")
		return err
	})
}

// HandleSubscriptionEnded downgrades the tenant to the free plan
func (s *LedgerService) HandleSubscriptionEnded(ctx context.Context, tenantID string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		_, err := assignPlan(ctx, l, tenantID, billing.PlanFree, actorID(ctx), "subscription_ended")
		return err
	})
}

// CreateSubscription records a subscription and applies its plan when it starts active or trialing
func (s *LedgerService) CreateSubscription(ctx context.Context, in billing.NewSubscriptionInput) (*billing.Subscription, error) {
	if in.Provider == "" {
		in.Provider = billing.ProviderManual
	}
	if in.PeriodStart.IsZero() {
		in.PeriodStart, in.PeriodEnd = billing.PeriodBounds(s.now())
	}

	sub, err := billing.NewSubscription(in)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		if err := l.Subscriptions.Create(ctx, sub); err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		entry := billing.NewAuditEntry(sub.TenantID, actorID(ctx), billing.AuditCreate,
			billing.AuditEntitySubscription, sub.ID.String(), nil, sub)
		if err := l.Audit.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
		if sub.Status.GrantsPlan() {
			if _, err := assignPlan(ctx, l, sub.TenantID, sub.PlanID, actorID(ctx), "subscription_created"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subscription created",
		zap.String("tenant_id", sub.TenantID),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", sub.PlanID.String()),
		zap.String("status", string(sub.Status)),
	)
	return sub, nil
}

// CancelSubscription cancels a subscription. With atPeriodEnd the subscription
// keeps running and is only flagged; otherwise it is canceled now and the
// tenant is downgraded to free.
func (s *LedgerService) CancelSubscription(ctx context.Context, subscriptionID uuid.UUID, atPeriodEnd bool) (*billing.Subscription, error) {
	var result *billing.Subscription
	err := s.store.WithinTx(ctx, func(ctx context.Context, l billing.Ledger) error {
		sub, err := l.Subscriptions.FindByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		before := *sub

		action := billing.AuditUpdate
		if atPeriodEnd {
			sub.ScheduleCancel()
		} else {
			sub.Cancel(s.now())
			action = billing.AuditStatusChange
		}

		if err := l.Subscriptions.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		entry := billing.NewAuditEntry(sub.TenantID, actorID(ctx), action,
			billing.AuditEntitySubscription, sub.ID.String(), before, sub)
		if err := l.Audit.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}

		if !atPeriodEnd {
			if _, err := assignPlan(ctx, l, sub.TenantID, billing.PlanFree, actorID(ctx), "subscription_canceled"); err != nil {
				return err
			}
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// assignPlan sets the account plan and writes a PLAN_CHANGE audit entry.
// It writes nothing when the account already has the plan.
func assignPlan(ctx context.Context, l billing.Ledger, tenantID string, plan billing.PlanID, actor, reason string) (bool, error) {
	current := billing.PlanFree
	account, err := l.Accounts.FindByID(ctx, tenantID)
	switch {
	case err == nil:
		current = account.PlanID
		if current == plan {
			return false, nil
		}
	case errors.Is(err, shared.ErrNotFound):
		// first plan assignment creates the account row
	default:
		return false, fmt.Errorf("failed to load account: %w", err)
	}

	if err := l.Accounts.SetPlan(ctx, tenantID, plan); err != nil {
		return false, fmt.Errorf("failed to update account plan: %w", err)
	}

	entry := billing.NewAuditEntry(tenantID, actor, billing.AuditPlanChange, billing.AuditEntityAccount, tenantID,
		map[string]string{"plan": current.String()},
		map[string]string{"plan": plan.String()},
	).WithMeta("reason", reason)
	if err := l.Audit.Create(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to write audit entry: %w", err)
	}
	return true, nil
}

func actorID(ctx context.Context) string {
	if id, ok := tenant.Current(ctx); ok && id.UserID != "" {
		return id.UserID
	}
	return "system"
}
