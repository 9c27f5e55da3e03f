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

// UsageService computes usage snapshots and checks them against plan quotas
type UsageService struct {
	usageRepo billing.UsageRecordRepository
	counter   billing.UsageCounter
	accounts  billing.AccountRepository
	logger    *zap.Logger
	now       func() time.Time
}

// UsageServiceConfig contains dependencies for UsageService
type UsageServiceConfig struct {
	UsageRepo billing.UsageRecordRepository
	Counter   billing.UsageCounter
	Accounts  billing.AccountRepository
	Logger    *zap.Logger
	// Now overrides the clock in tests
	Now func() time.Time
}

// NewUsageService creates a new UsageService
func NewUsageService(cfg UsageServiceConfig) *UsageService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &UsageService{
		usageRepo: cfg.UsageRepo,
		counter:   cfg.Counter,
		accounts:  cfg.Accounts,
		logger:    log,
		now:       now,
	}
}

// GetCurrentUsage returns the snapshot for the current calendar month,
// computing and persisting it on first read.
func (s *UsageService) GetCurrentUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error) {
	periodStart, _ := billing.PeriodBounds(s.now())

	record, err := s.usageRepo.FindByPeriod(ctx, tenantID, periodStart)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load usage record: %w", err)
	}

	record, err = s.compute(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// a concurrent first read may have inserted the row already; either way
	// the stored row is the one every caller sees
	if err := s.usageRepo.CreateIfAbsent(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store usage record: %w", err)
	}

	stored, err := s.usageRepo.FindByPeriod(ctx, tenantID, periodStart)
	if err != nil {
		return nil, fmt.Errorf("failed to reload usage record: %w", err)
	}

	s.logger.Debug("Usage snapshot created",
		zap.String("tenant", tenantID),
		zap.Time("period_start", periodStart),
		zap.Int64("products", stored.ProductsCount),
		zap.Int64("orders", stored.OrdersCount),
		zap.Int64("customers", stored.CustomersCount),
	)
	return stored, nil
}

// RefreshUsage recomputes the current snapshot from live counts and overwrites it
func (s *UsageService) RefreshUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error) {
	record, err := s.compute(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.usageRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert usage record: %w", err)
	}

	// an existing row keeps its ID; return what is stored
	stored, err := s.usageRepo.FindByPeriod(ctx, tenantID, record.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("failed to reload usage record: %w", err)
	}

	s.logger.Info("Usage snapshot refreshed",
		zap.String("tenant", tenantID),
		zap.Int64("products", stored.ProductsCount),
		zap.Int64("orders", stored.OrdersCount),
		zap.Int64("customers", stored.CustomersCount),
	)
	return stored, nil
}

// CheckLimit compares the tenant's current usage of kind against its plan quota
func (s *UsageService) CheckLimit(ctx context.Context, tenantID string, kind billing.ResourceKind) (*billing.LimitCheck, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESOURCE_KIND", "Unknown resource kind: "+kind.String())
	}

	plan, err := s.planFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// unlimited quotas never need the snapshot
	if plan.Limit(kind) == billing.Unlimited {
		check := billing.EvaluateLimit(plan, kind, 0)
		return &check, nil
	}

	usage, err := s.GetCurrentUsage(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	check := billing.EvaluateLimit(plan, kind, usage.Count(kind))
	return &check, nil
}

// GetSubscriptionInfo returns the tenant's plan, per-kind usage and features
func (s *UsageService) GetSubscriptionInfo(ctx context.Context, tenantID string) (*SubscriptionInfo, error) {
	plan, err := s.planFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	usage, err := s.GetCurrentUsage(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	info := &SubscriptionInfo{
		PlanID:      plan.ID,
		PlanName:    plan.Name,
		Usage:       make(map[string]UsageDetail, len(billing.AllResourceKinds)),
		Features:    make(map[string]bool, len(billing.AllFeatures)),
		PeriodStart: usage.PeriodStart,
		PeriodEnd:   usage.PeriodEnd,
	}
	for _, kind := range billing.AllResourceKinds {
		check := billing.EvaluateLimit(plan, kind, usage.Count(kind))
		info.Usage[kind.Plural()] = UsageDetail{
			Current:    check.Current,
			Limit:      check.Limit,
			Remaining:  check.Remaining,
			Percentage: check.Percentage(),
			Unlimited:  check.Unlimited,
		}
	}
	for f, enabled := range plan.Features() {
		info.Features[string(f)] = enabled
	}
	return info, nil
}

func (s *UsageService) planFor(ctx context.Context, tenantID string) (billing.PlanDefinition, error) {
	account, err := s.accounts.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.PlanOrFree(billing.PlanFree), nil
		}
		return billing.PlanDefinition{}, fmt.Errorf("failed to load account plan: %w", err)
	}
	return account.Plan(), nil
}

func (s *UsageService) compute(ctx context.Context, tenantID string) (*billing.UsageRecord, error) {
	now := s.now()
	start, end := billing.PeriodBounds(now)

	products, err := s.counter.CountProducts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	orders, err := s.counter.CountOrders(ctx, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	customers, err := s.counter.CountActiveCustomers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	return billing.NewUsageRecord(tenantID, now, billing.UsageCounts{
		Products:  products,
		Orders:    orders,
		Customers: customers,
	})
}
