package billing

import (
	"context"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// LimitChecker answers quota questions for a tenant
type LimitChecker interface {
	CheckLimit(ctx context.Context, tenantID string, kind billing.ResourceKind) (*billing.LimitCheck, error)
}

// AdmissionGate refuses creations that would exceed the bound tenant's quota.
// The check and the creation are not atomic, so concurrent requests at the
// boundary can overshoot by a few entities.
type AdmissionGate struct {
	checker LimitChecker
	metrics Metrics
	logger  *zap.Logger
}

// NewAdmissionGate creates a gate backed by checker
func NewAdmissionGate(checker LimitChecker, metrics Metrics, logger *zap.Logger) *AdmissionGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionGate{
		checker: checker,
		metrics: metricsOrNoop(metrics),
		logger:  logger,
	}
}

// Admit checks the bound tenant's quota for kind. It returns (nil, nil) when
// no tenant is bound or the caller is an admin, the accepted check when
// under quota, and a *billing.QuotaExceededError otherwise.
func (g *AdmissionGate) Admit(ctx context.Context, kind billing.ResourceKind) (*billing.LimitCheck, error) {
	id, ok := tenant.Current(ctx)
	if !ok || id.TenantID == "" || id.IsAdmin() {
		return nil, nil
	}

	check, err := g.checker.CheckLimit(ctx, id.TenantID, kind)
	if err != nil {
		return nil, err
	}

	if !check.Allowed {
		g.metrics.RecordQuotaRejection(ctx, kind, check.PlanID)
		g.logger.Info("Admission refused",
			zap.String("tenant_id", id.TenantID),
			zap.String("kind", kind.String()),
			zap.Int64("current", check.Current),
			zap.Int64("limit", check.Limit),
		)
		return check, billing.NewQuotaExceededError(*check)
	}
	return check, nil
}
