package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/tenant"
)

func sellerCtx(tenantID string) context.Context {
	return tenant.WithIdentity(context.Background(), tenant.Identity{
		TenantID: tenantID,
		UserID:   "user-" + tenantID,
		Role:     tenant.RoleSeller,
	})
}

func TestAdmissionGate_NoTenantIsNoop(t *testing.T) {
	checker := new(MockLimitChecker)
	gate := NewAdmissionGate(checker, nil, nil)

	check, err := gate.Admit(context.Background(), billing.ResourceProduct)
	assert.NoError(t, err)
	assert.Nil(t, check)
	checker.AssertNotCalled(t, "CheckLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmissionGate_AdminBypasses(t *testing.T) {
	checker := new(MockLimitChecker)
	gate := NewAdmissionGate(checker, nil, nil)
	ctx := tenant.WithIdentity(context.Background(), tenant.Identity{TenantID: "acc-1", Role: tenant.RoleAdmin})

	check, err := gate.Admit(ctx, billing.ResourceOrder)
	assert.NoError(t, err)
	assert.Nil(t, check)
	checker.AssertNotCalled(t, "CheckLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmissionGate_Monotonicity(t *testing.T) {
	pro := billing.PlanOrFree(billing.PlanPro)
	enterprise := billing.PlanOrFree(billing.PlanEnterprise)

	tests := []struct {
		name    string
		plan    billing.PlanDefinition
		current int64
		allowed bool
	}{
		{"limit minus one", pro, 499, true},
		{"at limit", pro, 500, false},
		{"unlimited", enterprise, 1_000_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(MockLimitChecker)
			metrics := &recordingMetrics{}
			gate := NewAdmissionGate(checker, metrics, nil)
			ctx := sellerCtx("acc-1")

			check := billing.EvaluateLimit(tt.plan, billing.ResourceProduct, tt.current)
			checker.On("CheckLimit", ctx, "acc-1", billing.ResourceProduct).Return(&check, nil)

			got, err := gate.Admit(ctx, billing.ResourceProduct)
			require.NotNil(t, got)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Empty(t, metrics.rejections)
				return
			}

			var quotaErr *billing.QuotaExceededError
			require.ErrorAs(t, err, &quotaErr)
			assert.Equal(t, billing.ResourceProduct, quotaErr.Kind)
			assert.Equal(t, int64(500), quotaErr.Limit)
			assert.Contains(t, quotaErr.Message, "500 products")
			assert.Equal(t, []billing.ResourceKind{billing.ResourceProduct}, metrics.rejections)
		})
	}
}

func TestAdmissionGate_CheckerError(t *testing.T) {
	checker := new(MockLimitChecker)
	gate := NewAdmissionGate(checker, nil, nil)
	ctx := sellerCtx("acc-1")

	checker.On("CheckLimit", ctx, "acc-1", billing.ResourceCustomer).Return(nil, errors.New("boom"))

	_, err := gate.Admit(ctx, billing.ResourceCustomer)
	require.Error(t, err)
	var quotaErr *billing.QuotaExceededError
	assert.False(t, errors.As(err, &quotaErr))
}
