package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/tenant"
	"github.com/vendora/backend/internal/infrastructure/logger"
	"github.com/vendora/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlanKey is the gin context key of the resolved plan definition
const PlanKey = "tenant_plan"

// PlanResolver returns the current plan of a tenant
type PlanResolver interface {
	GetPlanDefinition(ctx context.Context, tenantID string) (billing.PlanDefinition, error)
}

// RequireFeature refuses with 403 FEATURE_NOT_AVAILABLE unless the bound
// tenant's plan unlocks feature. Admins always pass.
func RequireFeature(plans PlanResolver, feature billing.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, ok := resolvePlan(c, plans)
		if !ok {
			return
		}
		if plan != nil && !plan.HasFeature(feature) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeFeatureNotAvailable,
				fmt.Sprintf("The %s feature is not available on the %s plan. Upgrade to unlock it.",
					formatFeatureName(feature), plan.Name),
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// RequirePlan refuses with 403 PLAN_REQUIRED unless the bound tenant is on one of allowed
func RequirePlan(plans PlanResolver, allowed ...billing.PlanID) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, ok := resolvePlan(c, plans)
		if !ok {
			return
		}
		if plan != nil && !slices.Contains(allowed, plan.ID) {
			names := make([]string, len(allowed))
			for i, p := range allowed {
				names[i] = p.String()
			}
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodePlanRequired,
				"This action requires one of the plans: "+strings.Join(names, ", "),
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// resolvePlan loads the bound tenant's plan. It returns (nil, true) for
// admins and (nil, false) after aborting the request.
func resolvePlan(c *gin.Context, plans PlanResolver) (*billing.PlanDefinition, bool) {
	ctx := c.Request.Context()
	id, bound := tenant.Current(ctx)
	if bound && id.IsAdmin() {
		return nil, true
	}
	if !bound || id.TenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeTenantRequired, "Tenant context required", GetRequestID(c),
		))
		return nil, false
	}

	plan, err := plans.GetPlanDefinition(ctx, id.TenantID)
	if err != nil {
		logger.L(ctx).Error("Failed to resolve tenant plan", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "Failed to resolve plan", GetRequestID(c),
		))
		return nil, false
	}
	c.Set(PlanKey, plan)
	return &plan, true
}

// formatFeatureName turns export_data into "Export Data"
func formatFeatureName(f billing.Feature) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(f), "_", " "))
}
