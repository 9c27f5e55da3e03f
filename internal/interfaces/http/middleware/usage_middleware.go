package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/logger"
	"github.com/vendora/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// LimitInfoKey is the gin context key of the accepted LimitCheck
const LimitInfoKey = "limit_info"

// Admitter decides whether the bound tenant may create one more kind
type Admitter interface {
	Admit(ctx context.Context, kind billing.ResourceKind) (*billing.LimitCheck, error)
}

// RequireQuota refuses the request with 403 QUOTA_EXCEEDED when the bound
// tenant has used up its quota for kind. The accepted check is stored under
// LimitInfoKey; admins and unbound requests pass with nothing stored.
func RequireQuota(gate Admitter, kind billing.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		check, err := gate.Admit(c.Request.Context(), kind)
		if err != nil {
			var quotaErr *billing.QuotaExceededError
			if errors.As(err, &quotaErr) {
				c.AbortWithStatusJSON(http.StatusForbidden, dto.QuotaExceededResponse{
					Success: false,
					Error: dto.QuotaExceededInfo{
						Code:      dto.ErrCodeQuotaExceeded,
						Message:   quotaErr.Message,
						Kind:      quotaErr.Kind.String(),
						Current:   quotaErr.Current,
						Limit:     quotaErr.Limit,
						Plan:      quotaErr.PlanID.String(),
						RequestID: GetRequestID(c),
					},
				})
				return
			}

			logger.L(c.Request.Context()).Error("Quota check failed",
				zap.String("kind", kind.String()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "Failed to check plan limits", GetRequestID(c),
			))
			return
		}

		if check != nil {
			c.Set(LimitInfoKey, check)
		}
		c.Next()
	}
}

// GetLimitInfo returns the check stored by RequireQuota, or nil
func GetLimitInfo(c *gin.Context) *billing.LimitCheck {
	if v, ok := c.Get(LimitInfoKey); ok {
		if check, ok := v.(*billing.LimitCheck); ok {
			return check
		}
	}
	return nil
}
