package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/domain/tenant"
	"github.com/vendora/backend/internal/interfaces/http/dto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BindTenant binds the authenticated identity on the request context. It is
// the only place a tenant gets bound; everything downstream reads it from
// context.Context. Must run after JWTAuth.
func BindTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeTenantRequired, "Tenant context required", GetRequestID(c),
			))
			return
		}

		id := claims.Identity()
		ctx := tenant.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("tenant_id", id.TenantID),
				attribute.String("user_id", id.UserID),
				attribute.String("role", string(id.Role)),
			)
		}
		c.Next()
	}
}

// RequireAdmin rejects callers whose bound role is not admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tenant.IsAdmin(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Administrator access required", GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
