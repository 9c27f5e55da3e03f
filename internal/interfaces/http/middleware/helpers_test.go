package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/domain/tenant"
	"github.com/vendora/backend/internal/infrastructure/auth"
	"github.com/vendora/backend/internal/infrastructure/config"
	"github.com/vendora/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(blacklist auth.TokenBlacklist) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars!!",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "vendora-test",
	}, blacklist)
}

func tokenFor(t *testing.T, svc *auth.JWTService, id tenant.Identity) string {
	t.Helper()
	tok, err := svc.GenerateAccessToken(id)
	require.NoError(t, err)
	return tok.Token
}

var (
	seller = tenant.Identity{TenantID: "acme", UserID: "u-1", Role: tenant.RoleSeller}
	admin  = tenant.Identity{TenantID: "ops", UserID: "root", Role: tenant.RoleAdmin}
)

// withIdentity binds id on the request context, standing in for JWTAuth + BindTenant
func withIdentity(id tenant.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(tenant.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func perform(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"ok": true}))
}
