package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	billingapp "github.com/vendora/backend/internal/application/billing"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/tenant"
	"github.com/vendora/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var (
	seller = tenant.Identity{TenantID: "acme", UserID: "u-1", Role: tenant.RoleSeller}
	admin  = tenant.Identity{TenantID: "ops", UserID: "root", Role: tenant.RoleAdmin}
)

// envelope mirrors dto.Response with a raw data field
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func newRouter(id *tenant.Identity) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if id != nil {
		bound := *id
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(tenant.WithIdentity(c.Request.Context(), bound))
			c.Next()
		})
	}
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func usageRecord(t *testing.T, tenantID string, products, orders, customers int64) *billing.UsageRecord {
	t.Helper()
	r, err := billing.NewUsageRecord(tenantID, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), billing.UsageCounts{
		Products: products, Orders: orders, Customers: customers,
	})
	require.NoError(t, err)
	return r
}

// mockBilling implements the usage and ledger interfaces of this package
type mockBilling struct {
	mock.Mock
}

func (m *mockBilling) GetCurrentUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID)
	r, _ := args.Get(0).(*billing.UsageRecord)
	return r, args.Error(1)
}

func (m *mockBilling) RefreshUsage(ctx context.Context, tenantID string) (*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID)
	r, _ := args.Get(0).(*billing.UsageRecord)
	return r, args.Error(1)
}

func (m *mockBilling) CheckLimit(ctx context.Context, tenantID string, kind billing.ResourceKind) (*billing.LimitCheck, error) {
	args := m.Called(ctx, tenantID, kind)
	r, _ := args.Get(0).(*billing.LimitCheck)
	return r, args.Error(1)
}

func (m *mockBilling) GetSubscriptionInfo(ctx context.Context, tenantID string) (*billingapp.SubscriptionInfo, error) {
	args := m.Called(ctx, tenantID)
	r, _ := args.Get(0).(*billingapp.SubscriptionInfo)
	return r, args.Error(1)
}

func (m *mockBilling) GetAccountPlan(ctx context.Context, tenantID string) (billing.PlanID, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(billing.PlanID), args.Error(1)
}

func (m *mockBilling) GetActiveSubscription(ctx context.Context, tenantID string) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	r, _ := args.Get(0).(*billing.Subscription)
	return r, args.Error(1)
}

func (m *mockBilling) UpdatePlan(ctx context.Context, tenantID string, plan billing.PlanID) error {
	return m.Called(ctx, tenantID, plan).Error(0)
}

func (m *mockBilling) CreateSubscription(ctx context.Context, in billing.NewSubscriptionInput) (*billing.Subscription, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*billing.Subscription)
	return r, args.Error(1)
}

func (m *mockBilling) CancelSubscription(ctx context.Context, id uuid.UUID, atPeriodEnd bool) (*billing.Subscription, error) {
	args := m.Called(ctx, id, atPeriodEnd)
	r, _ := args.Get(0).(*billing.Subscription)
	return r, args.Error(1)
}
