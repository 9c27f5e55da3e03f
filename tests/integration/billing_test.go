package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billingapp "github.com/vendora/backend/internal/application/billing"
	commerceapp "github.com/vendora/backend/internal/application/commerce"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/shared"
	"github.com/vendora/backend/internal/domain/tenant"
	"github.com/vendora/backend/internal/infrastructure/auth"
	"github.com/vendora/backend/internal/infrastructure/config"
	"github.com/vendora/backend/internal/infrastructure/payment"
	"github.com/vendora/backend/internal/infrastructure/persistence"
	"github.com/vendora/backend/internal/interfaces/http/handler"
	"github.com/vendora/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// stack is the service graph cmd/server builds, over a test database
type stack struct {
	db       *TestDB
	usage    *billingapp.UsageService
	ledger   *billingapp.LedgerService
	engine   *billingapp.ReconciliationEngine
	gate     *billingapp.AdmissionGate
	commerce *commerceapp.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := NewTestDB(t)
	log := zap.NewNop()

	store := persistence.NewGormLedgerStore(db.DB)
	usage := billingapp.NewUsageService(billingapp.UsageServiceConfig{
		UsageRepo: persistence.NewGormUsageRecordRepository(db.DB),
		Counter:   persistence.NewGormUsageCounter(db.DB),
		Accounts:  persistence.NewGormAccountRepository(db.DB),
		Logger:    log,
	})
	return &stack{
		db:     db,
		usage:  usage,
		ledger: billingapp.NewLedgerService(billingapp.LedgerServiceConfig{Store: store, Logger: log}),
		engine: billingapp.NewReconciliationEngine(billingapp.ReconciliationEngineConfig{
			Events: persistence.NewGormWebhookEventRepository(db.DB),
			Store:  store,
			Logger: log,
		}),
		gate:     billingapp.NewAdmissionGate(usage, nil, log),
		commerce: commerceapp.NewService(persistence.NewGormCommerceRepository(db.Tenant()), usage, log),
	}
}

func seller(tenantID string) context.Context {
	return tenant.WithIdentity(context.Background(), tenant.Identity{
		TenantID: tenantID,
		UserID:   "u-" + tenantID,
		Role:     tenant.RoleSeller,
	})
}

func subscriptionEvent(id string, typ billing.EventType, status string) billing.NormalizedEvent {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return billing.NormalizedEvent{
		ID:           id,
		Type:         typ,
		ProviderType: string(typ),
		OccurredAt:   start,
		Payload:      []byte(`{"id":"` + id + `"}`),
		Subscription: &billing.SubscriptionPayload{
			ProviderSubscriptionID: "sub_123",
			ProviderCustomerID:     "cus_9",
			TenantID:               "acme",
			PlanID:                 billing.PlanPro,
			Status:                 status,
			CurrentPeriodStart:     start,
			CurrentPeriodEnd:       start.AddDate(0, 1, 0),
		},
	}
}

func TestMigrations_CreateSchema(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{
		"accounts", "subscriptions", "usage_records", "webhook_events",
		"audit_logs", "products", "customers", "orders",
	} {
		var exists bool
		require.NoError(t, db.DB.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = 'public' AND tablename = ?)`, table,
		).Scan(&exists).Error)
		assert.True(t, exists, table)
	}
}

func TestWebhook_ConcurrentRedeliveryRecordsOnce(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ev := subscriptionEvent("evt_concurrent", billing.EventSubscriptionCreated, "active")

	const deliveries = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*billingapp.ProcessResult
		errs    []error
	)
	for range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe, ev)
			mu.Lock()
			defer mu.Unlock()
			results = append(results, res)
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		var recErr *billing.ReconciliationError
		if err != nil && !errors.As(err, &recErr) {
			t.Fatalf("delivery was not recorded: %v", err)
		}
	}
	assert.Equal(t, int64(1), s.db.Count("webhook_events", "provider = ? AND event_id = ?", "stripe", "evt_concurrent"))
	assert.Equal(t, int64(1), s.db.Count("subscriptions", "provider_subscription_id = ?", "sub_123"))

	// a later redelivery always sees the processed record
	res, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe, ev)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	plan, err := s.ledger.GetAccountPlan(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanPro, plan)
}

func TestWebhook_CreatedAndUpdatedRaceKeepsOneSubscription(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	created := subscriptionEvent("evt_created", billing.EventSubscriptionCreated, "active")
	updated := subscriptionEvent("evt_updated", billing.EventSubscriptionUpdated, "active")
	updated.Subscription.CancelAtPeriodEnd = true

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ev := range []billing.NormalizedEvent{created, updated} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.engine.ProcessEvent(ctx, billing.ProviderStripe, ev)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, int64(1), s.db.Count("subscriptions", "payment_provider = ? AND provider_subscription_id = ?", "stripe", "sub_123"))

	_, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe,
		subscriptionEvent("evt_deleted", billing.EventSubscriptionDeleted, "canceled"))
	require.NoError(t, err)

	_, err = s.ledger.GetActiveSubscription(ctx, "acme")
	assert.ErrorIs(t, err, shared.ErrNotFound, "no subscription stays active after cancellation")
	plan, err := s.ledger.GetAccountPlan(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanFree, plan)
}

func TestWebhook_DuplicateLeavesLedgerUntouched(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ev := subscriptionEvent("evt_1", billing.EventSubscriptionCreated, "active")

	first, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe, ev)
	require.NoError(t, err)
	assert.True(t, first.Processed)
	audits := s.db.Count("audit_logs", "")

	second, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe, ev)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Processed)

	assert.Equal(t, audits, s.db.Count("audit_logs", ""))
	assert.Equal(t, int64(1), s.db.Count("subscriptions", "provider_subscription_id = ?", "sub_123"))
}

func TestWebhook_DoubleCancel(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe,
		subscriptionEvent("evt_create", billing.EventSubscriptionCreated, "active"))
	require.NoError(t, err)

	_, err = s.engine.ProcessEvent(ctx, billing.ProviderStripe,
		subscriptionEvent("evt_del_1", billing.EventSubscriptionDeleted, "canceled"))
	require.NoError(t, err)
	audits := s.db.Count("audit_logs", "")

	res, err := s.engine.ProcessEvent(ctx, billing.ProviderStripe,
		subscriptionEvent("evt_del_2", billing.EventSubscriptionDeleted, "canceled"))
	require.NoError(t, err)
	assert.True(t, res.Processed)

	// the second cancellation is recorded but changes nothing
	assert.Equal(t, audits, s.db.Count("audit_logs", ""))
	assert.Equal(t, int64(1), s.db.Count("subscriptions", "provider_subscription_id = ? AND status = ?", "sub_123", "canceled"))

	plan, err := s.ledger.GetAccountPlan(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanFree, plan)

	// a late payment does not revive it
	_, err = s.engine.ProcessEvent(ctx, billing.ProviderStripe,
		subscriptionEvent("evt_pay", billing.EventPaymentSucceeded, "active"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.db.Count("subscriptions", "status = ?", "canceled"))
}

func TestAdmission_ProQuotaBoundary(t *testing.T) {
	s := newStack(t)
	ctx := seller("acme")
	require.NoError(t, s.ledger.UpdatePlan(context.Background(), "acme", billing.PlanPro))

	require.NoError(t, s.db.DB.Exec(`
		INSERT INTO products (id, tenant_id, name, price)
		SELECT gen_random_uuid(), 'acme', 'Produto ' || g, 10
		FROM generate_series(1, 499) AS g`).Error)
	// another tenant's rows never count
	require.NoError(t, s.db.DB.Exec(`
		INSERT INTO products (id, tenant_id, name) VALUES (gen_random_uuid(), 'globex', 'Outro')`).Error)

	check, err := s.gate.Admit(ctx, billing.ResourceProduct)
	require.NoError(t, err)
	require.NotNil(t, check)
	assert.Equal(t, int64(499), check.Current)
	assert.Equal(t, int64(1), check.Remaining)

	_, err = s.commerce.CreateProduct(ctx, commerceapp.CreateProductRequest{Name: "Caneca", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	check, err = s.gate.Admit(ctx, billing.ResourceProduct)
	var quotaErr *billing.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(500), check.Current)
	assert.Equal(t, int64(500), check.Limit)
	assert.Equal(t, billing.PlanPro, check.PlanID)

	// upgrading lifts the limit
	require.NoError(t, s.ledger.UpdatePlan(context.Background(), "acme", billing.PlanEnterprise))
	check, err = s.gate.Admit(ctx, billing.ResourceProduct)
	require.NoError(t, err)
	assert.True(t, check.Unlimited)
}

func TestWebhook_PagSeguroRenewalKeepsStoredPlan(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.ledger.CreateSubscription(ctx, billing.NewSubscriptionInput{
		TenantID:               "acme",
		PlanID:                 billing.PlanEnterprise,
		Provider:               billing.ProviderPagSeguro,
		ProviderSubscriptionID: "SUBS_1",
	})
	require.NoError(t, err)

	adapter := payment.NewPagSeguroAdapter("ps-token", zap.NewNop())
	body := []byte(`{"id":"ps_evt_renew","type":"SUBSCRIPTION.RENEWED","created_at":"2026-03-01T12:00:00Z",` +
		`"data":{"id":"SUBS_1","reference_id":"acme","status":"ACTIVE","plan":{"id":"PLAN_8F2C"}}}`)
	header := http.Header{}
	header.Set(payment.PagSeguroSignatureHeader, adapter.Sign(body))

	ev, err := adapter.ParseWebhook(ctx, header, body)
	require.NoError(t, err)
	res, err := s.engine.ProcessEvent(ctx, billing.ProviderPagSeguro, ev)
	require.NoError(t, err)
	assert.True(t, res.Processed)

	plan, err := s.ledger.GetAccountPlan(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanEnterprise, plan)

	sub, err := s.ledger.GetActiveSubscription(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanEnterprise, sub.PlanID)
}

func TestAPI_PagSeguroWebhookUpgradesAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newStack(t)

	cfg := config.BillingConfig{PagSeguroWebhookToken: "ps-token"}
	registry := payment.NewRegistryFromConfig(cfg, zap.NewNop())
	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                "integration-secret-at-least-32-chars",
		AccessTokenExpiration: time.Minute,
		Issuer:                "vendora-test",
	}, auth.NewInMemoryTokenBlacklist())

	engine := router.NewEngine(router.EngineConfig{ServiceName: "vendora-test", MaxBodySize: 1 << 20}, zap.NewNop())
	r := router.NewRouter(engine)
	router.RegisterAPI(r, router.Handlers{
		Subscription: handler.NewSubscriptionHandler(s.usage, s.ledger),
		Resource:     handler.NewResourceHandler(s.commerce),
		Report:       handler.NewReportHandler(s.usage),
		Admin:        handler.NewAdminHandler(s.ledger, s.usage),
		Webhook:      handler.NewWebhookHandler(registry, s.engine, 0),
	}, router.Guards{Tokens: jwt, Gate: s.gate, Plans: s.ledger})
	r.Setup()

	body := `{"id":"ps_evt_9","type":"SUBSCRIPTION.ACTIVATED","created_at":"2026-03-01T12:00:00Z",` +
		`"data":{"id":"ps_sub_9","reference_id":"acme","status":"PENDING","next_invoice_at":"2026-04-01T00:00:00Z"}}`
	sign := payment.NewPagSeguroAdapter("ps-token", zap.NewNop()).Sign([]byte(body))

	deliver := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(payment.PagSeguroSignatureHeader, sign)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	w := deliver()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	w = deliver()
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, w.Body.String())

	tok, err := jwt.GenerateAccessToken(tenant.Identity{TenantID: "acme", UserID: "u-1", Role: tenant.RoleSeller})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/current", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"plan":"pro"`)
	assert.Contains(t, w.Body.String(), `"provider_subscription_id":"ps_sub_9"`)
}
