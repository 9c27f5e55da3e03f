package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/domain/shared"
)

// memLedger is an in-memory ledger that counts every mutation
type memLedger struct {
	mu        sync.Mutex
	accounts  map[string]*billing.Account
	subs      map[uuid.UUID]*billing.Subscription
	audit     []*billing.AuditEntry
	mutations int
	failSave  error
	// beforeCreate runs once ahead of the next subscription insert
	beforeCreate func(m *memLedger)
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: map[string]*billing.Account{},
		subs:     map[uuid.UUID]*billing.Subscription{},
	}
}

func (m *memLedger) Ledger() billing.Ledger {
	return billing.Ledger{
		Accounts:      memAccounts{m},
		Subscriptions: memSubscriptions{m},
		Audit:         memAudit{m},
	}
}

func (m *memLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, l billing.Ledger) error) error {
	return fn(ctx, m.Ledger())
}

func (m *memLedger) planOf(tenantID string) billing.PlanID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[tenantID]; ok {
		return a.PlanID
	}
	return ""
}

func (m *memLedger) byProviderID(id string) *billing.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.ProviderSubscriptionID == id {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (m *memLedger) mutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

type memAccounts struct{ m *memLedger }

func (r memAccounts) FindByID(_ context.Context, tenantID string) (*billing.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[tenantID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAccounts) SetPlan(_ context.Context, tenantID string, plan billing.PlanID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.mutations++
	a, ok := r.m.accounts[tenantID]
	if !ok {
		a = &billing.Account{ID: tenantID, CreatedAt: time.Now()}
		r.m.accounts[tenantID] = a
	}
	a.PlanID = plan
	a.UpdatedAt = time.Now()
	return nil
}

type memSubscriptions struct{ m *memLedger }

func (r memSubscriptions) FindByID(_ context.Context, id uuid.UUID) (*billing.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.subs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r memSubscriptions) FindByProviderID(_ context.Context, provider billing.Provider, id string) (*billing.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.subs {
		if s.Provider == provider && s.ProviderSubscriptionID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memSubscriptions) FindActiveByTenant(_ context.Context, tenantID string) (*billing.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var newest *billing.Subscription
	for _, s := range r.m.subs {
		if s.TenantID != tenantID || !s.Status.GrantsPlan() {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, shared.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (r memSubscriptions) Create(_ context.Context, sub *billing.Subscription) error {
	r.m.mu.Lock()
	hook := r.m.beforeCreate
	r.m.beforeCreate = nil
	r.m.mu.Unlock()
	if hook != nil {
		hook(r.m)
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSave != nil {
		return r.m.failSave
	}
	if sub.ProviderSubscriptionID != "" {
		for _, s := range r.m.subs {
			if s.Provider == sub.Provider && s.ProviderSubscriptionID == sub.ProviderSubscriptionID {
				return billing.ErrDuplicateSubscription
			}
		}
	}
	r.m.mutations++
	cp := *sub
	r.m.subs[sub.ID] = &cp
	return nil
}

func (r memSubscriptions) Save(_ context.Context, sub *billing.Subscription) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSave != nil {
		return r.m.failSave
	}
	r.m.mutations++
	cp := *sub
	r.m.subs[sub.ID] = &cp
	return nil
}

type memAudit struct{ m *memLedger }

func (r memAudit) Create(_ context.Context, entry *billing.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.mutations++
	r.m.audit = append(r.m.audit, entry)
	return nil
}

// memEvents is an in-memory webhook event store with a unique (provider, event id) key
type memEvents struct {
	mu      sync.Mutex
	records map[string]*billing.WebhookEvent
}

func newMemEvents() *memEvents {
	return &memEvents{records: map[string]*billing.WebhookEvent{}}
}

func eventKey(p billing.Provider, id string) string { return string(p) + "/" + id }

func (s *memEvents) FindByProviderEventID(_ context.Context, p billing.Provider, id string) (*billing.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[eventKey(p, id)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memEvents) Create(_ context.Context, e *billing.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := eventKey(e.Provider, e.ProviderEventID)
	if _, ok := s.records[k]; ok {
		return billing.ErrDuplicateEvent
	}
	cp := *e
	s.records[k] = &cp
	return nil
}

func (s *memEvents) byID(id uuid.UUID) *billing.WebhookEvent {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *memEvents) IncrementRetry(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.byID(id); r != nil {
		r.RetryCount++
		return nil
	}
	return shared.ErrNotFound
}

func (s *memEvents) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.byID(id); r != nil {
		r.Processed = true
		r.ProcessedAt = &at
		r.Error = ""
		return nil
	}
	return shared.ErrNotFound
}

func (s *memEvents) RecordFailure(_ context.Context, id uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.byID(id); r != nil {
		r.Error = msg
		return nil
	}
	return shared.ErrNotFound
}

func (s *memEvents) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// MockUsageRecordRepository is a mock implementation of billing.UsageRecordRepository
type MockUsageRecordRepository struct {
	mock.Mock
}

func (m *MockUsageRecordRepository) FindByPeriod(ctx context.Context, tenantID string, periodStart time.Time) (*billing.UsageRecord, error) {
	args := m.Called(ctx, tenantID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UsageRecord), args.Error(1)
}

func (m *MockUsageRecordRepository) CreateIfAbsent(ctx context.Context, record *billing.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRecordRepository) Upsert(ctx context.Context, record *billing.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockUsageCounter is a mock implementation of billing.UsageCounter
type MockUsageCounter struct {
	mock.Mock
}

func (m *MockUsageCounter) CountProducts(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageCounter) CountOrders(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageCounter) CountActiveCustomers(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

// MockLimitChecker is a mock implementation of LimitChecker
type MockLimitChecker struct {
	mock.Mock
}

func (m *MockLimitChecker) CheckLimit(ctx context.Context, tenantID string, kind billing.ResourceKind) (*billing.LimitCheck, error) {
	args := m.Called(ctx, tenantID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.LimitCheck), args.Error(1)
}

// recordingMetrics captures metric calls
type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	rejections []billing.ResourceKind
}

func (r *recordingMetrics) RecordWebhook(_ context.Context, _ billing.Provider, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) RecordQuotaRejection(_ context.Context, kind billing.ResourceKind, _ billing.PlanID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, kind)
}
