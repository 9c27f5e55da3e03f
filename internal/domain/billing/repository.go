package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountRepository reads and writes the account plan
type AccountRepository interface {
	// FindByID returns shared.ErrNotFound when the account does not exist
	FindByID(ctx context.Context, tenantID string) (*Account, error)
	// SetPlan upserts the account row with the given plan
	SetPlan(ctx context.Context, tenantID string, plan PlanID) error
}

// UsageRecordRepository persists usage snapshots
type UsageRecordRepository interface {
	// FindByPeriod returns shared.ErrNotFound when no snapshot exists
	FindByPeriod(ctx context.Context, tenantID string, periodStart time.Time) (*UsageRecord, error)
	// CreateIfAbsent inserts the record unless one already exists for the period
	CreateIfAbsent(ctx context.Context, record *UsageRecord) error
	// Upsert inserts or overwrites the counts for the period
	Upsert(ctx context.Context, record *UsageRecord) error
}

// UsageCounter live-counts a tenant's quota-relevant entities
type UsageCounter interface {
	CountProducts(ctx context.Context, tenantID string) (int64, error)
	CountOrders(ctx context.Context, tenantID string, from, to time.Time) (int64, error)
	CountActiveCustomers(ctx context.Context, tenantID string) (int64, error)
}

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindByProviderID(ctx context.Context, provider Provider, providerSubscriptionID string) (*Subscription, error)
	// FindActiveByTenant returns the newest active or trialing subscription
	FindActiveByTenant(ctx context.Context, tenantID string) (*Subscription, error)
	// Create inserts a new subscription and returns ErrDuplicateSubscription
	// when its provider reference is already taken
	Create(ctx context.Context, sub *Subscription) error
	Save(ctx context.Context, sub *Subscription) error
}

// WebhookEventRepository persists webhook deduplication records
type WebhookEventRepository interface {
	FindByProviderEventID(ctx context.Context, provider Provider, providerEventID string) (*WebhookEvent, error)
	// Create returns ErrDuplicateEvent when the record already exists
	Create(ctx context.Context, event *WebhookEvent) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordFailure(ctx context.Context, id uuid.UUID, message string) error
}

// AuditLogRepository appends audit entries
type AuditLogRepository interface {
	Create(ctx context.Context, entry *AuditEntry) error
}

// Ledger groups the repositories mutated together by one ledger operation
type Ledger struct {
	Accounts      AccountRepository
	Subscriptions SubscriptionRepository
	Audit         AuditLogRepository
}

// LedgerStore runs ledger mutations atomically
type LedgerStore interface {
	// Ledger returns repositories bound to the root connection
	Ledger() Ledger
	// WithinTx runs fn with repositories bound to a single transaction
	WithinTx(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
}
