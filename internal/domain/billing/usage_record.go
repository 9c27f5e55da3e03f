package billing

import (
	"time"

	"github.com/vendora/backend/internal/domain/shared"
)

// UsageRecord is the per-tenant usage snapshot for one calendar month.
// At most one record exists per (TenantID, PeriodStart). It is computed on
// first read and only changes when explicitly refreshed, so it can lag the
// live counts.
type UsageRecord struct {
	shared.BaseEntity
	TenantID       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	ProductsCount  int64
	OrdersCount    int64
	CustomersCount int64
}

// PeriodBounds returns the first and last instant of the calendar month
// containing t, in UTC.
func PeriodBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// NewUsageRecord creates a snapshot for the period containing at
func NewUsageRecord(tenantID string, at time.Time, counts UsageCounts) (*UsageRecord, error) {
	if tenantID == "" {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if counts.Products < 0 || counts.Orders < 0 || counts.Customers < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Usage counts cannot be negative")
	}

	start, end := PeriodBounds(at)
	return &UsageRecord{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		PeriodStart:    start,
		PeriodEnd:      end,
		ProductsCount:  counts.Products,
		OrdersCount:    counts.Orders,
		CustomersCount: counts.Customers,
	}, nil
}

// Count returns the snapshot count for a resource kind
func (r *UsageRecord) Count(kind ResourceKind) int64 {
	switch kind {
	case ResourceProduct:
		return r.ProductsCount
	case ResourceOrder:
		return r.OrdersCount
	case ResourceCustomer:
		return r.CustomersCount
	}
	return 0
}

// Apply overwrites the counts with a fresh computation
func (r *UsageRecord) Apply(counts UsageCounts) {
	r.ProductsCount = counts.Products
	r.OrdersCount = counts.Orders
	r.CustomersCount = counts.Customers
	r.Touch()
}

// UsageCounts is the result of live-counting a tenant's entities
type UsageCounts struct {
	Products  int64
	Orders    int64
	Customers int64
}
