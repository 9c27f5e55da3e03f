package persistence

import (
	"context"

	"github.com/vendora/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormLedgerStore implements billing.LedgerStore. WithinTx binds every
// repository of the ledger to one database transaction.
type GormLedgerStore struct {
	db *gorm.DB
}

// NewGormLedgerStore creates a new GormLedgerStore
func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{db: db}
}

// Ledger returns repositories bound to the root connection
func (s *GormLedgerStore) Ledger() billing.Ledger {
	return ledgerFor(s.db)
}

// WithinTx runs fn inside a transaction; any error rolls every write back
func (s *GormLedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, l billing.Ledger) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, ledgerFor(tx))
	})
}

func ledgerFor(db *gorm.DB) billing.Ledger {
	return billing.Ledger{
		Accounts:      NewGormAccountRepository(db),
		Subscriptions: NewGormSubscriptionRepository(db),
		Audit:         NewGormAuditLogRepository(db),
	}
}

var _ billing.LedgerStore = (*GormLedgerStore)(nil)
