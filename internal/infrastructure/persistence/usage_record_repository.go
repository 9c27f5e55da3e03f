package persistence

import (
	"context"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUsageRecordRepository implements billing.UsageRecordRepository using GORM.
// Period bounds are stored in UTC so the (tenant_id, period_start) key compares exactly.
type GormUsageRecordRepository struct {
	db *gorm.DB
}

// NewGormUsageRecordRepository creates a new GormUsageRecordRepository
func NewGormUsageRecordRepository(db *gorm.DB) *GormUsageRecordRepository {
	return &GormUsageRecordRepository{db: db}
}

var usagePeriodKey = []clause.Column{{Name: "tenant_id"}, {Name: "period_start"}}

// FindByPeriod returns the snapshot for the period starting at periodStart
func (r *GormUsageRecordRepository) FindByPeriod(ctx context.Context, tenantID string, periodStart time.Time) (*billing.UsageRecord, error) {
	var model models.UsageRecordModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period_start = ?", tenantID, periodStart.UTC()).
		First(&model).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// CreateIfAbsent inserts the record unless the period already has one.
// Concurrent first reads race here and the loser's insert is a no-op.
func (r *GormUsageRecordRepository) CreateIfAbsent(ctx context.Context, record *billing.UsageRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   usagePeriodKey,
			DoNothing: true,
		}).
		Create(toUsageModel(record)).Error
}

// Upsert inserts or overwrites the counts for the period
func (r *GormUsageRecordRepository) Upsert(ctx context.Context, record *billing.UsageRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   usagePeriodKey,
			DoUpdates: clause.AssignmentColumns([]string{"products_count", "orders_count", "customers_count", "period_end", "updated_at"}),
		}).
		Create(toUsageModel(record)).Error
}

func toUsageModel(record *billing.UsageRecord) *models.UsageRecordModel {
	m := models.UsageRecordModelFromDomain(record)
	m.PeriodStart = m.PeriodStart.UTC()
	m.PeriodEnd = m.PeriodEnd.UTC()
	return m
}

var _ billing.UsageRecordRepository = (*GormUsageRecordRepository)(nil)
