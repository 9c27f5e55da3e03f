package persistence

import (
	"context"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUsageCounter live-counts quota-relevant rows
type GormUsageCounter struct {
	db *gorm.DB
}

// NewGormUsageCounter creates a new GormUsageCounter
func NewGormUsageCounter(db *gorm.DB) *GormUsageCounter {
	return &GormUsageCounter{db: db}
}

// CountProducts counts products that are not soft-deleted
func (c *GormUsageCounter) CountProducts(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&n).Error
	return n, err
}

// CountOrders counts orders created in [from, to]
func (c *GormUsageCounter) CountOrders(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("tenant_id = ? AND created_at >= ? AND created_at <= ?", tenantID, from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}

// CountActiveCustomers counts customers flagged active
func (c *GormUsageCounter) CountActiveCustomers(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Count(&n).Error
	return n, err
}

var _ billing.UsageCounter = (*GormUsageCounter)(nil)
