package persistence

import (
	"context"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements billing.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds the account for a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID string) (*billing.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", tenantID).First(&model).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// SetPlan upserts the account row with the given plan
func (r *GormAccountRepository) SetPlan(ctx context.Context, tenantID string, plan billing.PlanID) error {
	now := time.Now().UTC()
	model := &models.AccountModel{
		ID:        tenantID,
		PlanID:    string(plan),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"plan_type":  string(plan),
				"updated_at": now,
			}),
		}).
		Create(model).Error
}

var _ billing.AccountRepository = (*GormAccountRepository)(nil)
