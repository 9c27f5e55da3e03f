package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByID finds a subscription by ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByProviderID finds a subscription by the provider's reference
func (r *GormSubscriptionRepository) FindByProviderID(ctx context.Context, provider billing.Provider, providerSubscriptionID string) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("payment_provider = ? AND provider_subscription_id = ?", string(provider), providerSubscriptionID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindActiveByTenant returns the newest active or trialing subscription
func (r *GormSubscriptionRepository) FindActiveByTenant(ctx context.Context, tenantID string) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, []string{string(billing.StatusActive), string(billing.StatusTrialing)}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new subscription
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *billing.Subscription) error {
	err := r.db.WithContext(ctx).Create(models.SubscriptionModelFromDomain(sub)).Error
	if isDuplicateKey(err) {
		return billing.ErrDuplicateSubscription
	}
	return err
}

// Save inserts or updates a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	return r.db.WithContext(ctx).Save(models.SubscriptionModelFromDomain(sub)).Error
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
