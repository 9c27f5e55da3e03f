package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements billing.WebhookEventRepository using GORM.
// The (provider, event_id) unique index is the deduplication key.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// FindByProviderEventID finds the dedup record for a provider event
func (r *GormWebhookEventRepository) FindByProviderEventID(ctx context.Context, provider billing.Provider, providerEventID string) (*billing.WebhookEvent, error) {
	var model models.WebhookEventModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", string(provider), providerEventID).
		First(&model).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new dedup record. A concurrent or earlier insert of the
// same provider event yields billing.ErrDuplicateEvent.
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *billing.WebhookEvent) error {
	err := r.db.WithContext(ctx).Create(models.WebhookEventModelFromDomain(event)).Error
	if isDuplicateKey(err) {
		return billing.ErrDuplicateEvent
	}
	return err
}

// IncrementRetry bumps the retry counter of an unprocessed record
func (r *GormWebhookEventRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{
		"retry_count": gorm.Expr("retry_count + 1"),
		"updated_at":  time.Now().UTC(),
	})
}

// MarkProcessed flags the record processed and clears the last error
func (r *GormWebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"processed":    true,
		"processed_at": at,
		"error":        "",
		"updated_at":   time.Now().UTC(),
	})
}

// RecordFailure stores the error of a failed processing attempt
func (r *GormWebhookEventRepository) RecordFailure(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, id, map[string]any{
		"error":      message,
		"updated_at": time.Now().UTC(),
	})
}

func (r *GormWebhookEventRepository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return mapNotFound(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ billing.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
