package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
)

// Repository manages persistence for local payment intent mirrors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindByProcessorID(ctx context.Context, processorID string) (*models.PaymentIntent, error)
	FindActiveByAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (*models.PaymentIntent, error)
	Insert(ctx context.Context, intent *models.PaymentIntent) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentIntentStatus) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkRefunded(ctx context.Context, id uuid.UUID, reason string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment intent repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindByProcessorID(ctx context.Context, processorID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("processor_intent_id = ?", processorID).
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindActiveByAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Where("status IN ?", []enums.PaymentIntentStatus{
			enums.PaymentIntentStatusCreated,
			enums.PaymentIntentStatusRequiresConfirmation,
		}).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) Insert(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentIntentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PaymentIntentStatusFailed,
			"failure_reason": reason,
		}).Error
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.PaymentIntentStatusRefunded,
			"refund_reason": reason,
		}).Error
}
