package sellers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
)

// Repository manages persistence for seller payee accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SellerAccount, error)
	Insert(ctx context.Context, account *models.SellerAccount) error
	UpdateSync(ctx context.Context, id uuid.UUID, status enums.OnboardingStatus, payoutsEnabled bool, syncedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a seller account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SellerAccount, error) {
	var account models.SellerAccount
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Insert(ctx context.Context, account *models.SellerAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) UpdateSync(ctx context.Context, id uuid.UUID, status enums.OnboardingStatus, payoutsEnabled bool, syncedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"payouts_enabled": payoutsEnabled,
			"last_synced_at":  syncedAt,
		}).Error
}
