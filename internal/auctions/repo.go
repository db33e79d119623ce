package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
)

// Repository exposes the auction reads and transitions the settlement
// flow needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an auction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&auction).Error; err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  enums.AuctionStatusPaid,
			"paid_at": paidAt,
		}).Error
}
