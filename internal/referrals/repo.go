package referrals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/db/models"
)

// Repository manages persistence for referral codes and claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCodeByValue(ctx context.Context, code string) (*models.ReferralCode, error)
	InsertClaim(ctx context.Context, claim *models.ReferralClaim) error
	IncrementClaimCount(ctx context.Context, codeID uuid.UUID) (bool, error)
	FindClaimByUser(ctx context.Context, userID uuid.UUID) (*models.ReferralClaim, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCodeByValue(ctx context.Context, code string) (*models.ReferralCode, error) {
	var row models.ReferralCode
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) InsertClaim(ctx context.Context, claim *models.ReferralClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// IncrementClaimCount bumps the counter only while the code is under its
// cap; zero rows affected means a concurrent claimant took the last slot.
func (r *repository) IncrementClaimCount(ctx context.Context, codeID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReferralCode{}).
		Where("id = ? AND (max_claims IS NULL OR claim_count < max_claims)", codeID).
		Update("claim_count", gorm.Expr("claim_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindClaimByUser(ctx context.Context, userID uuid.UUID) (*models.ReferralClaim, error) {
	var row models.ReferralClaim
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
