package referrals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/internal/ledger"
	dbpkg "github.com/bidhaus/backend/pkg/db"
	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type bidcoinCreditor interface {
	EarnTx(ctx context.Context, tx *gorm.DB, input ledger.EarnInput) (int64, error)
}

// Service defines referral claim operations.
type Service interface {
	Claim(ctx context.Context, userID uuid.UUID, code string) (*ClaimResult, error)
}

// ClaimResult reports the credited reward and resulting balance.
type ClaimResult struct {
	ClaimID     uuid.UUID
	Code        string
	RewardUnits int64
	Balance     int64
}

type service struct {
	repo    Repository
	tx      txRunner
	bidcoin bidcoinCreditor
}

// NewService wires the referral claim service with the required dependencies.
func NewService(repo Repository, tx txRunner, bidcoin bidcoinCreditor) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("referrals repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if bidcoin == nil {
		return nil, fmt.Errorf("bidcoin creditor required")
	}
	return &service{repo: repo, tx: tx, bidcoin: bidcoin}, nil
}

// Claim inserts the claim row and credits the reward in one transaction.
// The unique constraint on user_id arbitrates racing claims; a rollback
// leaves neither the claim nor the credit behind.
func (s *service) Claim(ctx context.Context, userID uuid.UUID, code string) (*ClaimResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code required")
	}

	var result *ClaimResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		policy, err := repo.FindCodeByValue(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral code")
		}
		if !policy.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found")
		}
		if policy.MaxClaims != nil && policy.ClaimCount >= *policy.MaxClaims {
			return pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found")
		}

		claim := &models.ReferralClaim{
			UserID: userID,
			CodeID: policy.ID,
			Code:   policy.Code,
		}
		if err := repo.InsertClaim(ctx, claim); err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_referral_claims_user") {
				return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "referral already claimed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert referral claim")
		}

		// The conditional increment is the authoritative cap gate; the
		// read above only short-circuits the common case and may be stale
		// under concurrent claims.
		counted, err := repo.IncrementClaimCount(ctx, policy.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment claim count")
		}
		if !counted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found")
		}

		refID := claim.ID.String()
		refTable := "referral_claims"
		balance, err := s.bidcoin.EarnTx(ctx, tx, ledger.EarnInput{
			UserID:         userID,
			Type:           enums.LedgerEntryTypeReferralBonus,
			AmountUnits:    policy.RewardUnits,
			ReferenceID:    &refID,
			ReferenceTable: &refTable,
		})
		if err != nil {
			return err
		}

		result = &ClaimResult{
			ClaimID:     claim.ID,
			Code:        policy.Code,
			RewardUnits: policy.RewardUnits,
			Balance:     balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
