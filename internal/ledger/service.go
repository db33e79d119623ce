package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/metrics"
	"github.com/bidhaus/backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the BidCoin balance operations.
type Service interface {
	Earn(ctx context.Context, input EarnInput) (int64, error)
	EarnTx(ctx context.Context, tx *gorm.DB, input EarnInput) (int64, error)
	Spend(ctx context.Context, input SpendInput) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.LedgerMetrics
}

// EarnInput captures a balance credit request.
type EarnInput struct {
	UserID         uuid.UUID
	Type           enums.LedgerEntryType
	AmountUnits    int64
	ReferenceID    *string
	ReferenceTable *string
	Metadata       json.RawMessage
}

// SpendInput captures a balance debit request.
type SpendInput struct {
	UserID         uuid.UUID
	Type           enums.LedgerEntryType
	AmountUnits    int64
	ReferenceID    *string
	ReferenceTable *string
	Metadata       json.RawMessage
}

// NewService wires the ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, metrics: m}, nil
}

func (s *service) Earn(ctx context.Context, input EarnInput) (int64, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountUnits <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	if !input.Type.IsEarn() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid earn type %q", input.Type))
	}
	return s.apply(ctx, input.UserID, input.AmountUnits, &models.LedgerEntry{
		Type:           input.Type,
		ReferenceID:    input.ReferenceID,
		ReferenceTable: input.ReferenceTable,
		Metadata:       input.Metadata,
	})
}

func (s *service) Spend(ctx context.Context, input SpendInput) (int64, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountUnits <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	if !input.Type.IsSpend() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid spend type %q", input.Type))
	}
	return s.apply(ctx, input.UserID, -input.AmountUnits, &models.LedgerEntry{
		Type:           input.Type,
		ReferenceID:    input.ReferenceID,
		ReferenceTable: input.ReferenceTable,
		Metadata:       input.Metadata,
	})
}

// EarnTx applies a credit inside an existing transaction so callers like the
// referral claim service can bundle the credit with their own writes.
func (s *service) EarnTx(ctx context.Context, tx *gorm.DB, input EarnInput) (int64, error) {
	if input.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountUnits <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	if !input.Type.IsEarn() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid earn type %q", input.Type))
	}
	balance, err := s.repo.WithTx(tx).ApplyDelta(ctx, input.UserID, input.AmountUnits, &models.LedgerEntry{
		Type:           input.Type,
		ReferenceID:    input.ReferenceID,
		ReferenceTable: input.ReferenceTable,
		Metadata:       input.Metadata,
	})
	s.record(input.Type, err)
	return balance, err
}

func (s *service) apply(ctx context.Context, userID uuid.UUID, delta int64, entry *models.LedgerEntry) (int64, error) {
	var balance int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).ApplyDelta(ctx, userID, delta, entry)
		if err != nil {
			return err
		}
		balance = updated
		return nil
	})
	s.record(entry.Type, err)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) record(entryType enums.LedgerEntryType, err error) {
	outcome := "success"
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds):
		outcome = "insufficient_funds"
	case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
		outcome = "duplicate_reference"
	case err != nil:
		outcome = "error"
	}
	s.metrics.IncMutation(entryType.String(), outcome)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.GetBalance(ctx, userID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListEntries(ctx, userID, params)
}
