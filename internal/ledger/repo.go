package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/bidhaus/backend/pkg/db"
	"github.com/bidhaus/backend/pkg/db/models"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/pagination"
)

// Repository manages persistence for account balances and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64, entry *models.LedgerEntry) (int64, error)
	ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance models.AccountBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.BalanceUnits, nil
}

// ApplyDelta locks the balance row, verifies the resulting balance stays
// non-negative, and writes the entry plus the updated balance. Callers must
// run it inside a transaction via WithTx.
func (r *repository) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64, entry *models.LedgerEntry) (int64, error) {
	balance, err := r.lockBalance(ctx, userID)
	if err != nil {
		return 0, err
	}

	next := balance.BalanceUnits + delta
	if next < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance cannot go negative")
	}

	entry.UserID = userID
	entry.AmountUnits = delta
	entry.ResultingBalance = next
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "uq_ledger_entries_reference") {
			return 0, pkgerrors.New(pkgerrors.CodeConflict, "ledger reference already applied")
		}
		return 0, err
	}

	if err := r.db.WithContext(ctx).
		Model(&models.AccountBalance{}).
		Where("user_id = ?", userID).
		Update("balance_units", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) lockBalance(ctx context.Context, userID uuid.UUID) (*models.AccountBalance, error) {
	// The seed insert must not abort the surrounding transaction when two
	// first-ever mutations race, so the conflict is absorbed in the
	// statement itself rather than surfaced as a unique violation.
	seed := models.AccountBalance{UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx)
	if r.db.Dialector != nil && r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var locked models.AccountBalance
	if err := q.Where("user_id = ?", userID).
		First(&locked).Error; err != nil {
		return nil, err
	}
	return &locked, nil
}

func (r *repository) ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(entries) == limit {
		entries = entries[:limit-1]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, nextCursor, nil
}
