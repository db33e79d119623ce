package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

// fakeRepository mirrors the store's locking protocol: serialized access,
// non-negative balances, and referenced deltas applied at most once.
type fakeRepository struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	entries  []models.LedgerEntry
	seen     map[string]bool
	applyErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		balances: map[uuid.UUID]int64{},
		seen:     map[string]bool{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID], nil
}

func (f *fakeRepository) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64, entry *models.LedgerEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applyErr != nil {
		return 0, f.applyErr
	}

	if entry.ReferenceID != nil && entry.ReferenceTable != nil {
		key := fmt.Sprintf("%s|%s|%s|%s", userID, *entry.ReferenceID, *entry.ReferenceTable, entry.Type)
		if f.seen[key] {
			return 0, pkgerrors.New(pkgerrors.CodeConflict, "ledger reference already applied")
		}
		f.seen[key] = true
	}

	next := f.balances[userID] + delta
	if next < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance cannot go negative")
	}
	f.balances[userID] = next

	entry.UserID = userID
	entry.AmountUnits = delta
	entry.ResultingBalance = next
	f.entries = append(f.entries, *entry)
	return next, nil
}

func (f *fakeRepository) ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, "", nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_EarnThenSpend(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	svc := newTestService(t, repo)
	userID := uuid.New()

	balance, err := svc.Earn(context.Background(), EarnInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypePromoGrant,
		AmountUnits: 500,
	})
	if err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected balance 500, got %d", balance)
	}

	balance, err = svc.Spend(context.Background(), SpendInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypeBidFee,
		AmountUnits: 300,
	})
	if err != nil {
		t.Fatalf("Spend error: %v", err)
	}
	if balance != 200 {
		t.Fatalf("expected balance 200, got %d", balance)
	}

	if _, err = svc.Spend(context.Background(), SpendInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypeBidFee,
		AmountUnits: 300,
	}); !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	got, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if got != 200 {
		t.Fatalf("failed spend must not change the balance, got %d", got)
	}

	entries, _, err := svc.History(context.Background(), userID, pagination.Params{})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("failed spend must not append an entry, got %d entries", len(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += e.AmountUnits
	}
	if sum != got {
		t.Fatalf("balance %d does not equal sum of deltas %d", got, sum)
	}
}

func TestService_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeRepository())
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"earn missing user", func() error {
			_, err := svc.Earn(ctx, EarnInput{Type: enums.LedgerEntryTypePromoGrant, AmountUnits: 10})
			return err
		}},
		{"earn zero amount", func() error {
			_, err := svc.Earn(ctx, EarnInput{UserID: uuid.New(), Type: enums.LedgerEntryTypePromoGrant})
			return err
		}},
		{"earn negative amount", func() error {
			_, err := svc.Earn(ctx, EarnInput{UserID: uuid.New(), Type: enums.LedgerEntryTypePromoGrant, AmountUnits: -5})
			return err
		}},
		{"earn with spend type", func() error {
			_, err := svc.Earn(ctx, EarnInput{UserID: uuid.New(), Type: enums.LedgerEntryTypeBidFee, AmountUnits: 10})
			return err
		}},
		{"spend with earn type", func() error {
			_, err := svc.Spend(ctx, SpendInput{UserID: uuid.New(), Type: enums.LedgerEntryTypePromoGrant, AmountUnits: 10})
			return err
		}},
		{"spend unknown type", func() error {
			_, err := svc.Spend(ctx, SpendInput{UserID: uuid.New(), Type: enums.LedgerEntryType("mystery"), AmountUnits: 10})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_DuplicateReferenceRejected(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	svc := newTestService(t, repo)
	userID := uuid.New()

	refID := uuid.NewString()
	refTable := "referral_claims"
	input := EarnInput{
		UserID:         userID,
		Type:           enums.LedgerEntryTypeReferralBonus,
		AmountUnits:    100,
		ReferenceID:    &refID,
		ReferenceTable: &refTable,
	}

	if _, err := svc.Earn(context.Background(), input); err != nil {
		t.Fatalf("first referenced earn should succeed: %v", err)
	}
	if _, err := svc.Earn(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate reference, got %v", err)
	}

	// Unreferenced deltas never deduplicate.
	plain := EarnInput{UserID: userID, Type: enums.LedgerEntryTypePromoGrant, AmountUnits: 50}
	if _, err := svc.Earn(context.Background(), plain); err != nil {
		t.Fatalf("unreferenced earn error: %v", err)
	}
	if _, err := svc.Earn(context.Background(), plain); err != nil {
		t.Fatalf("repeated unreferenced earn error: %v", err)
	}
}

func TestService_ConcurrentSpendsNeverOverspend(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	svc := newTestService(t, repo)
	userID := uuid.New()

	if _, err := svc.Earn(context.Background(), EarnInput{
		UserID:      userID,
		Type:        enums.LedgerEntryTypeAdminGrant,
		AmountUnits: 100,
	}); err != nil {
		t.Fatalf("seed earn error: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Spend(context.Background(), SpendInput{
				UserID:      userID,
				Type:        enums.LedgerEntryTypeBidFee,
				AmountUnits: 30,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
			t.Fatalf("unexpected spend error: %v", err)
		}
	}
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 spends of 30 from 100, got %d", succeeded)
	}

	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected final balance 10, got %d", balance)
	}
}

func TestService_RepoErrorBubbles(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	expectedErr := errors.New("boom")
	repo.applyErr = expectedErr
	svc := newTestService(t, repo)

	if _, err := svc.Earn(context.Background(), EarnInput{
		UserID:      uuid.New(),
		Type:        enums.LedgerEntryTypePromoGrant,
		AmountUnits: 10,
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}
