package sellers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/config"
	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
)

type fakeRepository struct {
	byUser    map[uuid.UUID]*models.SellerAccount
	insertErr error
	// findMisses makes FindByUserID report not-found that many times before
	// serving the stored row, mimicking a lookup that raced a concurrent
	// insert of the same user.
	findMisses int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{byUser: map[uuid.UUID]*models.SellerAccount{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SellerAccount, error) {
	if f.findMisses > 0 {
		f.findMisses--
		return nil, gorm.ErrRecordNotFound
	}
	row, ok := f.byUser[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRepository) Insert(ctx context.Context, account *models.SellerAccount) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	account.ID = uuid.New()
	f.byUser[account.UserID] = account
	return nil
}

func (f *fakeRepository) UpdateSync(ctx context.Context, id uuid.UUID, status enums.OnboardingStatus, payoutsEnabled bool, syncedAt time.Time) error {
	for _, row := range f.byUser {
		if row.ID == id {
			row.Status = status
			row.PayoutsEnabled = payoutsEnabled
			row.LastSyncedAt = &syncedAt
		}
	}
	return nil
}

type fakeConnectClient struct {
	accountsCreated int
	linksCreated    int
	getAccount      *stripe.Account
	getErr          error
}

func (f *fakeConnectClient) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	f.accountsCreated++
	return &stripe.Account{ID: "acct_test_1"}, nil
}

func (f *fakeConnectClient) GetAccount(ctx context.Context, id string, params *stripe.AccountParams) (*stripe.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getAccount, nil
}

func (f *fakeConnectClient) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	f.linksCreated++
	return &stripe.AccountLink{URL: "https://connect.stripe.com/setup/test"}, nil
}

func newTestService(t *testing.T, repo Repository, processor StripeConnectClient) Service {
	t.Helper()
	svc, err := NewService(repo, processor, config.StripeConfig{
		ReturnURL:  "https://bidhaus.test/sellers/return",
		RefreshURL: "https://bidhaus.test/sellers/refresh",
	}, 5*time.Minute, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CreateAccountIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	processor := &fakeConnectClient{}
	svc := newTestService(t, repo, processor)
	userID := uuid.New()

	first, err := svc.CreateAccount(context.Background(), userID, "seller@bidhaus.test")
	if err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}
	second, err := svc.CreateAccount(context.Background(), userID, "seller@bidhaus.test")
	if err != nil {
		t.Fatalf("repeat CreateAccount error: %v", err)
	}

	if first.AccountID != second.AccountID {
		t.Fatalf("expected same account id, got %q and %q", first.AccountID, second.AccountID)
	}
	if processor.accountsCreated != 1 {
		t.Fatalf("expected one processor account, got %d", processor.accountsCreated)
	}
	if processor.linksCreated != 2 {
		t.Fatalf("expected a fresh link per call, got %d", processor.linksCreated)
	}
	if second.OnboardingURL == "" {
		t.Fatal("expected onboarding url on repeat create")
	}
}

func TestService_CreateAccountLostRaceReturnsWinner(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	userID := uuid.New()
	repo.byUser[userID] = &models.SellerAccount{
		ID:                 uuid.New(),
		UserID:             userID,
		ProcessorAccountID: "acct_winner",
		Status:             enums.OnboardingStatusPending,
	}
	// The initial lookup misses, so this call mints a processor account and
	// then loses the insert to the row seeded above.
	repo.findMisses = 1
	repo.insertErr = errors.New(`duplicate key value violates unique constraint "uq_seller_accounts_user"`)
	processor := &fakeConnectClient{}
	svc := newTestService(t, repo, processor)

	result, err := svc.CreateAccount(context.Background(), userID, "seller@bidhaus.test")
	if err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}
	if result.AccountID != "acct_winner" {
		t.Fatalf("expected the winning account id, got %q", result.AccountID)
	}
	if result.OnboardingURL == "" {
		t.Fatal("expected onboarding url for the winning account")
	}
	if processor.accountsCreated != 1 {
		t.Fatalf("expected one processor account attempt, got %d", processor.accountsCreated)
	}
	if processor.linksCreated != 1 {
		t.Fatalf("expected one onboarding link, got %d", processor.linksCreated)
	}
}

func TestService_CreateAccountValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeRepository(), &fakeConnectClient{})

	if _, err := svc.CreateAccount(context.Background(), uuid.Nil, "a@b.c"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateAccount(context.Background(), uuid.New(), "  "); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_AccountStatusNotFoundShaped(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeRepository(), &fakeConnectClient{})

	status, err := svc.AccountStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("AccountStatus error: %v", err)
	}
	if status.Found {
		t.Fatal("expected Found false for missing account")
	}
}

func TestService_AccountStatusRefreshesStaleMirror(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	userID := uuid.New()
	stale := time.Now().Add(-time.Hour)
	repo.byUser[userID] = &models.SellerAccount{
		ID:                 uuid.New(),
		UserID:             userID,
		ProcessorAccountID: "acct_test_1",
		Status:             enums.OnboardingStatusPending,
		LastSyncedAt:       &stale,
	}
	processor := &fakeConnectClient{getAccount: &stripe.Account{
		ID:               "acct_test_1",
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}}
	svc := newTestService(t, repo, processor)

	status, err := svc.AccountStatus(context.Background(), userID)
	if err != nil {
		t.Fatalf("AccountStatus error: %v", err)
	}
	if status.Status != enums.OnboardingStatusActive || !status.PayoutsEnabled {
		t.Fatalf("expected active payouts-enabled status, got %+v", status)
	}
	if repo.byUser[userID].Status != enums.OnboardingStatusActive {
		t.Fatal("expected transition to be persisted")
	}
}

func TestService_AccountStatusFreshMirrorSkipsProcessor(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	userID := uuid.New()
	recent := time.Now()
	repo.byUser[userID] = &models.SellerAccount{
		ID:                 uuid.New(),
		UserID:             userID,
		ProcessorAccountID: "acct_test_1",
		Status:             enums.OnboardingStatusActive,
		PayoutsEnabled:     true,
		LastSyncedAt:       &recent,
	}
	processor := &fakeConnectClient{getErr: pkgerrors.New(pkgerrors.CodeDependency, "should not be called")}
	svc := newTestService(t, repo, processor)

	status, err := svc.AccountStatus(context.Background(), userID)
	if err != nil {
		t.Fatalf("AccountStatus error: %v", err)
	}
	if status.Status != enums.OnboardingStatusActive {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestMapAccountStatus(t *testing.T) {
	t.Parallel()

	restricted := &stripe.Account{Requirements: &stripe.AccountRequirements{DisabledReason: "requirements.past_due"}}
	if got := mapAccountStatus(restricted); got != enums.OnboardingStatusRestricted {
		t.Fatalf("expected restricted, got %q", got)
	}
	onboarding := &stripe.Account{DetailsSubmitted: true}
	if got := mapAccountStatus(onboarding); got != enums.OnboardingStatusOnboarding {
		t.Fatalf("expected onboarding, got %q", got)
	}
	if got := mapAccountStatus(&stripe.Account{}); got != enums.OnboardingStatusPending {
		t.Fatalf("expected pending, got %q", got)
	}
}
