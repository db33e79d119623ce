package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/pkg/config"
	dbpkg "github.com/bidhaus/backend/pkg/db"
	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
)

// Service defines the seller payee account lifecycle.
type Service interface {
	CreateAccount(ctx context.Context, userID uuid.UUID, email string) (*CreateAccountResult, error)
	AccountStatus(ctx context.Context, userID uuid.UUID) (*AccountStatus, error)
}

// CreateAccountResult carries the processor account id and a fresh onboarding link.
type CreateAccountResult struct {
	AccountID     string
	OnboardingURL string
}

// AccountStatus is a not-found-shaped status report: Found is false when
// the seller has no payee account, and no error is raised for that case.
type AccountStatus struct {
	Found          bool
	AccountID      string
	Status         enums.OnboardingStatus
	PayoutsEnabled bool
}

type service struct {
	repo      Repository
	processor StripeConnectClient
	cfg       config.StripeConfig
	freshness time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the seller account service with the required dependencies.
func NewService(repo Repository, processor StripeConnectClient, cfg config.StripeConfig, freshness time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sellers repository required")
	}
	if processor == nil {
		return nil, fmt.Errorf("stripe connect client required")
	}
	if freshness <= 0 {
		freshness = 5 * time.Minute
	}
	return &service{
		repo:      repo,
		processor: processor,
		cfg:       cfg,
		freshness: freshness,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// CreateAccount is idempotent: an existing mapping returns the same account
// id with a newly minted onboarding link instead of a second processor account.
func (s *service) CreateAccount(ctx context.Context, userID uuid.UUID, email string) (*CreateAccountResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller account")
	}
	if existing != nil {
		link, err := s.mintOnboardingLink(ctx, existing.ProcessorAccountID)
		if err != nil {
			return nil, err
		}
		return &CreateAccountResult{AccountID: existing.ProcessorAccountID, OnboardingURL: link}, nil
	}

	account, err := s.processor.CreateAccount(ctx, &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create processor account")
	}

	row := &models.SellerAccount{
		UserID:             userID,
		ProcessorAccountID: account.ID,
		Status:             enums.OnboardingStatusPending,
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "uq_seller_accounts_user") {
			return s.recoverExistingAccount(ctx, userID, account.ID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist seller account")
	}

	link, err := s.mintOnboardingLink(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "seller payee account created")
	}
	return &CreateAccountResult{AccountID: account.ID, OnboardingURL: link}, nil
}

// recoverExistingAccount handles the Insert losing a concurrent create for
// the same user. The winning row holds the authoritative processor account;
// the account minted on this call has no local mapping and stays orphaned at
// the processor, so it is logged for cleanup.
func (s *service) recoverExistingAccount(ctx context.Context, userID uuid.UUID, orphanAccountID string) (*CreateAccountResult, error) {
	winner, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller account")
	}

	if s.logg != nil {
		lctx := s.logg.WithUserID(ctx, userID.String())
		lctx = s.logg.WithField(lctx, "orphan_account_id", orphanAccountID)
		s.logg.Warn(lctx, "seller account insert lost a concurrent create")
	}

	link, err := s.mintOnboardingLink(ctx, winner.ProcessorAccountID)
	if err != nil {
		return nil, err
	}
	return &CreateAccountResult{AccountID: winner.ProcessorAccountID, OnboardingURL: link}, nil
}

func (s *service) mintOnboardingLink(ctx context.Context, accountID string) (string, error) {
	link, err := s.processor.CreateAccountLink(ctx, &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(s.cfg.ReturnURL),
		RefreshURL: stripe.String(s.cfg.RefreshURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create onboarding link")
	}
	return link.URL, nil
}

// AccountStatus refreshes the mirror from the processor when it is stale
// and persists any transition. Accounts are never deleted; a restricted
// account stays on record as restricted.
func (s *service) AccountStatus(ctx context.Context, userID uuid.UUID) (*AccountStatus, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	row, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &AccountStatus{Found: false}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller account")
	}

	if s.isStale(row) {
		account, err := s.processor.GetAccount(ctx, row.ProcessorAccountID, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh processor account")
		}
		status := mapAccountStatus(account)
		if err := s.repo.UpdateSync(ctx, row.ID, status, account.PayoutsEnabled, s.now()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist account sync")
		}
		row.Status = status
		row.PayoutsEnabled = account.PayoutsEnabled
	}

	return &AccountStatus{
		Found:          true,
		AccountID:      row.ProcessorAccountID,
		Status:         row.Status,
		PayoutsEnabled: row.PayoutsEnabled,
	}, nil
}

func (s *service) isStale(row *models.SellerAccount) bool {
	if row.LastSyncedAt == nil {
		return true
	}
	return s.now().Sub(*row.LastSyncedAt) > s.freshness
}

func mapAccountStatus(account *stripe.Account) enums.OnboardingStatus {
	if account == nil {
		return enums.OnboardingStatusPending
	}
	if account.Requirements != nil && account.Requirements.DisabledReason != "" {
		return enums.OnboardingStatusRestricted
	}
	if account.PayoutsEnabled {
		return enums.OnboardingStatusActive
	}
	if account.DetailsSubmitted {
		return enums.OnboardingStatusOnboarding
	}
	return enums.OnboardingStatusPending
}
