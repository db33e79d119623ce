package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/bidhaus/backend/internal/auctions"
	"github.com/bidhaus/backend/internal/sellers"
	"github.com/bidhaus/backend/pkg/config"
	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
	"github.com/bidhaus/backend/pkg/metrics"
	"github.com/bidhaus/backend/pkg/outbox"
)

// Service orchestrates auction settlement against the payment processor.
// The processor owns intent state; the local mirror only ever advances
// after the processor reports the corresponding transition.
type Service interface {
	ProcessAuctionPayment(ctx context.Context, auctionID, buyerID uuid.UUID) (*SettlementIntent, error)
	ConfirmPayment(ctx context.Context, paymentIntentID uuid.UUID) (bool, error)
	ConfirmByProcessorID(ctx context.Context, processorIntentID string) (bool, error)
	RecordProcessorFailure(ctx context.Context, processorIntentID, reason string) error
	ProcessRefund(ctx context.Context, paymentIntentID uuid.UUID, reason string) error
}

// SettlementIntent is what a buyer needs to complete checkout on the client.
type SettlementIntent struct {
	PaymentIntentID   uuid.UUID
	ProcessorIntentID string
	ClientSecret      string
	AmountCents       int64
	Currency          enums.Currency
	Status            enums.PaymentIntentStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type payeeDirectory interface {
	AccountStatus(ctx context.Context, userID uuid.UUID) (*sellers.AccountStatus, error)
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      Repository
	auctions  auctions.Repository
	payees    payeeDirectory
	processor StripePaymentClient
	tx        txRunner
	events    eventEmitter
	metrics   *metrics.PaymentMetrics
	cfg       config.RewardsConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the payment orchestrator with the required dependencies.
func NewService(
	repo Repository,
	auctionRepo auctions.Repository,
	payees payeeDirectory,
	processor StripePaymentClient,
	tx txRunner,
	events eventEmitter,
	m *metrics.PaymentMetrics,
	cfg config.RewardsConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if auctionRepo == nil {
		return nil, fmt.Errorf("auctions repository required")
	}
	if payees == nil {
		return nil, fmt.Errorf("payee directory required")
	}
	if processor == nil {
		return nil, fmt.Errorf("stripe payment client required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if cfg.PaymentIntentTTL <= 0 {
		cfg.PaymentIntentTTL = 30 * time.Minute
	}
	return &service{
		repo:      repo,
		auctions:  auctionRepo,
		payees:    payees,
		processor: processor,
		tx:        tx,
		events:    events,
		metrics:   m,
		cfg:       cfg,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// ProcessAuctionPayment creates a processor intent for the auction's winning
// bid plus the buyer premium. An unexpired pending intent for the same auction
// is reused instead of creating a second charge.
func (s *service) ProcessAuctionPayment(ctx context.Context, auctionID, buyerID uuid.UUID) (*SettlementIntent, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	auction, err := s.auctions.FindByID(ctx, auctionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
	}
	if auction.Status != enums.AuctionStatusAwaitingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction is not awaiting payment")
	}
	if auction.WinningBidderID == nil || *auction.WinningBidderID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "buyer is not the winning bidder")
	}
	if auction.WinningBidCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction has no winning bid amount")
	}

	payee, err := s.payees.AccountStatus(ctx, auction.SellerID)
	if err != nil {
		return nil, err
	}
	if !payee.Found || payee.Status != enums.OnboardingStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller has no active payee account")
	}

	if existing, err := s.repo.FindActiveByAuction(ctx, auctionID, s.now()); err == nil {
		return s.reuseIntent(ctx, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending intent")
	}

	amount := settlementAmount(auction.WinningBidCents, s.cfg.BuyerPremiumBps)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(string(auction.Currency))),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("auction_id", auctionID.String())
	params.AddMetadata("buyer_id", buyerID.String())

	start := s.now()
	intent, err := s.processor.CreateIntent(ctx, params)
	s.metrics.ObserveProcessorCall("create_intent", time.Since(start))
	if err != nil {
		s.metrics.IncSettlement("processor_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create processor intent")
	}

	row := &models.PaymentIntent{
		AuctionID:         auctionID,
		BuyerID:           buyerID,
		SellerID:          auction.SellerID,
		ProcessorIntentID: intent.ID,
		Status:            enums.PaymentIntentStatusRequiresConfirmation,
		AmountCents:       amount,
		Currency:          auction.Currency,
		ExpiresAt:         s.now().Add(s.cfg.PaymentIntentTTL),
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Insert(ctx, row)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist intent mirror")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"auction_id":          auctionID.String(),
			"payment_intent_id":   row.ID.String(),
			"processor_intent_id": intent.ID,
			"amount_cents":        amount,
		})
		s.logg.Info(logCtx, "settlement intent created")
	}

	return &SettlementIntent{
		PaymentIntentID:   row.ID,
		ProcessorIntentID: intent.ID,
		ClientSecret:      intent.ClientSecret,
		AmountCents:       amount,
		Currency:          row.Currency,
		Status:            row.Status,
	}, nil
}

// reuseIntent fetches a fresh client secret for a still-valid mirror row.
func (s *service) reuseIntent(ctx context.Context, row *models.PaymentIntent) (*SettlementIntent, error) {
	start := s.now()
	intent, err := s.processor.GetIntent(ctx, row.ProcessorIntentID, nil)
	s.metrics.ObserveProcessorCall("get_intent", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh processor intent")
	}
	return &SettlementIntent{
		PaymentIntentID:   row.ID,
		ProcessorIntentID: row.ProcessorIntentID,
		ClientSecret:      intent.ClientSecret,
		AmountCents:       row.AmountCents,
		Currency:          row.Currency,
		Status:            row.Status,
	}, nil
}

// ConfirmPayment reconciles the mirror with the processor. It returns true
// once the intent has settled. Re-confirming a settled intent is a no-op
// that still reports success.
func (s *service) ConfirmPayment(ctx context.Context, paymentIntentID uuid.UUID) (bool, error) {
	if paymentIntentID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	row, err := s.repo.FindByID(ctx, paymentIntentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return s.confirm(ctx, row)
}

// ConfirmByProcessorID is the webhook entry point into the same reconciliation.
func (s *service) ConfirmByProcessorID(ctx context.Context, processorIntentID string) (bool, error) {
	if processorIntentID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "processor intent id required")
	}
	row, err := s.repo.FindByProcessorID(ctx, processorIntentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return s.confirm(ctx, row)
}

func (s *service) confirm(ctx context.Context, row *models.PaymentIntent) (bool, error) {
	switch row.Status {
	case enums.PaymentIntentStatusSucceeded, enums.PaymentIntentStatusRefunded:
		return true, nil
	case enums.PaymentIntentStatusFailed:
		return false, nil
	}

	start := s.now()
	intent, err := s.processor.GetIntent(ctx, row.ProcessorIntentID, nil)
	s.metrics.ObserveProcessorCall("get_intent", time.Since(start))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query processor intent")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		if err := s.settle(ctx, row); err != nil {
			return false, err
		}
		return true, nil
	case stripe.PaymentIntentStatusCanceled:
		reason := string(intent.Status)
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			reason = intent.LastPaymentError.Msg
		}
		if err := s.fail(ctx, row, reason); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, nil
	}
}

// settle advances the mirror, marks the auction paid, and queues the
// settlement event in one transaction.
func (s *service) settle(ctx context.Context, row *models.PaymentIntent) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, row.ID, enums.PaymentIntentStatusSucceeded); err != nil {
			return err
		}
		if err := s.auctions.WithTx(tx).MarkPaid(ctx, row.AuctionID, s.now()); err != nil {
			return err
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   row.ID,
			Data: outbox.PaymentSucceededData{
				PaymentIntentID:   row.ID,
				ProcessorIntentID: row.ProcessorIntentID,
				AuctionID:         row.AuctionID,
				BuyerID:           row.BuyerID,
				SellerID:          row.SellerID,
				AmountCents:       row.AmountCents,
				Currency:          string(row.Currency),
			},
			Version: 1,
		})
	})
	if err != nil {
		s.metrics.IncSettlement("error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist settlement")
	}
	s.metrics.IncSettlement("succeeded")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_intent_id": row.ID.String(),
			"auction_id":        row.AuctionID.String(),
		})
		s.logg.Info(logCtx, "auction settled")
	}
	return nil
}

func (s *service) fail(ctx context.Context, row *models.PaymentIntent, reason string) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).MarkFailed(ctx, row.ID, reason); err != nil {
			return err
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   row.ID,
			Data: outbox.PaymentFailedData{
				PaymentIntentID:   row.ID,
				ProcessorIntentID: row.ProcessorIntentID,
				AuctionID:         row.AuctionID,
				Reason:            reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist failure")
	}
	s.metrics.IncSettlement("failed")
	return nil
}

// RecordProcessorFailure marks a pending mirror failed from a processor
// failure notification. Settled intents are left untouched.
func (s *service) RecordProcessorFailure(ctx context.Context, processorIntentID, reason string) error {
	if processorIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "processor intent id required")
	}
	row, err := s.repo.FindByProcessorID(ctx, processorIntentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if row.Status == enums.PaymentIntentStatusSucceeded || row.Status.IsTerminal() {
		return nil
	}
	return s.fail(ctx, row, reason)
}

// ProcessRefund refunds a settled intent. The processor refund happens
// first; the mirror only transitions once the processor accepts it.
func (s *service) ProcessRefund(ctx context.Context, paymentIntentID uuid.UUID, reason string) error {
	if paymentIntentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	row, err := s.repo.FindByID(ctx, paymentIntentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if row.Status == enums.PaymentIntentStatusRefunded {
		return nil
	}
	if row.Status != enums.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only settled payments can be refunded")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(row.ProcessorIntentID),
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	start := s.now()
	if _, err := s.processor.CreateRefund(ctx, params); err != nil {
		s.metrics.ObserveProcessorCall("create_refund", time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create processor refund")
	}
	s.metrics.ObserveProcessorCall("create_refund", time.Since(start))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).MarkRefunded(ctx, row.ID, reason); err != nil {
			return err
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   row.ID,
			Data: outbox.PaymentRefundedData{
				PaymentIntentID:   row.ID,
				ProcessorIntentID: row.ProcessorIntentID,
				AuctionID:         row.AuctionID,
				AmountCents:       row.AmountCents,
				Reason:            reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist refund")
	}
	s.metrics.IncSettlement("refunded")
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "payment_intent_id", row.ID.String()), "settlement refunded")
	}
	return nil
}
