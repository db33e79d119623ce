package payments

import (
	"context"
	"testing"
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
	"github.com/bidhaus/backend/pkg/outbox"
)

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	rows map[uuid.UUID]*models.PaymentIntent
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: map[uuid.UUID]*models.PaymentIntent{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRepository) FindByProcessorID(ctx context.Context, processorID string) (*models.PaymentIntent, error) {
	for _, row := range f.rows {
		if row.ProcessorIntentID == processorID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindActiveByAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (*models.PaymentIntent, error) {
	for _, row := range f.rows {
		pending := row.Status == enums.PaymentIntentStatusCreated ||
			row.Status == enums.PaymentIntentStatusRequiresConfirmation
		if row.AuctionID == auctionID && pending && row.ExpiresAt.After(now) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) Insert(ctx context.Context, intent *models.PaymentIntent) error {
	intent.ID = uuid.New()
	copied := *intent
	f.rows[intent.ID] = &copied
	return nil
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentIntentStatus) error {
	if row, ok := f.rows[id]; ok {
		row.Status = status
	}
	return nil
}

func (f *fakeRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	if row, ok := f.rows[id]; ok {
		row.Status = enums.PaymentIntentStatusFailed
		row.FailureReason = &reason
	}
	return nil
}

func (f *fakeRepository) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) error {
	if row, ok := f.rows[id]; ok {
		row.Status = enums.PaymentIntentStatusRefunded
		row.RefundReason = &reason
	}
	return nil
}

type fakeAuctions struct {
	rows map[uuid.UUID]*models.Auction
	paid map[uuid.UUID]time.Time
}

func newFakeAuctions() *fakeAuctions {
	return &fakeAuctions{
		rows: map[uuid.UUID]*models.Auction{},
		paid: map[uuid.UUID]time.Time{},
	}
}

func (f *fakeAuctions) WithTx(tx *gorm.DB) auctions.Repository { return f }

func (f *fakeAuctions) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeAuctions) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	f.paid[id] = paidAt
	if row, ok := f.rows[id]; ok {
		row.Status = enums.AuctionStatusPaid
	}
	return nil
}

type fakePayees struct {
	status *sellers.AccountStatus
	err    error
}

func (f *fakePayees) AccountStatus(ctx context.Context, userID uuid.UUID) (*sellers.AccountStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

type fakeProcessor struct {
	intentsCreated int
	getCalls       int
	refundsCreated int
	intentStatus   stripe.PaymentIntentStatus
	createErr      error
	refundErr      error
}

func (f *fakeProcessor) CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.intentsCreated++
	return &stripe.PaymentIntent{
		ID:           "pi_test_1",
		ClientSecret: "pi_test_1_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}, nil
}

func (f *fakeProcessor) GetIntent(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.getCalls++
	return &stripe.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       f.intentStatus,
	}, nil
}

func (f *fakeProcessor) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refundsCreated++
	return &stripe.Refund{ID: "re_test_1"}, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range f.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

type harness struct {
	svc       Service
	repo      *fakeRepository
	auctions  *fakeAuctions
	payees    *fakePayees
	processor *fakeProcessor
	emitter   *fakeEmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:      newFakeRepository(),
		auctions:  newFakeAuctions(),
		payees:    &fakePayees{status: &sellers.AccountStatus{Found: true, Status: enums.OnboardingStatusActive}},
		processor: &fakeProcessor{},
		emitter:   &fakeEmitter{},
	}
	svc, err := NewService(h.repo, h.auctions, h.payees, h.processor, &stubTxRunner{}, h.emitter, nil, config.RewardsConfig{
		BuyerPremiumBps:  500,
		PaymentIntentTTL: 30 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) seedAuction(buyerID uuid.UUID, bidCents int64) *models.Auction {
	auction := &models.Auction{
		ID:              uuid.New(),
		SellerID:        uuid.New(),
		Title:           "vintage amp",
		Status:          enums.AuctionStatusAwaitingPayment,
		WinningBidderID: &buyerID,
		WinningBidCents: bidCents,
		Currency:        enums.CurrencyUSD,
	}
	h.auctions.rows[auction.ID] = auction
	return auction
}

func TestService_ProcessAuctionPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	result, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}
	if result.AmountCents != 10500 {
		t.Fatalf("expected bid plus premium 10500, got %d", result.AmountCents)
	}
	if result.ClientSecret == "" {
		t.Fatal("expected client secret")
	}
	if result.Status != enums.PaymentIntentStatusRequiresConfirmation {
		t.Fatalf("unexpected status %q", result.Status)
	}
}

func TestService_ProcessAuctionPaymentReusesPendingIntent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	first, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("first ProcessAuctionPayment error: %v", err)
	}
	second, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("second ProcessAuctionPayment error: %v", err)
	}

	if first.PaymentIntentID != second.PaymentIntentID {
		t.Fatal("expected the pending intent to be reused")
	}
	if h.processor.intentsCreated != 1 {
		t.Fatalf("expected one processor intent, got %d", h.processor.intentsCreated)
	}
	if second.ClientSecret == "" {
		t.Fatal("expected a refreshed client secret")
	}
}

func TestService_ProcessAuctionPaymentGuards(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	if _, err := h.svc.ProcessAuctionPayment(context.Background(), uuid.New(), buyerID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown auction, got %v", err)
	}
	if _, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for wrong bidder, got %v", err)
	}

	h.auctions.rows[auction.ID].Status = enums.AuctionStatusOpen
	if _, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for open auction, got %v", err)
	}
	h.auctions.rows[auction.ID].Status = enums.AuctionStatusAwaitingPayment

	h.payees.status = &sellers.AccountStatus{Found: true, Status: enums.OnboardingStatusOnboarding}
	if _, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for inactive payee, got %v", err)
	}
	if h.processor.intentsCreated != 0 {
		t.Fatalf("expected no processor intents, got %d", h.processor.intentsCreated)
	}
}

func TestService_ConfirmPaymentSettles(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}

	h.processor.intentStatus = stripe.PaymentIntentStatusSucceeded
	settled, err := h.svc.ConfirmPayment(context.Background(), created.PaymentIntentID)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if !settled {
		t.Fatal("expected settlement")
	}
	if h.repo.rows[created.PaymentIntentID].Status != enums.PaymentIntentStatusSucceeded {
		t.Fatal("expected mirror transition to succeeded")
	}
	if _, ok := h.auctions.paid[auction.ID]; !ok {
		t.Fatal("expected auction marked paid")
	}
	if len(h.emitter.events) != 1 || h.emitter.events[0].EventType != enums.EventPaymentSucceeded {
		t.Fatalf("expected one payment.succeeded event, got %+v", h.emitter.events)
	}
}

func TestService_ConfirmPaymentIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}

	h.processor.intentStatus = stripe.PaymentIntentStatusSucceeded
	for i := 0; i < 3; i++ {
		settled, err := h.svc.ConfirmPayment(context.Background(), created.PaymentIntentID)
		if err != nil {
			t.Fatalf("confirm %d error: %v", i, err)
		}
		if !settled {
			t.Fatalf("confirm %d expected settlement", i)
		}
	}

	if len(h.emitter.events) != 1 {
		t.Fatalf("expected a single settlement event, got %d", len(h.emitter.events))
	}
	if h.processor.getCalls != 1 {
		t.Fatalf("expected settled mirror to short-circuit processor reads, got %d", h.processor.getCalls)
	}
}

func TestService_ConfirmPaymentStillPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}

	h.processor.intentStatus = stripe.PaymentIntentStatusRequiresPaymentMethod
	settled, err := h.svc.ConfirmPayment(context.Background(), created.PaymentIntentID)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if settled {
		t.Fatal("expected pending intent to stay unsettled")
	}
	if h.repo.rows[created.PaymentIntentID].Status != enums.PaymentIntentStatusRequiresConfirmation {
		t.Fatal("expected mirror left untouched while pending")
	}
}

func TestService_ConfirmPaymentCanceledMarksFailed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}

	h.processor.intentStatus = stripe.PaymentIntentStatusCanceled
	settled, err := h.svc.ConfirmPayment(context.Background(), created.PaymentIntentID)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if settled {
		t.Fatal("expected canceled intent to report unsettled")
	}
	if h.repo.rows[created.PaymentIntentID].Status != enums.PaymentIntentStatusFailed {
		t.Fatal("expected mirror transition to failed")
	}
	if len(h.emitter.events) != 1 || h.emitter.events[0].EventType != enums.EventPaymentFailed {
		t.Fatalf("expected one payment.failed event, got %+v", h.emitter.events)
	}
}

func TestService_ProcessRefund(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}

	if err := h.svc.ProcessRefund(context.Background(), created.PaymentIntentID, "item not as described"); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict before settlement, got %v", err)
	}

	h.processor.intentStatus = stripe.PaymentIntentStatusSucceeded
	if _, err := h.svc.ConfirmPayment(context.Background(), created.PaymentIntentID); err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	if err := h.svc.ProcessRefund(context.Background(), created.PaymentIntentID, "item not as described"); err != nil {
		t.Fatalf("ProcessRefund error: %v", err)
	}
	row := h.repo.rows[created.PaymentIntentID]
	if row.Status != enums.PaymentIntentStatusRefunded {
		t.Fatal("expected mirror transition to refunded")
	}
	if row.RefundReason == nil || *row.RefundReason != "item not as described" {
		t.Fatalf("expected refund reason persisted, got %v", row.RefundReason)
	}

	// Repeat refunds are no-ops against the processor.
	if err := h.svc.ProcessRefund(context.Background(), created.PaymentIntentID, "again"); err != nil {
		t.Fatalf("repeat ProcessRefund error: %v", err)
	}
	if h.processor.refundsCreated != 1 {
		t.Fatalf("expected one processor refund, got %d", h.processor.refundsCreated)
	}
}

func TestService_ProcessRefundProcessorFailureLeavesMirror(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}
	h.processor.intentStatus = stripe.PaymentIntentStatusSucceeded
	if _, err := h.svc.ConfirmPayment(context.Background(), created.PaymentIntentID); err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}

	h.processor.refundErr = pkgerrors.New(pkgerrors.CodeDependency, "processor unavailable")
	if err := h.svc.ProcessRefund(context.Background(), created.PaymentIntentID, "oops"); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if h.repo.rows[created.PaymentIntentID].Status != enums.PaymentIntentStatusSucceeded {
		t.Fatal("expected mirror untouched after processor failure")
	}
}

func TestService_RecordProcessorFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	buyerID := uuid.New()
	auction := h.seedAuction(buyerID, 10000)

	created, err := h.svc.ProcessAuctionPayment(context.Background(), auction.ID, buyerID)
	if err != nil {
		t.Fatalf("ProcessAuctionPayment error: %v", err)
	}

	if err := h.svc.RecordProcessorFailure(context.Background(), created.ProcessorIntentID, "card declined"); err != nil {
		t.Fatalf("RecordProcessorFailure error: %v", err)
	}
	row := h.repo.rows[created.PaymentIntentID]
	if row.Status != enums.PaymentIntentStatusFailed {
		t.Fatal("expected mirror transition to failed")
	}
	if row.FailureReason == nil || *row.FailureReason != "card declined" {
		t.Fatalf("expected failure reason persisted, got %v", row.FailureReason)
	}

	// A settled mirror never regresses on a stale failure notification.
	h.repo.rows[created.PaymentIntentID].Status = enums.PaymentIntentStatusSucceeded
	if err := h.svc.RecordProcessorFailure(context.Background(), created.ProcessorIntentID, "stale"); err != nil {
		t.Fatalf("RecordProcessorFailure on settled mirror error: %v", err)
	}
	if h.repo.rows[created.PaymentIntentID].Status != enums.PaymentIntentStatusSucceeded {
		t.Fatal("expected settled mirror to stay settled")
	}
}

func TestSettlementAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		bidCents   int64
		premiumBps int64
		want       int64
	}{
		{10000, 500, 10500},
		{10000, 0, 10000},
		{33, 500, 35},
		{1, 500, 1},
		{999, 1250, 1124},
	}
	for _, tc := range cases {
		if got := settlementAmount(tc.bidCents, tc.premiumBps); got != tc.want {
			t.Fatalf("settlementAmount(%d, %d) = %d, want %d", tc.bidCents, tc.premiumBps, got, tc.want)
		}
	}
}
