package stripewebhook

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/bidhaus/backend/pkg/errors"
)

type stubOrchestrator struct {
	confirmed  []string
	failed     []string
	confirmErr error
	failErr    error
}

func (s *stubOrchestrator) ConfirmByProcessorID(ctx context.Context, processorIntentID string) (bool, error) {
	if s.confirmErr != nil {
		return false, s.confirmErr
	}
	s.confirmed = append(s.confirmed, processorIntentID)
	return true, nil
}

func (s *stubOrchestrator) RecordProcessorFailure(ctx context.Context, processorIntentID, reason string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.failed = append(s.failed, processorIntentID+":"+reason)
	return nil
}

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func newTestService(t *testing.T, orchestrator *stubOrchestrator) *Service {
	t.Helper()
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, "stripe_events")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	svc, err := NewService(ServiceParams{Payments: orchestrator, Guard: guard})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func intentEvent(t *testing.T, eventType stripe.EventType, intent *stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + string(eventType) + "_" + intent.ID,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestService_HandleSucceededEventConfirms(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	svc := newTestService(t, orchestrator)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_settled"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(orchestrator.confirmed) != 1 || orchestrator.confirmed[0] != "pi_settled" {
		t.Fatalf("expected confirmation for pi_settled, got %v", orchestrator.confirmed)
	}
}

func TestService_DuplicateDeliverySkipped(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	svc := newTestService(t, orchestrator)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_dup"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(orchestrator.confirmed) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(orchestrator.confirmed))
	}
}

func TestService_FailedDeliveryCanRetry(t *testing.T) {
	orchestrator := &stubOrchestrator{confirmErr: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	svc := newTestService(t, orchestrator)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_retry"})
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected handler error")
	}

	orchestrator.confirmErr = nil
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("retry delivery: %v", err)
	}
	if len(orchestrator.confirmed) != 1 {
		t.Fatalf("expected retry to confirm, got %v", orchestrator.confirmed)
	}
}

func TestService_PaymentFailedRecordsReason(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	svc := newTestService(t, orchestrator)

	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, &stripe.PaymentIntent{
		ID:               "pi_declined",
		LastPaymentError: &stripe.Error{Msg: "card declined"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(orchestrator.failed) != 1 || orchestrator.failed[0] != "pi_declined:card declined" {
		t.Fatalf("expected failure recorded with reason, got %v", orchestrator.failed)
	}
}

func TestService_UntrackedIntentIgnored(t *testing.T) {
	orchestrator := &stubOrchestrator{confirmErr: pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")}
	svc := newTestService(t, orchestrator)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_unknown"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected untracked intent to be ignored, got %v", err)
	}
}

func TestService_UnhandledEventTypeIgnored(t *testing.T) {
	orchestrator := &stubOrchestrator{}
	svc := newTestService(t, orchestrator)

	event := intentEvent(t, stripe.EventTypeChargeSucceeded, &stripe.PaymentIntent{ID: "pi_other"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(orchestrator.confirmed)+len(orchestrator.failed) != 0 {
		t.Fatal("expected no orchestrator calls")
	}
}
