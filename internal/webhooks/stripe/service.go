package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
)

type paymentOrchestrator interface {
	ConfirmByProcessorID(ctx context.Context, processorIntentID string) (bool, error)
	RecordProcessorFailure(ctx context.Context, processorIntentID, reason string) error
}

type ServiceParams struct {
	Payments paymentOrchestrator
	Guard    *IdempotencyGuard
	Logger   *logger.Logger
}

// Service translates processor webhook events into settlement transitions.
// Delivery dedup happens here so the controller only verifies signatures.
type Service struct {
	payments paymentOrchestrator
	guard    *IdempotencyGuard
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment orchestrator required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	return &Service{
		payments: params.Payments,
		guard:    params.Guard,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup check")
	}
	if seen {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "duplicate webhook delivery skipped")
		}
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		// Release the mark so the processor's retry can reprocess.
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "event_id", event.ID), "release webhook dedup mark", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		_, err = s.payments.ConfirmByProcessorID(ctx, intent.ID)
		return ignoreUntracked(err)
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		reason := string(event.Type)
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			reason = intent.LastPaymentError.Msg
		}
		return ignoreUntracked(s.payments.RecordProcessorFailure(ctx, intent.ID, reason))
	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

// ignoreUntracked drops events for intents this backend never created, so
// the processor does not retry them forever.
func ignoreUntracked(err error) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil
	}
	return err
}
