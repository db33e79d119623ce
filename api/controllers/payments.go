package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bidhaus/backend/api/responses"
	"github.com/bidhaus/backend/api/validators"
	"github.com/bidhaus/backend/internal/payments"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
)

type auctionPaymentRequest struct {
	AuctionID uuid.UUID `json:"auction_id" validate:"required"`
}

type auctionPaymentResponse struct {
	PaymentIntentID   uuid.UUID `json:"payment_intent_id"`
	ProcessorIntentID string    `json:"processor_intent_id"`
	ClientSecret      string    `json:"client_secret"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
}

type confirmPaymentResponse struct {
	PaymentIntentID uuid.UUID `json:"payment_intent_id"`
	Settled         bool      `json:"settled"`
}

type refundRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// AuctionPayment starts settlement for an auction the caller won.
func AuctionPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload auctionPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessAuctionPayment(r.Context(), payload.AuctionID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, auctionPaymentResponse{
			PaymentIntentID:   result.PaymentIntentID,
			ProcessorIntentID: result.ProcessorIntentID,
			ClientSecret:      result.ClientSecret,
			AmountCents:       result.AmountCents,
			Currency:          string(result.Currency),
			Status:            string(result.Status),
		})
	}
}

// ConfirmPayment reconciles a payment intent with the processor.
func ConfirmPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentIntentID, err := paymentIntentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settled, err := svc.ConfirmPayment(r.Context(), paymentIntentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, confirmPaymentResponse{
			PaymentIntentID: paymentIntentID,
			Settled:         settled,
		})
	}
}

// RefundPayment refunds a settled intent. Routing restricts it to staff roles.
func RefundPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentIntentID, err := paymentIntentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ProcessRefund(r.Context(), paymentIntentID, payload.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "refunded"})
	}
}

func paymentIntentIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "paymentIntentId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment intent id")
	}
	return id, nil
}
