package controllers

import (
	"net/http"

	"github.com/bidhaus/backend/api/responses"
	"github.com/bidhaus/backend/api/validators"
	"github.com/bidhaus/backend/internal/sellers"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
)

type sellerAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type sellerAccountResponse struct {
	AccountID     string `json:"account_id"`
	OnboardingURL string `json:"onboarding_url"`
}

type sellerStatusResponse struct {
	Found          bool   `json:"found"`
	AccountID      string `json:"account_id,omitempty"`
	Status         string `json:"status,omitempty"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// SellerAccountCreate provisions a payee account for the authenticated seller.
func SellerAccountCreate(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sellerAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateAccount(r.Context(), userID, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sellerAccountResponse{
			AccountID:     result.AccountID,
			OnboardingURL: result.OnboardingURL,
		})
	}
}

// SellerAccountStatus reports the caller's payee account state.
func SellerAccountStatus(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.AccountStatus(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sellerStatusResponse{
			Found:          status.Found,
			AccountID:      status.AccountID,
			Status:         string(status.Status),
			PayoutsEnabled: status.PayoutsEnabled,
		})
	}
}
