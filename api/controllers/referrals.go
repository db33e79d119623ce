package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bidhaus/backend/api/responses"
	"github.com/bidhaus/backend/api/validators"
	"github.com/bidhaus/backend/internal/referrals"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
)

type referralClaimRequest struct {
	Code string `json:"code" validate:"required,min=3,max=64"`
}

type referralClaimResponse struct {
	ClaimID      uuid.UUID `json:"claim_id"`
	Code         string    `json:"code"`
	RewardUnits  int64     `json:"reward_units"`
	BalanceUnits int64     `json:"balance_units"`
}

// ReferralClaim redeems a referral code for the authenticated user.
func ReferralClaim(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "referral service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload referralClaimRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Claim(r.Context(), userID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, referralClaimResponse{
			ClaimID:      result.ClaimID,
			Code:         result.Code,
			RewardUnits:  result.RewardUnits,
			BalanceUnits: result.Balance,
		})
	}
}
