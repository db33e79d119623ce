package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/bidhaus/backend/api/responses"
	"github.com/bidhaus/backend/api/validators"
	"github.com/bidhaus/backend/internal/ledger"
	"github.com/bidhaus/backend/pkg/db/models"
	"github.com/bidhaus/backend/pkg/enums"
	pkgerrors "github.com/bidhaus/backend/pkg/errors"
	"github.com/bidhaus/backend/pkg/logger"
	"github.com/bidhaus/backend/pkg/pagination"
)

type earnRequest struct {
	UserID         uuid.UUID       `json:"user_id" validate:"required"`
	Type           string          `json:"type" validate:"required"`
	AmountUnits    int64           `json:"amount_units" validate:"required,gt=0"`
	ReferenceID    *string         `json:"reference_id,omitempty"`
	ReferenceTable *string         `json:"reference_table,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

type spendRequest struct {
	Type           string          `json:"type" validate:"required"`
	AmountUnits    int64           `json:"amount_units" validate:"required,gt=0"`
	ReferenceID    *string         `json:"reference_id,omitempty"`
	ReferenceTable *string         `json:"reference_table,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

type balanceResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	BalanceUnits int64     `json:"balance_units"`
}

type ledgerEntryResponse struct {
	EntryID          uuid.UUID       `json:"entry_id"`
	Type             string          `json:"type"`
	AmountUnits      int64           `json:"amount_units"`
	ResultingBalance int64           `json:"resulting_balance"`
	ReferenceID      *string         `json:"reference_id,omitempty"`
	ReferenceTable   *string         `json:"reference_table,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

type historyResponse struct {
	Entries    []ledgerEntryResponse `json:"entries"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// BidcoinEarn credits a user's balance. Routing restricts it to roles that
// may grant coins to other users.
func BidcoinEarn(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload earnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entryType, err := enums.ParseLedgerEntryType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry type"))
			return
		}

		balance, err := svc.Earn(r.Context(), ledger.EarnInput{
			UserID:         payload.UserID,
			Type:           entryType,
			AmountUnits:    payload.AmountUnits,
			ReferenceID:    payload.ReferenceID,
			ReferenceTable: payload.ReferenceTable,
			Metadata:       payload.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{UserID: payload.UserID, BalanceUnits: balance})
	}
}

// BidcoinSpend debits the authenticated user's own balance.
func BidcoinSpend(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload spendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entryType, err := enums.ParseLedgerEntryType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry type"))
			return
		}

		balance, err := svc.Spend(r.Context(), ledger.SpendInput{
			UserID:         userID,
			Type:           entryType,
			AmountUnits:    payload.AmountUnits,
			ReferenceID:    payload.ReferenceID,
			ReferenceTable: payload.ReferenceTable,
			Metadata:       payload.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{UserID: userID, BalanceUnits: balance})
	}
}

func BidcoinBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{UserID: userID, BalanceUnits: balance})
	}
}

func BidcoinHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, nextCursor, err := svc.History(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newHistoryResponse(entries, nextCursor))
	}
}

func newHistoryResponse(entries []models.LedgerEntry, nextCursor string) historyResponse {
	out := historyResponse{
		Entries:    make([]ledgerEntryResponse, 0, len(entries)),
		NextCursor: nextCursor,
	}
	for _, entry := range entries {
		out.Entries = append(out.Entries, ledgerEntryResponse{
			EntryID:          entry.ID,
			Type:             string(entry.Type),
			AmountUnits:      entry.AmountUnits,
			ResultingBalance: entry.ResultingBalance,
			ReferenceID:      entry.ReferenceID,
			ReferenceTable:   entry.ReferenceTable,
			Metadata:         entry.Metadata,
			CreatedAt:        entry.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return out
}
