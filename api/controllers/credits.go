package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type grantCreditRequest struct {
	ReferralID *uuid.UUID      `json:"referral_id,omitempty"`
	CustomerID uuid.UUID       `json:"customer_id" validate:"required"`
	CoachID    uuid.UUID       `json:"coach_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	CreditType string          `json:"credit_type" validate:"required"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

func GrantCredit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req grantCreditRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		creditType, err := enums.ParseCreditType(req.CreditType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown credit type"))
			return
		}

		credit, err := svc.GrantCredit(r.Context(), ledger.GrantCreditInput{
			ReferralID: req.ReferralID,
			CustomerID: req.CustomerID,
			CoachID:    req.CoachID,
			Amount:     req.Amount,
			CreditType: creditType,
			ExpiresAt:  req.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, credit)
	}
}

type redeemCreditRequest struct {
	CustomerID uuid.UUID       `json:"customer_id" validate:"required"`
	OrderID    uuid.UUID       `json:"order_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

func RedeemCredit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req redeemCreditRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemption, err := svc.RedeemCredit(r.Context(), ledger.RedeemCreditInput{
			CustomerID: req.CustomerID,
			OrderID:    req.OrderID,
			Amount:     req.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, redemption)
	}
}

// SpendableBalance returns the customer's unexpired credit balance net of
// redemptions.
func SpendableBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.PathUUID(chi.URLParam(r, "customerId"), "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.SpendableBalance(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"customer_id": customerID, "balance": balance})
	}
}
