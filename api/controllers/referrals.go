package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/commission"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type recordReferralRequest struct {
	CoachID       uuid.UUID  `json:"coach_id" validate:"required"`
	CustomerID    uuid.UUID  `json:"customer_id" validate:"required"`
	ReferrerID    *uuid.UUID `json:"referrer_id,omitempty"`
	ReferrerType  string     `json:"referrer_type" validate:"required"`
	OrderID       uuid.UUID  `json:"order_id" validate:"required"`
	PurchaseCount int        `json:"purchase_count" validate:"required,min=1"`
	ReferralCode  string     `json:"referral_code" validate:"required"`
	Currency      string     `json:"currency,omitempty"`
}

// RecordReferral registers a pending referral when an order carrying a
// referral code is placed.
func RecordReferral(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordReferralRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refType := enums.ReferrerType(req.ReferrerType)
		if !refType.IsValid() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown referrer type").WithDetails(map[string]any{"referrer_type": req.ReferrerType}))
			return
		}

		record, err := svc.RecordPendingReferral(r.Context(), ledger.PendingReferralInput{
			CoachID:       req.CoachID,
			CustomerID:    req.CustomerID,
			ReferrerID:    req.ReferrerID,
			ReferrerType:  refType,
			OrderID:       req.OrderID,
			PurchaseCount: req.PurchaseCount,
			ReferralCode:  req.ReferralCode,
			Currency:      req.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// CompleteOrder runs the commission pipeline for a completed order. The
// operation is idempotent so upstream retries are safe.
func CompleteOrder(handler *commission.Handler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := handler.HandleOrderCompleted(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListCoachReferrals returns the most recent referrals credited to a coach.
func ListCoachReferrals(repo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, err := validators.PathUUID(chi.URLParam(r, "coachId"), "coachId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referrals, err := repo.ListReferralsByCoach(r.Context(), coachID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": referrals})
	}
}

// RemoveDuplicateReferral voids a referral recorded twice for the same order.
func RemoveDuplicateReferral(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		referralID, err := validators.PathUUID(chi.URLParam(r, "referralId"), "referralId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveDuplicateReferral(r.Context(), referralID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"referral_id": referralID, "removed": true})
	}
}

// CoachBalance returns the coach's cached payable balance.
func CoachBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, err := validators.PathUUID(chi.URLParam(r, "coachId"), "coachId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.CoachBalance(r.Context(), coachID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coach_id": coachID, "balance": balance})
	}
}

// ReconcileCoachBalance recomputes a coach balance from the referral ledger
// and repairs the cached row when it drifted.
func ReconcileCoachBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, err := validators.PathUUID(chi.URLParam(r, "coachId"), "coachId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecomputeCoachBalance(r.Context(), coachID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
