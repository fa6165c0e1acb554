package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/partnership"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type selectPartnerRequest struct {
	CustomerID uuid.UUID `json:"customer_id" validate:"required"`
	CoachID    uuid.UUID `json:"coach_id" validate:"required"`
}

// SelectPartner binds a customer to a coach. Re-selecting the current coach
// is a no-op; switching inside the cooldown window is rejected.
func SelectPartner(svc partnership.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectPartnerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p, err := svc.SelectPartner(r.Context(), req.CustomerID, req.CoachID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

// GetPartner returns the customer's active coach partnership.
func GetPartner(svc partnership.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.PathUUID(chi.URLParam(r, "customerId"), "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p, err := svc.GetPartner(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if p == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no partnership on file"))
			return
		}
		responses.WriteSuccess(w, p)
	}
}

type partnerCommissionRequest struct {
	CoachID  uuid.UUID       `json:"coach_id" validate:"required"`
	NetTotal decimal.Decimal `json:"net_total" validate:"required"`
}

// PreviewPartnerCommission computes the flat partnership payout for an order
// amount without persisting anything.
func PreviewPartnerCommission(svc partnership.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req partnerCommissionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commission, err := svc.ComputeCommission(r.Context(), req.CoachID, req.NetTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commission)
	}
}
