package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/commission"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type previewCommissionRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	CoachID       uuid.UUID `json:"coach_id" validate:"required"`
	CustomerID    uuid.UUID `json:"customer_id" validate:"required"`
	PurchaseCount int       `json:"purchase_count" validate:"required,min=1"`
}

// PreviewCommission computes the full referral breakdown for an order
// without touching the ledger.
func PreviewCommission(engine commission.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previewCommissionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := engine.ComputeTotalCommission(r.Context(), req.OrderID, req.CoachID, req.CustomerID, req.PurchaseCount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}
