package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type orderSnapshotRequest struct {
	ID         uuid.UUID       `json:"id" validate:"required"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	Total      decimal.Decimal `json:"total" validate:"required"`
	Tax        decimal.Decimal `json:"tax"`
	Currency   string          `json:"currency,omitempty"`
	Status     string          `json:"status" validate:"required"`
	OrderDate  time.Time       `json:"order_date" validate:"required"`
}

// IngestOrderSnapshot mirrors an order lifecycle event into the local
// snapshot store that eligibility and retention queries read.
func IngestOrderSnapshot(repo *orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderSnapshotRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.OrderStatus(req.Status)
		if !status.IsValid() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": req.Status}))
			return
		}

		currency := req.Currency
		if currency == "" {
			currency = "CHF"
		}

		snapshot := &models.OrderSnapshot{
			ID:         req.ID,
			CustomerID: req.CustomerID,
			Total:      req.Total,
			Tax:        req.Tax,
			Currency:   currency,
			Status:     status,
			OrderDate:  req.OrderDate.UTC(),
		}
		if err := repo.Upsert(r.Context(), snapshot); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "store order snapshot"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}
