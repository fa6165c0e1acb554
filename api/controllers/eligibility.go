package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/api/middleware"
	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/eligibility"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

// GetEligibility returns the stored decision for an order.
func GetEligibility(svc eligibility.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := svc.GetDecision(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if decision == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no decision recorded for order"))
			return
		}
		responses.WriteSuccess(w, decision)
	}
}

type evaluateEligibilityRequest struct {
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	OrderID        uuid.UUID  `json:"order_id" validate:"required"`
	LookbackMonths int        `json:"lookback_months,omitempty" validate:"omitempty,min=1,max=120"`
}

// EvaluateEligibility runs the recent-purchase window rule for an order and
// persists the resulting decision.
func EvaluateEligibility(svc eligibility.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req evaluateEligibilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := svc.Evaluate(r.Context(), eligibility.EvaluateInput{
			CustomerID:     req.CustomerID,
			OrderID:        req.OrderID,
			LookbackMonths: req.LookbackMonths,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}

func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type overrideEligibilityRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"required,min=3,max=500"`
}

// OverrideEligibility lets an admin force or block a decision. The acting
// user comes from the authenticated context, never the body.
func OverrideEligibility(svc eligibility.Service, recorder audit.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req overrideEligibilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOverrideStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown override status"))
			return
		}

		actorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity"))
			return
		}
		role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role"))
			return
		}

		decision, err := svc.Override(r.Context(), eligibility.OverrideInput{
			ActorUserID:  actorID,
			ActorRole:    role,
			OrderID:      orderID,
			TargetStatus: status,
			Note:         validators.SanitizeString(req.Note, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if recorder != nil {
			recorder.Record(r.Context(), audit.RecordInput{
				EventType: "eligibility.override",
				Category:  enums.AuditCategoryAdmin,
				UserID:    &actorID,
				Data: map[string]any{
					"order_id": orderID,
					"status":   status,
					"note":     req.Note,
				},
				IPAddress: clientAddress(r),
				UserAgent: r.UserAgent(),
			})
		}

		responses.WriteSuccess(w, decision)
	}
}
