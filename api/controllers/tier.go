package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type tierResolver interface {
	ResolveTier(ctx context.Context, coachID uuid.UUID) (enums.CoachTier, error)
}

// GetCoachTier resolves a coach's tier from their completed referral count.
func GetCoachTier(resolver tierResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coachID, err := validators.PathUUID(chi.URLParam(r, "coachId"), "coachId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier, err := resolver.ResolveTier(r.Context(), coachID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"coach_id": coachID, "tier": tier})
	}
}
