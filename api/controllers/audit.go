package controllers

import (
	"net/http"
	"time"

	"github.com/velafit/coachrewards-backend/api/responses"
	"github.com/velafit/coachrewards-backend/api/validators"
	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
	"github.com/velafit/coachrewards-backend/pkg/pagination"
)

func auditFiltersFromQuery(r *http.Request) (audit.Filters, error) {
	filters := audit.Filters{
		EventType: validators.SanitizeString(r.URL.Query().Get("event_type"), 120),
		IPAddress: validators.SanitizeString(r.URL.Query().Get("ip"), 64),
	}

	if raw := validators.SanitizeString(r.URL.Query().Get("category"), 40); raw != "" {
		category, err := enums.ParseAuditCategory(raw)
		if err != nil {
			return audit.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown audit category")
		}
		filters.Category = category
	}

	userID, err := validators.ParseQueryUUID(r, "user_id")
	if err != nil {
		return audit.Filters{}, err
	}
	filters.UserID = userID

	if filters.From, err = validators.ParseQueryTime(r, "from"); err != nil {
		return audit.Filters{}, err
	}
	if filters.To, err = validators.ParseQueryTime(r, "to"); err != nil {
		return audit.Filters{}, err
	}
	return filters, nil
}

// QueryAuditEvents returns a filtered, cursor-paginated slice of the audit
// trail, newest first.
func QueryAuditEvents(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := auditFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Query(r.Context(), filters, pagination.Params{
			Limit:  limit,
			Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AuditStats summarizes audit activity over a window, defaulting to the
// trailing month.
func AuditStats(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var fromT, toT time.Time
		if from != nil {
			fromT = *from
		}
		if to != nil {
			toT = *to
		}

		stats, err := svc.Stats(r.Context(), fromT, toT)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ExportAuditCSV streams the filtered audit trail as a CSV attachment.
func ExportAuditCSV(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := auditFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-events.csv"`)

		if err := svc.ExportCSV(r.Context(), filters, w); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "audit csv export failed", err)
			}
		}
	}
}
