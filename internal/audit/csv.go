package audit

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/pagination"
)

var csvHeader = []string{
	"ID", "Event Type", "Category", "User ID", "Data(JSON)",
	"IP", "User-Agent", "Session", "Created-At",
}

// ExportCSV streams every matching event in the admin export shape, newest
// first, paging through the log so large exports stay bounded in memory.
func (s *service) ExportCSV(ctx context.Context, filters Filters, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write csv header")
	}

	var cursor *pagination.Cursor
	for {
		events, err := s.repo.List(ctx, filters, pagination.MaxLimit, cursor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "export audit log")
		}
		for _, event := range events {
			if err := writer.Write(csvRow(event)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write csv row")
			}
		}
		if len(events) < pagination.MaxLimit {
			break
		}
		last := events[len(events)-1]
		cursor = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flush csv export")
	}
	return nil
}

func csvRow(event models.AuditEvent) []string {
	userID := ""
	if event.UserID != nil {
		userID = event.UserID.String()
	}
	return []string{
		event.ID.String(),
		event.EventType,
		string(event.Category),
		userID,
		string(event.Data),
		event.IPAddress,
		event.UserAgent,
		event.SessionID,
		event.CreatedAtUTC.Format(time.RFC3339),
	}
}
