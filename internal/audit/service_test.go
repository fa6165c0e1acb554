package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	"github.com/velafit/coachrewards-backend/pkg/logger"
	"github.com/velafit/coachrewards-backend/pkg/pagination"
)

type fakeAuditRepo struct {
	Repository

	created   []models.AuditEvent
	createErr error
	listed    []models.AuditEvent
	deleted   int64
	cutoff    time.Time
}

func (f *fakeAuditRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAuditRepo) Create(ctx context.Context, event *models.AuditEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *event)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filters Filters, limit int, cursor *pagination.Cursor) ([]models.AuditEvent, error) {
	if cursor != nil {
		return nil, nil
	}
	if limit > 0 && len(f.listed) > limit {
		return f.listed[:limit], nil
	}
	return f.listed, nil
}

func (f *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

func testAuditConfig() config.AuditConfig {
	return config.AuditConfig{RetentionMonths: 6, PurgeProbability: 0.01, PurgeBatchSize: 500}
}

func newTestAuditService(t *testing.T, repo Repository, logOutput *bytes.Buffer) *service {
	t.Helper()
	if logOutput == nil {
		logOutput = &bytes.Buffer{}
	}
	logg := logger.New(logger.Options{ServiceName: "audit-test", Level: zerolog.DebugLevel, Output: logOutput})
	svc, err := NewService(testAuditConfig(), repo, nil, logg)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	impl := svc.(*service)
	impl.roll = func() float64 { return 1 }
	return impl
}

func TestRecord_PersistsEvent(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newTestAuditService(t, repo, nil)
	admin := uuid.New()

	svc.Record(context.Background(), RecordInput{
		EventType: "eligibility.override",
		Category:  enums.AuditCategoryAdmin,
		UserID:    &admin,
		Data:      map[string]string{"order_id": uuid.NewString()},
		IPAddress: "10.1.2.3",
	})

	if len(repo.created) != 1 {
		t.Fatalf("expected one event, got %d", len(repo.created))
	}
	event := repo.created[0]
	if event.EventType != "eligibility.override" || event.Category != enums.AuditCategoryAdmin {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.CreatedAtUTC.IsZero() || len(event.Data) == 0 {
		t.Fatalf("expected payload and utc timestamp, got %+v", event)
	}
}

func TestRecord_WriteFailureGoesToDiagnosticSink(t *testing.T) {
	repo := &fakeAuditRepo{createErr: errors.New("connection reset")}
	var logOutput bytes.Buffer
	svc := newTestAuditService(t, repo, &logOutput)

	svc.Record(context.Background(), RecordInput{
		EventType: "commission.completed",
		Category:  enums.AuditCategoryCommission,
	})

	if !strings.Contains(logOutput.String(), "audit write failed") {
		t.Fatalf("expected fallback log entry, got %q", logOutput.String())
	}
}

func TestRecord_RejectsInvalidCategory(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newTestAuditService(t, repo, nil)

	svc.Record(context.Background(), RecordInput{
		EventType: "whatever",
		Category:  enums.AuditCategory("marketing"),
	})

	if len(repo.created) != 0 {
		t.Fatalf("invalid category must not be persisted")
	}
}

func TestRecord_ProbabilisticPurge(t *testing.T) {
	repo := &fakeAuditRepo{deleted: 7}
	svc := newTestAuditService(t, repo, nil)
	svc.roll = func() float64 { return 0 }

	before := time.Now().UTC().AddDate(0, -6, 0).Add(-time.Minute)
	svc.Record(context.Background(), RecordInput{
		EventType: "commission.completed",
		Category:  enums.AuditCategoryCommission,
	})

	if repo.cutoff.IsZero() {
		t.Fatalf("expected a purge to run")
	}
	if repo.cutoff.Before(before) {
		t.Fatalf("cutoff %s older than retention window", repo.cutoff)
	}
}

func TestQuery_BuildsPage(t *testing.T) {
	now := time.Now().UTC()
	var listed []models.AuditEvent
	for i := 0; i < 3; i++ {
		listed = append(listed, models.AuditEvent{
			ID:        uuid.New(),
			EventType: "commission.completed",
			Category:  enums.AuditCategoryCommission,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	repo := &fakeAuditRepo{listed: listed}
	svc := newTestAuditService(t, repo, nil)

	page, err := svc.Query(context.Background(), Filters{}, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected a next cursor")
	}
}

func TestExportCSV_Shape(t *testing.T) {
	admin := uuid.New()
	event := models.AuditEvent{
		ID:           uuid.New(),
		EventType:    "eligibility.override",
		Category:     enums.AuditCategoryAdmin,
		UserID:       &admin,
		Data:         []byte(`{"note":"cleared"}`),
		IPAddress:    "10.0.0.9",
		UserAgent:    "curl/8",
		SessionID:    "sess-1",
		CreatedAtUTC: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	repo := &fakeAuditRepo{listed: []models.AuditEvent{event}}
	svc := newTestAuditService(t, repo, nil)

	var out bytes.Buffer
	if err := svc.ExportCSV(context.Background(), Filters{}, &out); err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}

	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	wantHeader := []string{"ID", "Event Type", "Category", "User ID", "Data(JSON)", "IP", "User-Agent", "Session", "Created-At"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header column %d = %q, want %q", i, rows[0][i], col)
		}
	}
	row := rows[1]
	if row[0] != event.ID.String() || row[3] != admin.String() || row[4] != `{"note":"cleared"}` {
		t.Fatalf("unexpected row %v", row)
	}
	if row[8] != "2026-02-03T04:05:06Z" {
		t.Fatalf("unexpected timestamp column %q", row[8])
	}
}
