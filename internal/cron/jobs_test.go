package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

type fakePurger struct {
	deleted int64
	err     error
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	return f.deleted, f.err
}

type fakeRecorder struct {
	events []audit.RecordInput
}

func (f *fakeRecorder) Record(ctx context.Context, input audit.RecordInput) {
	f.events = append(f.events, input)
}

type fakeReconciler struct {
	results map[uuid.UUID]ledger.ReconcileResult
	errs    map[uuid.UUID]error
}

func (f *fakeReconciler) RecomputeCoachBalance(ctx context.Context, coachID uuid.UUID) (ledger.ReconcileResult, error) {
	if err, ok := f.errs[coachID]; ok {
		return ledger.ReconcileResult{}, err
	}
	return f.results[coachID], nil
}

type fakeCoachLister struct {
	ids []uuid.UUID
}

func (f *fakeCoachLister) ListCoachIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f.ids, nil
}

type fakeExpirer struct {
	expired int64
	cutoff  time.Time
}

func (f *fakeExpirer) ExpireCreditsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.expired, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func TestAuditRetentionJob_RecordsSweep(t *testing.T) {
	recorder := &fakeRecorder{}
	job, err := NewAuditRetentionJob(AuditRetentionJobParams{
		Logger:   testLogger(),
		Audit:    &fakePurger{deleted: 12},
		Recorder: recorder,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(recorder.events) != 1 || recorder.events[0].EventType != "audit.retention_sweep" {
		t.Fatalf("expected a retention_sweep event, got %+v", recorder.events)
	}
}

func TestAuditRetentionJob_NothingToDelete(t *testing.T) {
	recorder := &fakeRecorder{}
	job, err := NewAuditRetentionJob(AuditRetentionJobParams{
		Logger:   testLogger(),
		Audit:    &fakePurger{},
		Recorder: recorder,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(recorder.events) != 0 {
		t.Fatalf("empty sweep must not emit events")
	}
}

func TestBalanceReconcileJob_FlagsDriftAndContinuesOnFailure(t *testing.T) {
	healthy, drifted, broken := uuid.New(), uuid.New(), uuid.New()
	reconciler := &fakeReconciler{
		results: map[uuid.UUID]ledger.ReconcileResult{
			healthy: {CoachID: healthy, Ledger: decimal.NewFromInt(50), Cached: decimal.NewFromInt(50)},
			drifted: {CoachID: drifted, Ledger: decimal.NewFromInt(80), Cached: decimal.NewFromInt(75), Drifted: true, Repaired: true},
		},
		errs: map[uuid.UUID]error{broken: errors.New("deadlock")},
	}
	recorder := &fakeRecorder{}

	job, err := NewBalanceReconcileJob(BalanceReconcileJobParams{
		Logger:   testLogger(),
		Ledger:   reconciler,
		Coaches:  &fakeCoachLister{ids: []uuid.UUID{healthy, drifted, broken}},
		Recorder: recorder,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error for the broken coach")
	}
	if len(recorder.events) != 1 || recorder.events[0].EventType != "ledger.balance_drift" {
		t.Fatalf("expected one drift event, got %+v", recorder.events)
	}
}

func TestCreditExpiryJob_UsesCurrentCutoff(t *testing.T) {
	expirer := &fakeExpirer{expired: 2}
	recorder := &fakeRecorder{}
	job, err := NewCreditExpiryJob(CreditExpiryJobParams{
		Logger:   testLogger(),
		Ledger:   expirer,
		Recorder: recorder,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	now := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !expirer.cutoff.Equal(now) {
		t.Fatalf("cutoff = %s, want %s", expirer.cutoff, now)
	}
	if len(recorder.events) != 1 || recorder.events[0].EventType != "credits.expired" {
		t.Fatalf("expected a credits.expired event, got %+v", recorder.events)
	}
}
