package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

// balanceReconciler is the slice of the ledger the job drives.
type balanceReconciler interface {
	RecomputeCoachBalance(ctx context.Context, coachID uuid.UUID) (ledger.ReconcileResult, error)
}

// coachLister enumerates the coaches present in the ledger.
type coachLister interface {
	ListCoachIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BalanceReconcileJobParams configures the nightly balance check.
type BalanceReconcileJobParams struct {
	Logger   *logger.Logger
	Ledger   balanceReconciler
	Coaches  coachLister
	Recorder audit.Recorder
}

// BalanceReconcileJob recomputes every cached coach balance from the ledger
// and repairs rows that drifted. The cached balance is only a projection;
// the referral and credit tables stay authoritative.
type BalanceReconcileJob struct {
	logg     *logger.Logger
	ledger   balanceReconciler
	coaches  coachLister
	recorder audit.Recorder
}

// NewBalanceReconcileJob constructs the reconciliation job.
func NewBalanceReconcileJob(params BalanceReconcileJobParams) (*BalanceReconcileJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Coaches == nil {
		return nil, fmt.Errorf("coach lister required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &BalanceReconcileJob{
		logg:     params.Logger,
		ledger:   params.Ledger,
		coaches:  params.Coaches,
		recorder: params.Recorder,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *BalanceReconcileJob) Name() string { return "balance_reconcile" }

// Run recomputes every coach balance, continuing past individual failures.
func (j *BalanceReconcileJob) Run(ctx context.Context) error {
	coachIDs, err := j.coaches.ListCoachIDs(ctx)
	if err != nil {
		return fmt.Errorf("list coaches: %w", err)
	}

	var errs error
	drifted := 0
	for _, coachID := range coachIDs {
		result, err := j.ledger.RecomputeCoachBalance(ctx, coachID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("coach %s: %w", coachID, err))
			continue
		}
		if !result.Drifted {
			continue
		}
		drifted++
		coachCtx := j.logg.WithCoachID(ctx, coachID.String())
		j.logg.Warn(coachCtx, fmt.Sprintf("cached balance drifted: cached %s, ledger %s", result.Cached, result.Ledger))
		j.recorder.Record(ctx, audit.RecordInput{
			EventType: "ledger.balance_drift",
			Category:  enums.AuditCategorySystem,
			Data:      result,
		})
	}
	if drifted > 0 {
		j.logg.Warn(ctx, fmt.Sprintf("balance reconciliation repaired %d of %d coaches", drifted, len(coachIDs)))
	}
	return errs
}
