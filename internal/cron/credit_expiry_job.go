package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

// creditExpirer marks overdue credit grants as expired.
type creditExpirer interface {
	ExpireCreditsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CreditExpiryJobParams configures the credit expiry sweep.
type CreditExpiryJobParams struct {
	Logger   *logger.Logger
	Ledger   creditExpirer
	Recorder audit.Recorder
}

// CreditExpiryJob expires customer credits whose expires_at has passed, so
// spendable-balance sums stop counting them.
type CreditExpiryJob struct {
	logg     *logger.Logger
	ledger   creditExpirer
	recorder audit.Recorder
	now      func() time.Time
}

// NewCreditExpiryJob constructs the credit expiry sweep.
func NewCreditExpiryJob(params CreditExpiryJobParams) (*CreditExpiryJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &CreditExpiryJob{
		logg:     params.Logger,
		ledger:   params.Ledger,
		recorder: params.Recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *CreditExpiryJob) Name() string { return "credit_expiry" }

// Run expires every credit past its expiry timestamp.
func (j *CreditExpiryJob) Run(ctx context.Context) error {
	expired, err := j.ledger.ExpireCreditsBefore(ctx, j.now())
	if err != nil {
		return fmt.Errorf("expire credits: %w", err)
	}
	if expired > 0 {
		j.logg.Info(ctx, fmt.Sprintf("expired %d customer credits", expired))
		j.recorder.Record(ctx, audit.RecordInput{
			EventType: "credits.expired",
			Category:  enums.AuditCategoryPoints,
			Data:      map[string]int64{"expired": expired},
		})
	}
	return nil
}
