package cron

import (
	"context"
	"fmt"

	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	"github.com/velafit/coachrewards-backend/pkg/logger"
)

// auditPurger is the retention surface of the audit log.
type auditPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuditRetentionJobParams configures the scheduled audit sweep.
type AuditRetentionJobParams struct {
	Logger   *logger.Logger
	Audit    auditPurger
	Recorder audit.Recorder
}

// AuditRetentionJob deletes audit events older than the retention window.
// The opportunistic purge on the write path keeps growth in check between
// runs; this job is the guaranteed sweep.
type AuditRetentionJob struct {
	logg     *logger.Logger
	audit    auditPurger
	recorder audit.Recorder
}

// NewAuditRetentionJob constructs the retention sweep.
func NewAuditRetentionJob(params AuditRetentionJobParams) (*AuditRetentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &AuditRetentionJob{
		logg:     params.Logger,
		audit:    params.Audit,
		recorder: params.Recorder,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *AuditRetentionJob) Name() string { return "audit_retention" }

// Run performs one sweep.
func (j *AuditRetentionJob) Run(ctx context.Context) error {
	deleted, err := j.audit.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge audit log: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(ctx, fmt.Sprintf("audit retention removed %d events", deleted))
		j.recorder.Record(ctx, audit.RecordInput{
			EventType: "audit.retention_sweep",
			Category:  enums.AuditCategorySystem,
			Data:      map[string]int64{"deleted": deleted},
		})
	}
	return nil
}
