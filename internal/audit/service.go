package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
	"github.com/velafit/coachrewards-backend/pkg/pagination"
	"github.com/velafit/coachrewards-backend/pkg/redis"
)

const purgeRateScope = "audit-purge"

// Recorder is the write-only slice of the audit log handed to other
// services. Record is fire-and-forget: it never returns an error and never
// blocks the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, input RecordInput)
}

// Service is the full audit log surface.
type Service interface {
	Recorder

	Query(ctx context.Context, filters Filters, params pagination.Params) (pagination.Page[models.AuditEvent], error)
	Stats(ctx context.Context, from, to time.Time) (Stats, error)
	ExportCSV(ctx context.Context, filters Filters, w io.Writer) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// RecordInput is one audit event to append.
type RecordInput struct {
	EventType string
	Category  enums.AuditCategory
	UserID    *uuid.UUID
	Data      any
	IPAddress string
	UserAgent string
	SessionID string
}

// Stats aggregates audit activity over a window.
type Stats struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	TotalEvents    int64     `json:"total_events"`
	UniqueUsers    int64     `json:"unique_users"`
	UniqueIPs      int64     `json:"unique_ips"`
	SecurityEvents int64     `json:"security_events"`
}

type service struct {
	cfg   config.AuditConfig
	repo  Repository
	redis *redis.Client
	logg  *logger.Logger
	now   func() time.Time
	roll  func() float64
}

// NewService wires the audit log. The redis client is optional; without it
// the probabilistic purge runs unthrottled.
func NewService(cfg config.AuditConfig, repo Repository, redisClient *redis.Client, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cfg:   cfg,
		repo:  repo,
		redis: redisClient,
		logg:  logg,
		now:   func() time.Time { return time.Now().UTC() },
		roll:  rand.Float64,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) {
	event, err := s.buildEvent(input)
	if err != nil {
		s.logg.Error(ctx, "audit event rejected", err)
		return
	}
	if err := s.repo.Create(ctx, event); err != nil {
		// The primary transaction must not notice; the diagnostic log is the
		// fallback sink for lost audit rows.
		s.logg.Error(ctx, fmt.Sprintf("audit write failed: %s %s", event.Category, event.EventType), err)
		return
	}
	s.maybePurge(ctx)
}

func (s *service) buildEvent(input RecordInput) (*models.AuditEvent, error) {
	if input.EventType == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("invalid audit category %q", input.Category)
	}
	var payload json.RawMessage
	if input.Data != nil {
		raw, err := json.Marshal(input.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal audit payload: %w", err)
		}
		payload = raw
	}
	now := s.now()
	return &models.AuditEvent{
		ID:           uuid.New(),
		EventType:    input.EventType,
		Category:     input.Category,
		UserID:       input.UserID,
		Data:         payload,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		SessionID:    input.SessionID,
		CreatedAt:    now,
		CreatedAtUTC: now,
	}, nil
}

func (s *service) Query(ctx context.Context, filters Filters, params pagination.Params) (pagination.Page[models.AuditEvent], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	events, err := s.repo.List(ctx, filters, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return pagination.Page[models.AuditEvent]{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "query audit log")
	}
	return pagination.BuildPage(events, params.Limit, func(event models.AuditEvent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: event.CreatedAt, ID: event.ID}
	}), nil
}

func (s *service) Stats(ctx context.Context, from, to time.Time) (Stats, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	if !from.Before(to) {
		return Stats{}, pkgerrors.New(pkgerrors.CodeValidation, "stats window start must precede its end")
	}

	total, err := s.repo.CountEvents(ctx, from, to)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count audit events")
	}
	users, err := s.repo.CountDistinct(ctx, "user_id", from, to)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count distinct users")
	}
	ips, err := s.repo.CountDistinct(ctx, "ip_address", from, to)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count distinct ips")
	}
	security, err := s.repo.CountByCategory(ctx, enums.AuditCategorySecurity, from, to)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count security events")
	}
	return Stats{
		From:           from,
		To:             to,
		TotalEvents:    total,
		UniqueUsers:    users,
		UniqueIPs:      ips,
		SecurityEvents: security,
	}, nil
}

func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, -s.cfg.RetentionMonths, 0)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff, s.purgeBatchSize())
	if err != nil {
		return deleted, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "purge audit log")
	}
	return deleted, nil
}

// maybePurge runs retention opportunistically on the write path. The roll
// keeps it rare and the redis window keeps concurrent instances from piling
// sweeps on top of each other.
func (s *service) maybePurge(ctx context.Context) {
	if s.cfg.PurgeProbability <= 0 || s.roll() >= s.cfg.PurgeProbability {
		return
	}
	if s.redis != nil {
		allowed, _, err := s.redis.FixedWindowAllow(ctx, purgeRateScope, 1, time.Hour)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("audit purge rate check failed: %v", err))
			return
		}
		if !allowed {
			return
		}
	}
	deleted, err := s.PurgeExpired(ctx)
	if err != nil {
		s.logg.Error(ctx, "opportunistic audit purge failed", err)
		return
	}
	if deleted > 0 {
		s.logg.Info(ctx, fmt.Sprintf("audit purge removed %d expired events", deleted))
	}
}

func (s *service) purgeBatchSize() int {
	if s.cfg.PurgeBatchSize <= 0 {
		return 500
	}
	return s.cfg.PurgeBatchSize
}
