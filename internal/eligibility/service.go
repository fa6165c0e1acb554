package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

// Service evaluates referral eligibility and handles the admin override
// workflow. The default window rule is advisory: an ineligible
// recent_purchase outcome is surfaced for admins but does not block the
// commission itself.
type Service interface {
	Evaluate(ctx context.Context, input EvaluateInput) (*models.EligibilityDecision, error)
	GetDecision(ctx context.Context, orderID uuid.UUID) (*models.EligibilityDecision, error)
	Override(ctx context.Context, input OverrideInput) (*models.EligibilityDecision, error)
}

// EvaluateInput identifies the order being gated. CustomerID is nil for guest
// checkouts. LookbackMonths of zero falls back to the configured default.
type EvaluateInput struct {
	CustomerID     *uuid.UUID
	OrderID        uuid.UUID
	LookbackMonths int
	Now            time.Time
}

// OverrideInput is one admin override request.
type OverrideInput struct {
	ActorUserID  uuid.UUID
	ActorRole    enums.ActorRole
	OrderID      uuid.UUID
	TargetStatus enums.OverrideStatus
	Note         string
}

// ReferralStore is the slice of the ledger an override needs to push the
// affected referral back through commission computation.
type ReferralStore interface {
	FindReferralByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReferralRecord, error)
	SaveReferral(ctx context.Context, record *models.ReferralRecord) error
}

type service struct {
	cfg       config.EligibilityConfig
	repo      Repository
	orders    orders.Provider
	referrals ReferralStore
}

// NewService wires the eligibility evaluator.
func NewService(cfg config.EligibilityConfig, repo Repository, provider orders.Provider, referrals ReferralStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("eligibility repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("order provider required")
	}
	if referrals == nil {
		return nil, fmt.Errorf("referral store required")
	}
	return &service{cfg: cfg, repo: repo, orders: provider, referrals: referrals}, nil
}

func (s *service) Evaluate(ctx context.Context, input EvaluateInput) (*models.EligibilityDecision, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	lookback := input.LookbackMonths
	if lookback <= 0 {
		lookback = s.cfg.LookbackMonths
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	existing, err := s.repo.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load eligibility decision")
	}
	if existing != nil {
		overrides, err := ParseOverrides(existing.Overrides)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "normalize override history")
		}
		// A manual override is final until the next override; re-evaluation
		// must not clobber it.
		if len(overrides) > 0 {
			return existing, nil
		}
	}

	decision := &models.EligibilityDecision{
		OrderID:        input.OrderID,
		CustomerID:     input.CustomerID,
		LookbackMonths: lookback,
		EvaluatedAt:    now,
	}
	if existing != nil {
		decision.ID = existing.ID
		decision.Overrides = existing.Overrides
		decision.CreatedAt = existing.CreatedAt
	}

	switch {
	case !s.cfg.WindowRuleEnabled:
		decision.Eligible = true
		decision.Reason = enums.EligibilityReasonRuleDisabled
	case input.CustomerID == nil || *input.CustomerID == uuid.Nil:
		decision.Eligible = true
		decision.Reason = enums.EligibilityReasonGuestCheckout
	default:
		last, err := s.orders.LastCompletedBefore(ctx, *input.CustomerID, now, input.OrderID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			decision.Eligible = true
			decision.Reason = enums.EligibilityReasonNoHistory
		} else {
			months := monthsBetween(last.OrderDate, now)
			lastID := last.ID
			lastDate := last.OrderDate
			decision.LastOrderID = &lastID
			decision.LastOrderDate = &lastDate
			decision.MonthsSinceLast = &months
			if months >= lookback {
				decision.Eligible = true
				decision.Reason = enums.EligibilityReasonDormant
			} else {
				decision.Eligible = false
				decision.Reason = enums.EligibilityReasonRecentPurchase
			}
		}
	}

	if err := s.repo.Upsert(ctx, decision); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist eligibility decision")
	}
	return decision, nil
}

func (s *service) GetDecision(ctx context.Context, orderID uuid.UUID) (*models.EligibilityDecision, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	decision, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load eligibility decision")
	}
	if decision == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "eligibility decision not found")
	}
	return decision, nil
}

func (s *service) Override(ctx context.Context, input OverrideInput) (*models.EligibilityDecision, error) {
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "eligibility overrides require the admin role")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if !input.TargetStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid override status %q", input.TargetStatus))
	}

	decision, err := s.repo.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load eligibility decision")
	}
	if decision == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "eligibility decision not found")
	}

	entry := OverrideEntry{
		Status:    input.TargetStatus,
		Note:      input.Note,
		UserID:    input.ActorUserID,
		Timestamp: time.Now().UTC(),
	}
	overrides, err := AppendOverride(decision.Overrides, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "append override entry")
	}
	decision.Overrides = overrides
	if input.TargetStatus == enums.OverrideStatusEligible {
		decision.Eligible = true
		decision.Reason = enums.EligibilityReasonManualOverride
	} else {
		decision.Eligible = false
		decision.Reason = enums.EligibilityReasonManualBlock
	}

	if err := s.repo.Upsert(ctx, decision); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist override")
	}

	// Push the referral back to pending so the next computation pass picks up
	// the overridden state.
	referral, err := s.referrals.FindReferralByOrder(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load referral for override")
	}
	if referral != nil && referral.Status != enums.ReferralStatusPending {
		referral.Status = enums.ReferralStatusPending
		if err := s.referrals.SaveReferral(ctx, referral); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reset referral status")
		}
	}

	return decision, nil
}

// monthsBetween counts whole calendar months from one instant to a later one.
func monthsBetween(from, to time.Time) int {
	f, t := from.UTC(), to.UTC()
	if t.Before(f) {
		return 0
	}
	months := (t.Year()-f.Year())*12 + int(t.Month()) - int(f.Month())
	if t.Day() < f.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
