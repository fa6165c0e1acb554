package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/pkg/db"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

// Service defines the ledger operations exposed to the commission engine and
// the admin surface. The referral/credit tables are the source of truth for
// balances; the cached coach balance is only a projection.
type Service interface {
	RecordPendingReferral(ctx context.Context, input PendingReferralInput) (*models.ReferralRecord, error)
	RemoveDuplicateReferral(ctx context.Context, referralID uuid.UUID) error
	GrantCredit(ctx context.Context, input GrantCreditInput) (*models.CreditRecord, error)
	RedeemCredit(ctx context.Context, input RedeemCreditInput) (*models.CreditRedemption, error)
	SpendableBalance(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	CoachBalance(ctx context.Context, coachID uuid.UUID) (decimal.Decimal, error)
	RecomputeCoachBalance(ctx context.Context, coachID uuid.UUID) (ReconcileResult, error)
}

// PendingReferralInput captures the data an order event supplies when a
// referral code converts.
type PendingReferralInput struct {
	CoachID       uuid.UUID
	CustomerID    uuid.UUID
	ReferrerID    *uuid.UUID
	ReferrerType  enums.ReferrerType
	OrderID       uuid.UUID
	PurchaseCount int
	ReferralCode  string
	Currency      string
}

// GrantCreditInput captures a customer credit grant.
type GrantCreditInput struct {
	ReferralID *uuid.UUID
	CustomerID uuid.UUID
	CoachID    uuid.UUID
	Amount     decimal.Decimal
	CreditType enums.CreditType
	ExpiresAt  *time.Time
}

// RedeemCreditInput captures spend against a customer's credit balance.
type RedeemCreditInput struct {
	CustomerID uuid.UUID
	OrderID    uuid.UUID
	Amount     decimal.Decimal
}

// ReconcileResult reports a balance recompute outcome.
type ReconcileResult struct {
	CoachID  uuid.UUID       `json:"coach_id"`
	Ledger   decimal.Decimal `json:"ledger"`
	Cached   decimal.Decimal `json:"cached"`
	Drifted  bool            `json:"drifted"`
	Repaired bool            `json:"repaired"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordPendingReferral(ctx context.Context, input PendingReferralInput) (*models.ReferralRecord, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.CoachID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !input.ReferrerType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid referrer type %q", input.ReferrerType))
	}
	if input.PurchaseCount < 1 {
		input.PurchaseCount = 1
	}
	currency := input.Currency
	if currency == "" {
		currency = "CHF"
	}

	// Read-then-create: concurrent intake of the same order event can
	// still leave two pending rows. That is tolerated; the completed
	// unique index on (order_id, coach_id) guarantees only one of them
	// finalizes, and the loser is removable as a duplicate.
	existing, err := s.repo.ListReferralsByOrderCoach(ctx, input.OrderID, input.CoachID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load referral records")
	}
	for i := range existing {
		// redelivery of the same order event: reuse the open record and
		// never shadow a completed one
		if existing[i].Status == enums.ReferralStatusCompleted || existing[i].Status == enums.ReferralStatusPending {
			return &existing[i], nil
		}
	}

	record := &models.ReferralRecord{
		ID:            uuid.New(),
		CoachID:       input.CoachID,
		CustomerID:    input.CustomerID,
		ReferrerID:    input.ReferrerID,
		ReferrerType:  input.ReferrerType,
		OrderID:       input.OrderID,
		PurchaseCount: input.PurchaseCount,
		Status:        enums.ReferralStatusPending,
		ReferralCode:  input.ReferralCode,
		Currency:      currency,
	}
	if err := s.repo.CreateReferral(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "referral already recorded for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create referral record")
	}
	return record, nil
}

func (s *service) RemoveDuplicateReferral(ctx context.Context, referralID uuid.UUID) error {
	if referralID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "referral id is required")
	}
	record, err := s.repo.GetReferralByID(ctx, referralID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load referral record")
	}
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "referral record not found")
	}
	if record.Status == enums.ReferralStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeConflict, "completed referral records cannot be removed")
	}
	if err := s.repo.DeleteReferral(ctx, referralID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete referral record")
	}
	return nil
}

func (s *service) GrantCredit(ctx context.Context, input GrantCreditInput) (*models.CreditRecord, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.CoachID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	creditType := input.CreditType
	if creditType == "" {
		creditType = enums.CreditTypeReferral
	}
	if !creditType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit type %q", creditType))
	}

	credit := &models.CreditRecord{
		ID:           uuid.New(),
		ReferralID:   input.ReferralID,
		CustomerID:   input.CustomerID,
		CoachID:      input.CoachID,
		CreditAmount: input.Amount.Round(2),
		CreditType:   creditType,
		Status:       enums.CreditStatusActive,
		ExpiresAt:    input.ExpiresAt,
	}
	if err := s.repo.CreateCredit(ctx, credit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create credit record")
	}
	return credit, nil
}

func (s *service) RedeemCredit(ctx context.Context, input RedeemCreditInput) (*models.CreditRedemption, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption amount must be positive")
	}

	spendable, err := s.SpendableBalance(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if spendable.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient credit balance").
			WithDetails(map[string]any{"spendable": spendable, "requested": input.Amount})
	}

	redemption := &models.CreditRedemption{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		OrderID:    input.OrderID,
		Amount:     input.Amount.Round(2),
	}
	if err := s.repo.CreateRedemption(ctx, redemption); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create redemption")
	}
	return redemption, nil
}

func (s *service) SpendableBalance(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	if customerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	granted, err := s.repo.SumActiveCredits(ctx, customerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "sum active credits")
	}
	redeemed, err := s.repo.SumRedemptions(ctx, customerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "sum redemptions")
	}
	spendable := granted.Sub(redeemed)
	if spendable.IsNegative() {
		spendable = decimal.Zero
	}
	return spendable, nil
}

func (s *service) CoachBalance(ctx context.Context, coachID uuid.UUID) (decimal.Decimal, error) {
	if coachID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}
	cached, err := s.repo.GetBalance(ctx, coachID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load coach balance")
	}
	if cached != nil {
		return cached.Balance, nil
	}
	// cache miss: fall back to the authoritative ledger sum
	total, err := s.repo.SumCompletedByCoach(ctx, coachID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "sum completed referrals")
	}
	return total, nil
}

func (s *service) RecomputeCoachBalance(ctx context.Context, coachID uuid.UUID) (ReconcileResult, error) {
	result := ReconcileResult{CoachID: coachID}
	if coachID == uuid.Nil {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}

	ledgerSum, err := s.repo.SumCompletedByCoach(ctx, coachID)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "sum completed referrals")
	}
	result.Ledger = ledgerSum

	cached, err := s.repo.GetBalance(ctx, coachID)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load coach balance")
	}
	if cached != nil {
		result.Cached = cached.Balance
	}

	if cached == nil || !cached.Balance.Equal(ledgerSum) {
		result.Drifted = cached != nil
		if err := s.repo.SetBalance(ctx, coachID, ledgerSum); err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "repair coach balance")
		}
		result.Repaired = true
	}
	return result, nil
}
