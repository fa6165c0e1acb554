package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/eligibility"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/internal/partnership"
	"github.com/velafit/coachrewards-backend/pkg/db"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
	"github.com/velafit/coachrewards-backend/pkg/logger"
	"github.com/velafit/coachrewards-backend/pkg/metrics"
	"gorm.io/gorm"
)

// Payout paths for one order completion.
const (
	PathReferral    = "referral"
	PathPartnership = "partnership"
)

// Notifier tells a coach about a finalized payout. Delivery is best effort
// and runs after the commit, so implementations must not block the handler.
type Notifier interface {
	CommissionCompleted(ctx context.Context, coachID uuid.UUID, result *Result)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) CommissionCompleted(context.Context, uuid.UUID, *Result) {}

// PartnerPayout is the standing partner's ongoing commission on one order,
// paid alongside (or instead of) a one-time referral commission.
type PartnerPayout struct {
	RecordID   uuid.UUID               `json:"record_id"`
	CoachID    uuid.UUID               `json:"coach_id"`
	Commission *partnership.Commission `json:"commission,omitempty"`
	Total      decimal.Decimal         `json:"total"`
}

// Result reports what one order-completion pass did.
type Result struct {
	ReferralID  uuid.UUID                   `json:"referral_id"`
	OrderID     uuid.UUID                   `json:"order_id"`
	CoachID     uuid.UUID                   `json:"coach_id"`
	Skipped     bool                        `json:"skipped"`
	Blocked     bool                        `json:"blocked"`
	Path        string                      `json:"path,omitempty"`
	Eligibility *models.EligibilityDecision `json:"eligibility,omitempty"`
	Breakdown   *Breakdown                  `json:"breakdown,omitempty"`
	Partnership *partnership.Commission     `json:"partnership,omitempty"`
	Partner     *PartnerPayout              `json:"partner,omitempty"`
	Total       decimal.Decimal             `json:"total"`
}

// Handler finalizes commissions when an order completes. Redelivered events
// are no-ops once a referral reaches completed; failures leave the referral
// pending for the next delivery.
type Handler struct {
	db           *db.Client
	ledger       ledger.Repository
	orders       orders.Provider
	eligibility  eligibility.Service
	partnerships partnership.Service
	engine       Engine
	recorder     audit.Recorder
	notifier     Notifier
	metrics      *metrics.CommissionMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewHandler wires the order-completion orchestrator.
func NewHandler(
	client *db.Client,
	ledgerRepo ledger.Repository,
	provider orders.Provider,
	eligibilitySvc eligibility.Service,
	partnershipSvc partnership.Service,
	eng Engine,
	recorder audit.Recorder,
	notifier Notifier,
	commissionMetrics *metrics.CommissionMetrics,
	logg *logger.Logger,
) (*Handler, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("order provider required")
	}
	if eligibilitySvc == nil {
		return nil, fmt.Errorf("eligibility service required")
	}
	if partnershipSvc == nil {
		return nil, fmt.Errorf("partnership service required")
	}
	if eng == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Handler{
		db:           client,
		ledger:       ledgerRepo,
		orders:       provider,
		eligibility:  eligibilitySvc,
		partnerships: partnershipSvc,
		engine:       eng,
		recorder:     recorder,
		notifier:     notifier,
		metrics:      commissionMetrics,
		logg:         logg,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// HandleOrderCompleted settles every payout an order completion owes: the
// one-time referral commission (eligibility-gated), and the standing
// partner's ongoing commission when the customer has one. The referral
// commit is a check-and-set so racing deliveries cannot double-credit.
func (h *Handler) HandleOrderCompleted(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = h.logg.WithOrderID(ctx, orderID.String())

	referral, err := h.ledger.FindReferralByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load referral for order")
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	customerID := uuid.Nil
	if referral != nil {
		customerID = referral.CustomerID
	} else if order.CustomerID != nil {
		customerID = *order.CustomerID
	}

	var partner *models.Partnership
	if customerID != uuid.Nil {
		partner, err = h.partnerships.GetPartner(ctx, customerID)
		if err != nil {
			return nil, err
		}
	}

	if referral == nil {
		if partner == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no referral or partnership recorded for order")
		}
		return h.completePartnerOnly(ctx, order, customerID, partner)
	}

	result := &Result{ReferralID: referral.ID, OrderID: orderID, CoachID: referral.CoachID}
	if referral.Status == enums.ReferralStatusCompleted {
		h.metrics.IncIdempotentSkip()
		h.logg.Info(ctx, "referral already completed, skipping redelivery")
		result.Skipped = true
		result.Total = referral.TotalPayable()
		// a partner payout that failed after the referral committed is
		// retried here on the next delivery
		if partner != nil && partner.CoachID != referral.CoachID {
			if _, err := h.payPartner(ctx, order, customerID, partner, result); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	decision, err := h.eligibility.Evaluate(ctx, eligibility.EvaluateInput{
		CustomerID: &customerID,
		OrderID:    orderID,
	})
	if err != nil {
		return nil, err
	}
	result.Eligibility = decision

	// The default window rule is advisory; only an explicit admin block
	// stops the payout.
	if decision.Reason == enums.EligibilityReasonManualBlock {
		return h.blockReferral(ctx, referral, result)
	}

	if err := h.applyPayout(ctx, order, referral, partner, result); err != nil {
		return nil, err
	}

	now := h.now()
	referral.ConversionDate = &now
	total := referral.TotalPayable()

	err = h.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := h.ledger.WithTx(tx)
		if err := repo.CompleteReferral(ctx, referral); err != nil {
			return err
		}
		return repo.AddToBalance(ctx, referral.CoachID, total)
	})
	if err != nil {
		if errors.Is(err, ledger.ErrReferralAlreadyCompleted) || db.IsUniqueViolation(err, "") {
			h.metrics.IncIdempotentSkip()
			h.logg.Info(ctx, "lost completion race, treating as redelivery")
			return h.raceSkip(ctx, referral, result)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "commit commission")
	}

	result.Total = total

	// A different coach holding the standing partnership is paid in
	// parallel, from its own ledger record.
	if partner != nil && partner.CoachID != referral.CoachID {
		if _, err := h.payPartner(ctx, order, customerID, partner, result); err != nil {
			return nil, err
		}
	}

	h.metrics.IncComputed("completed")
	h.metrics.ObserveTotal(total.InexactFloat64())
	h.recorder.Record(ctx, audit.RecordInput{
		EventType: "commission.completed",
		Category:  enums.AuditCategoryCommission,
		Data:      result,
	})
	h.notifier.CommissionCompleted(ctx, referral.CoachID, result)
	h.logg.Info(ctx, fmt.Sprintf("commission completed via %s path: %s %s", result.Path, total, referral.Currency))
	return result, nil
}

// raceSkip turns a lost finalize race into the same no-op a redelivery gets.
// The authoritative total comes from whichever record won.
func (h *Handler) raceSkip(ctx context.Context, referral *models.ReferralRecord, result *Result) (*Result, error) {
	result.Skipped = true
	result.Path = ""
	result.Breakdown = nil
	result.Partnership = nil
	result.Total = decimal.Zero
	stored, err := h.ledger.GetReferralByID(ctx, referral.ID)
	if err == nil && stored != nil && stored.Status == enums.ReferralStatusCompleted {
		result.Total = stored.TotalPayable()
	}
	return result, nil
}

// completePartnerOnly handles completed orders with no referral attached:
// the customer's standing partner still earns the ongoing commission.
func (h *Handler) completePartnerOnly(ctx context.Context, order *models.OrderSnapshot, customerID uuid.UUID, partner *models.Partnership) (*Result, error) {
	result := &Result{OrderID: order.ID, CoachID: partner.CoachID, Path: PathPartnership}
	created, err := h.payPartner(ctx, order, customerID, partner, result)
	if err != nil {
		return nil, err
	}
	if result.Partner != nil {
		result.Total = result.Partner.Total
	}
	if !created {
		h.metrics.IncIdempotentSkip()
		h.logg.Info(ctx, "partner already paid for order, skipping redelivery")
		result.Skipped = true
		return result, nil
	}
	h.metrics.IncComputed("completed")
	h.metrics.ObserveTotal(result.Total.InexactFloat64())
	h.notifier.CommissionCompleted(ctx, partner.CoachID, result)
	h.logg.Info(ctx, fmt.Sprintf("ongoing partner commission paid: %s %s", result.Total, order.Currency))
	return result, nil
}

// payPartner settles the standing partner's ongoing commission for one order
// in its own completed ledger record. Redelivery finds the stored record and
// pays nothing; a racing delivery trips the completed unique index and is
// dropped the same way.
func (h *Handler) payPartner(ctx context.Context, order *models.OrderSnapshot, customerID uuid.UUID, partner *models.Partnership, result *Result) (bool, error) {
	existing, err := h.ledger.ListReferralsByOrderCoach(ctx, order.ID, partner.CoachID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load partner records for order")
	}
	for i := range existing {
		if existing[i].Status == enums.ReferralStatusCompleted {
			result.Partner = &PartnerPayout{
				RecordID: existing[i].ID,
				CoachID:  partner.CoachID,
				Total:    existing[i].TotalPayable(),
			}
			return false, nil
		}
	}

	commission, err := h.partnerships.ComputeCommission(ctx, partner.CoachID, order.NetTotal())
	if err != nil {
		return false, err
	}
	now := h.now()
	record := &models.ReferralRecord{
		ID:               uuid.New(),
		CoachID:          partner.CoachID,
		CustomerID:       customerID,
		ReferrerType:     enums.ReferrerTypeCoach,
		OrderID:          order.ID,
		PurchaseCount:    1,
		CommissionAmount: commission.Base,
		LoyaltyBonus:     decimal.Zero.Round(2),
		RetentionBonus:   commission.TierBonus,
		Status:           enums.ReferralStatusCompleted,
		Currency:         order.Currency,
		ConversionDate:   &now,
	}
	err = h.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := h.ledger.WithTx(tx)
		if err := repo.CreateReferral(ctx, record); err != nil {
			return err
		}
		return repo.AddToBalance(ctx, partner.CoachID, record.TotalPayable())
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			h.metrics.IncIdempotentSkip()
			h.logg.Info(ctx, "partner payout raced a concurrent delivery, skipping")
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "commit partner commission")
	}
	result.Partner = &PartnerPayout{
		RecordID:   record.ID,
		CoachID:    partner.CoachID,
		Commission: &commission,
		Total:      record.TotalPayable(),
	}
	h.recorder.Record(ctx, audit.RecordInput{
		EventType: "commission.partner_paid",
		Category:  enums.AuditCategoryCommission,
		Data:      result.Partner,
	})
	return true, nil
}

// applyPayout decides between the standing-partnership payout and the
// one-time referral payout. When the partner coach is also the referral
// coach, only the partnership amount is paid; the choice is recorded on the
// result rather than silently overwriting one with the other.
func (h *Handler) applyPayout(ctx context.Context, order *models.OrderSnapshot, referral *models.ReferralRecord, partner *models.Partnership, result *Result) error {
	if partner != nil && partner.CoachID == referral.CoachID {
		commission, err := h.partnerships.ComputeCommission(ctx, referral.CoachID, order.NetTotal())
		if err != nil {
			return err
		}
		referral.CommissionAmount = commission.Base
		referral.LoyaltyBonus = decimal.Zero.Round(2)
		referral.RetentionBonus = commission.TierBonus
		result.Path = PathPartnership
		result.Partnership = &commission
		return nil
	}

	breakdown, err := h.engine.Compute(ctx, order, referral.CoachID, referral.CustomerID, referral.PurchaseCount)
	if err != nil {
		return err
	}
	referral.CommissionAmount = breakdown.Base
	referral.LoyaltyBonus = breakdown.Loyalty
	referral.RetentionBonus = breakdown.Extras()
	result.Path = PathReferral
	result.Breakdown = &breakdown
	return nil
}

func (h *Handler) blockReferral(ctx context.Context, referral *models.ReferralRecord, result *Result) (*Result, error) {
	referral.Status = enums.ReferralStatusFailed
	if err := h.ledger.SaveReferral(ctx, referral); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark referral blocked")
	}
	result.Blocked = true
	result.Total = decimal.Zero
	h.metrics.IncComputed("blocked")
	h.recorder.Record(ctx, audit.RecordInput{
		EventType: "commission.blocked",
		Category:  enums.AuditCategoryCommission,
		Data:      result,
	})
	h.logg.Warn(ctx, "commission blocked by manual override")
	return result, nil
}
