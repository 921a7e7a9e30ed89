package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/pkg/money"
)

var (
	// ErrAggregateLocked means the pair already has transactions, so the
	// row is owned by the recompute and cannot be edited by hand.
	ErrAggregateLocked = errors.New("aggregate has transactions and cannot be edited manually")
)

// SummaryService owns the per-(plan, user) profit/loss aggregates: the
// post-commit recompute, view-time seeding, and the manual override path
// for pairs that have no transactions yet.
type SummaryService struct {
	planStore PlanStore
	txStore   TransactionStore
	aggStore  AggregateStore
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(planStore PlanStore, txStore TransactionStore, aggStore AggregateStore) *SummaryService {
	return &SummaryService{
		planStore: planStore,
		txStore:   txStore,
		aggStore:  aggStore,
	}
}

// Recompute rebuilds the aggregate for one (plan, user) pair from the
// full current ledger, not from the previous aggregate value. Every
// firing re-derives the sum, so concurrent firings for the same pair
// converge regardless of order. Implements Aggregator.
func (s *SummaryService) Recompute(planID, userID, updatedBy uint) error {
	net, err := s.txStore.SumNetForPair(planID, userID)
	if err != nil {
		return fmt.Errorf("sum net position: %w", err)
	}
	net = money.Quantize(net)

	agg := &models.Aggregate{
		TradePlanID: planID,
		CreatedByID: userID,
		UpdatedByID: updatedBy,
	}
	if net.Sign() >= 0 {
		label := models.PnLProfit
		agg.Label = &label
		agg.ProfitAmount = money.Ptr(net)
	} else {
		label := models.PnLLoss
		agg.Label = &label
		agg.LossAmount = money.Ptr(net.Neg())
	}

	if err := s.aggStore.UpsertDerived(agg); err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

// GetSummary returns the user's aggregates for every plan in the window,
// ordered by stock symbol. Plans the user has no row for yet are seeded
// empty first; seeding never overwrites and never triggers a recompute.
func (s *SummaryService) GetSummary(userID uint, window DateRange) ([]models.Aggregate, error) {
	plans, err := s.planStore.ListByDateRange(window.Start, window.End, "")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	planIDs := make([]uint, 0, len(plans))
	for _, p := range plans {
		planIDs = append(planIDs, p.ID)
	}

	if err := s.aggStore.SeedMissing(planIDs, userID); err != nil {
		return nil, fmt.Errorf("seed aggregates: %w", err)
	}

	return s.aggStore.ListByPlanIDs(planIDs, userID)
}

// OverrideRequest is a manual edit of an aggregate row
type OverrideRequest struct {
	Label        *models.PnLLabel
	ProfitAmount *decimal.Decimal
	LossAmount   *decimal.Decimal
}

func (r *OverrideRequest) validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.Label != nil && !r.Label.Valid() {
		errs["label"] = "must be Profit or Loss"
		return errs
	}
	switch {
	case r.Label == nil:
		// Clearing the label clears both amounts; nothing to check.
	case *r.Label == models.PnLProfit:
		if r.ProfitAmount == nil {
			errs["profit_amount"] = "required when label is Profit"
		} else if r.ProfitAmount.IsNegative() {
			errs["profit_amount"] = "must not be negative"
		}
	case *r.Label == models.PnLLoss:
		if r.LossAmount == nil {
			errs["loss_amount"] = "required when label is Loss"
		} else if r.LossAmount.IsNegative() {
			errs["loss_amount"] = "must not be negative"
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Override manually edits an aggregate the user owns. Permitted only
// while the pair has no transactions; once any exist the recompute owns
// the row. The next recompute supersedes any override regardless.
func (s *SummaryService) Override(userID, aggregateID uint, req *OverrideRequest) (*models.Aggregate, error) {
	if errs := req.validate(); errs != nil {
		return nil, errs
	}

	agg, err := s.aggStore.GetByIDAndOwner(aggregateID, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.txStore.CountForPair(agg.TradePlanID, userID)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	if count > 0 {
		return nil, ErrAggregateLocked
	}

	agg.Label = req.Label
	agg.ProfitAmount = nil
	agg.LossAmount = nil
	if req.Label != nil {
		switch *req.Label {
		case models.PnLProfit:
			agg.ProfitAmount = money.QuantizeOptional(req.ProfitAmount)
		case models.PnLLoss:
			agg.LossAmount = money.QuantizeOptional(req.LossAmount)
		}
	}
	agg.UpdatedByID = userID

	if err := s.aggStore.Save(agg); err != nil {
		return nil, fmt.Errorf("save override: %w", err)
	}
	return agg, nil
}
