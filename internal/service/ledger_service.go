package service

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/pkg/money"
)

// ValidationErrors carries per-field validation failures back to the
// request boundary. A write that fails validation mutates nothing.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed")
	for _, f := range fields {
		b.WriteString("; " + f + ": " + e[f])
	}
	return b.String()
}

// Aggregator recomputes the net position of one (plan, user) pair.
// Invoked by the ledger after each transaction write commits; a failure
// leaves the aggregate stale and is never propagated to the writer.
type Aggregator interface {
	Recompute(planID, userID, updatedBy uint) error
}

// LedgerService handles the transaction write path: validation,
// profit/loss classification, the natural-key upsert, and scheduling the
// aggregate recompute once the write is committed.
type LedgerService struct {
	planStore  PlanStore
	txStore    TransactionStore
	aggregator Aggregator
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(planStore PlanStore, txStore TransactionStore, aggregator Aggregator) *LedgerService {
	return &LedgerService{
		planStore:  planStore,
		txStore:    txStore,
		aggregator: aggregator,
	}
}

// Classify computes the profit/loss classification for one execution:
// raw = (sell - buy) * quantity, quantized once. Non-negative raw is a
// profit of raw; negative raw is a loss of |raw|. Exactly one of the two
// returned amounts is non-nil.
func Classify(buy, sell decimal.Decimal, quantity int) (models.PnLLabel, *decimal.Decimal, *decimal.Decimal) {
	raw := money.Quantize(sell.Sub(buy).Mul(decimal.NewFromInt(int64(quantity))))
	if raw.Sign() >= 0 {
		return models.PnLProfit, money.Ptr(raw), nil
	}
	return models.PnLLoss, nil, money.Ptr(raw.Neg())
}

// RecordRequest is one transaction write
type RecordRequest struct {
	TradePlanID uint
	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	Quantity    int
	// Prediction is an optional externally supplied label; the write
	// records whether the computed classification agrees with it.
	Prediction *models.PnLLabel
	// Window is the plan eligibility window, defaulting to today
	Window DateRange
}

func (r *RecordRequest) validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.Quantity <= 0 {
		errs["quantity"] = "must be a positive integer"
	}
	if r.BuyPrice.IsNegative() {
		errs["buy_price"] = "must not be negative"
	}
	if r.SellPrice.IsNegative() {
		errs["sell_price"] = "must not be negative"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Record validates and writes one transaction for the acting user. The
// write is an upsert on (plan, buy, sell, quantity, user); re-submitting
// identical data updates the existing row. Returns the stored row and
// whether it was newly created.
func (s *LedgerService) Record(userID uint, req *RecordRequest) (*models.Transaction, bool, error) {
	if errs := req.validate(); errs != nil {
		return nil, false, errs
	}

	eligible, err := s.planStore.ExistsInRange(req.TradePlanID, req.Window.Start, req.Window.End)
	if err != nil {
		return nil, false, fmt.Errorf("check plan eligibility: %w", err)
	}
	if !eligible {
		return nil, false, ValidationErrors{"trade_plan_id": "plan does not exist in the requested date range"}
	}

	label, profit, loss := Classify(req.BuyPrice, req.SellPrice, req.Quantity)

	txn := &models.Transaction{
		TradePlanID:       req.TradePlanID,
		BuyPrice:          money.Quantize(req.BuyPrice),
		SellPrice:         money.Quantize(req.SellPrice),
		Quantity:          req.Quantity,
		PredictionMatched: req.Prediction != nil && *req.Prediction == label,
		Label:             label,
		ProfitAmount:      profit,
		LossAmount:        loss,
		CreatedByID:       userID,
		UpdatedByID:       userID,
	}

	created, err := s.txStore.Upsert(txn)
	if err != nil {
		return nil, false, fmt.Errorf("write transaction: %w", err)
	}

	s.afterCommit(txn)
	return txn, created, nil
}

// EditRow is one row of a bulk edit. A nil ID records a new transaction;
// otherwise the named row's execution data is replaced and reclassified.
type EditRow struct {
	ID          *uint
	TradePlanID uint
	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	Quantity    int
	Prediction  *models.PnLLabel
}

// BulkEdit applies a batch of edits for the acting user. All rows are
// validated before any is written, including plan eligibility for new
// rows; a validation failure mutates nothing.
func (s *LedgerService) BulkEdit(userID uint, rows []EditRow, window DateRange) ([]models.Transaction, error) {
	errs := ValidationErrors{}
	eligible := map[uint]bool{}
	for i, row := range rows {
		req := RecordRequest{
			BuyPrice:  row.BuyPrice,
			SellPrice: row.SellPrice,
			Quantity:  row.Quantity,
		}
		for field, msg := range req.validate() {
			errs[fmt.Sprintf("rows[%d].%s", i, field)] = msg
		}
		if row.ID != nil {
			continue
		}
		ok, checked := eligible[row.TradePlanID]
		if !checked {
			var err error
			ok, err = s.planStore.ExistsInRange(row.TradePlanID, window.Start, window.End)
			if err != nil {
				return nil, fmt.Errorf("check plan eligibility: %w", err)
			}
			eligible[row.TradePlanID] = ok
		}
		if !ok {
			errs[fmt.Sprintf("rows[%d].trade_plan_id", i)] = "plan does not exist in the requested date range"
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	type pair struct{ planID, userID uint }
	touched := map[pair]uint{} // pair -> last modifier

	// Every row saved below has committed, so its pair must be
	// recomputed even when a later row aborts the batch.
	defer func() {
		for p, modifier := range touched {
			s.recompute(p.planID, p.userID, modifier)
		}
	}()

	saved := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		if row.ID == nil {
			txn, _, err := s.Record(userID, &RecordRequest{
				TradePlanID: row.TradePlanID,
				BuyPrice:    row.BuyPrice,
				SellPrice:   row.SellPrice,
				Quantity:    row.Quantity,
				Prediction:  row.Prediction,
				Window:      window,
			})
			if err != nil {
				return saved, fmt.Errorf("rows[%d]: %w", i, err)
			}
			saved = append(saved, *txn)
			continue
		}

		txn, err := s.txStore.GetByIDAndCreator(*row.ID, userID)
		if err != nil {
			return saved, fmt.Errorf("rows[%d]: %w", i, err)
		}

		label, profit, loss := Classify(row.BuyPrice, row.SellPrice, row.Quantity)
		txn.BuyPrice = money.Quantize(row.BuyPrice)
		txn.SellPrice = money.Quantize(row.SellPrice)
		txn.Quantity = row.Quantity
		txn.PredictionMatched = row.Prediction != nil && *row.Prediction == label
		txn.Label = label
		txn.ProfitAmount = profit
		txn.LossAmount = loss
		txn.UpdatedByID = userID

		if err := s.txStore.Save(txn); err != nil {
			return saved, fmt.Errorf("rows[%d]: %w", i, err)
		}
		touched[pair{txn.TradePlanID, txn.CreatedByID}] = userID
		saved = append(saved, *txn)
	}
	return saved, nil
}

// ListTransactions retrieves the user's transactions inside the window,
// newest first
func (s *LedgerService) ListTransactions(userID uint, window DateRange, page, pageSize int) ([]models.Transaction, int64, error) {
	start, end := window.TimestampBounds()
	return s.txStore.ListByCreatorPaginated(userID, start, end, page, pageSize)
}

// afterCommit fires the aggregation trigger for the pair the committed
// transaction belongs to. The originating write has already succeeded,
// so a recompute failure only leaves the aggregate stale until the next
// write for the pair.
func (s *LedgerService) afterCommit(txn *models.Transaction) {
	modifier := txn.UpdatedByID
	if modifier == 0 {
		modifier = txn.CreatedByID
	}
	s.recompute(txn.TradePlanID, txn.CreatedByID, modifier)
}

func (s *LedgerService) recompute(planID, userID, modifier uint) {
	if err := s.aggregator.Recompute(planID, userID, modifier); err != nil {
		log.Printf("[Ledger] aggregate recompute failed for plan=%d user=%d: %v", planID, userID, err)
	}
}
