package repository

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trade-desk-admin/internal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// transactionConflictColumns is the natural key of the ledger: the same
// user re-submitting identical execution data must update, not duplicate.
var transactionConflictColumns = []clause.Column{
	{Name: "trade_plan_id"},
	{Name: "buy_price"},
	{Name: "sell_price"},
	{Name: "quantity"},
	{Name: "created_by_id"},
}

// TransactionRepository handles transaction ledger data access
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert writes a transaction keyed by its natural key. On conflict the
// classification fields are overwritten in place and the update timestamp
// advances. The statement is atomic, so when Upsert returns without error
// the row is durably committed. Returns whether a new row was inserted.
func (r *TransactionRepository) Upsert(txn *models.Transaction) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns: transactionConflictColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"prediction_matched": txn.PredictionMatched,
			"label":              txn.Label,
			"profit_amount":      txn.ProfitAmount,
			"loss_amount":        txn.LossAmount,
			"updated_by_id":      txn.UpdatedByID,
			"updated_at":         time.Now(),
		}),
	}, clause.Returning{}).Create(txn)
	if result.Error != nil {
		return false, result.Error
	}
	// With RETURNING, an in-place update still reports one affected row;
	// a fresh insert is recognised by the created/updated stamps matching.
	created := txn.CreatedAt.Equal(txn.UpdatedAt)
	return created, nil
}

// Save persists changes to an existing transaction row
func (r *TransactionRepository) Save(txn *models.Transaction) error {
	return r.db.Save(txn).Error
}

// GetByIDAndCreator retrieves a transaction owned by the given user
func (r *TransactionRepository) GetByIDAndCreator(id, userID uint) (*models.Transaction, error) {
	var txn models.Transaction
	result := r.db.Where("id = ? AND created_by_id = ?", id, userID).First(&txn)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, result.Error
	}
	return &txn, nil
}

// ListByCreatorPaginated retrieves the user's transactions created inside
// [start, end), newest first
func (r *TransactionRepository) ListByCreatorPaginated(userID uint, start, end time.Time, page, pageSize int) ([]models.Transaction, int64, error) {
	var txns []models.Transaction
	var total int64

	q := r.db.Model(&models.Transaction{}).
		Where("created_by_id = ? AND created_at >= ? AND created_at < ?", userID, start, end)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Preload("TradePlan").
		Where("created_by_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&txns)

	return txns, total, result.Error
}

// SumNetForPair computes the net position for one (plan, user) pair as
// SUM((sell_price - buy_price) * quantity) over all committed rows. The
// arithmetic happens in numeric SQL, never in floating point.
func (r *TransactionRepository) SumNetForPair(planID, userID uint) (decimal.Decimal, error) {
	var row struct {
		Net decimal.Decimal
	}
	err := r.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM((sell_price - buy_price) * quantity), 0) AS net").
		Where("trade_plan_id = ? AND created_by_id = ?", planID, userID).
		Scan(&row).Error
	return row.Net, err
}

// CountForPair counts transactions for one (plan, user) pair
func (r *TransactionRepository) CountForPair(planID, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("trade_plan_id = ? AND created_by_id = ?", planID, userID).
		Count(&count).Error
	return count, err
}
