package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trade-desk-admin/internal/models"
)

var (
	ErrAggregateNotFound = errors.New("aggregate not found")
)

// aggregateConflictColumns is the (plan, user) pair key. The unique index
// behind it is what lets two concurrent recomputes race safely: both
// resolve to the same row and the later one wins.
var aggregateConflictColumns = []clause.Column{
	{Name: "trade_plan_id"},
	{Name: "created_by_id"},
}

// AggregateRepository handles profit/loss aggregate data access
type AggregateRepository struct {
	db *gorm.DB
}

// NewAggregateRepository creates a new AggregateRepository
func NewAggregateRepository(db *gorm.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// UpsertDerived overwrites the derived fields of the (plan, user) row in
// a single atomic insert-or-update. Always a full overwrite, never a
// field merge; any manual edit is superseded.
func (r *AggregateRepository) UpsertDerived(agg *models.Aggregate) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: aggregateConflictColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"label":         agg.Label,
			"profit_amount": agg.ProfitAmount,
			"loss_amount":   agg.LossAmount,
			"updated_by_id": agg.UpdatedByID,
			"updated_at":    time.Now(),
		}),
	}).Create(agg).Error
}

// SeedMissing creates empty aggregates for every given plan the user does
// not have a row for yet. Existing rows are left untouched.
func (r *AggregateRepository) SeedMissing(planIDs []uint, userID uint) error {
	if len(planIDs) == 0 {
		return nil
	}

	seeds := make([]models.Aggregate, 0, len(planIDs))
	for _, planID := range planIDs {
		seeds = append(seeds, models.Aggregate{
			TradePlanID: planID,
			CreatedByID: userID,
			UpdatedByID: userID,
		})
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   aggregateConflictColumns,
		DoNothing: true,
	}).Create(&seeds).Error
}

// GetByIDAndOwner retrieves an aggregate owned by the given user
func (r *AggregateRepository) GetByIDAndOwner(id, userID uint) (*models.Aggregate, error) {
	var agg models.Aggregate
	result := r.db.Where("id = ? AND created_by_id = ?", id, userID).First(&agg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAggregateNotFound
		}
		return nil, result.Error
	}
	return &agg, nil
}

// ListByPlanIDs retrieves the user's aggregates for the given plans,
// ordered by the plan's stock symbol
func (r *AggregateRepository) ListByPlanIDs(planIDs []uint, userID uint) ([]models.Aggregate, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}

	var aggs []models.Aggregate
	result := r.db.Preload("TradePlan").
		Joins("JOIN trade_plans ON trade_plans.id = aggregates.trade_plan_id").
		Where("aggregates.trade_plan_id IN ? AND aggregates.created_by_id = ?", planIDs, userID).
		Order("trade_plans.stock_symbol").
		Find(&aggs)
	return aggs, result.Error
}

// Save persists a manual override of an aggregate row
func (r *AggregateRepository) Save(agg *models.Aggregate) error {
	return r.db.Save(agg).Error
}
