package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trade-desk-admin/internal/models"
)

var (
	ErrPlanNotFound = errors.New("trade plan not found")
)

// TradePlanRepository handles trade plan data access
type TradePlanRepository struct {
	db *gorm.DB
}

// NewTradePlanRepository creates a new TradePlanRepository
func NewTradePlanRepository(db *gorm.DB) *TradePlanRepository {
	return &TradePlanRepository{db: db}
}

// Create creates a new trade plan
func (r *TradePlanRepository) Create(plan *models.TradePlan) error {
	return r.db.Create(plan).Error
}

// CreateIgnoreDuplicate inserts a plan unless an identical one already
// exists (fingerprint conflict). Returns whether a row was created.
func (r *TradePlanRepository) CreateIgnoreDuplicate(plan *models.TradePlan) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(plan)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID retrieves a trade plan by ID
func (r *TradePlanRepository) GetByID(id uint) (*models.TradePlan, error) {
	var plan models.TradePlan
	result := r.db.First(&plan, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, result.Error
	}
	return &plan, nil
}

// ExistsInRange checks whether a plan exists and was created inside
// [start, end]. Used as the eligibility gate on the transaction write path.
func (r *TradePlanRepository) ExistsInRange(id uint, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.TradePlan{}).
		Where("id = ? AND created_at >= ? AND created_at <= ?", id, start, end).
		Count(&count).Error
	return count > 0, err
}

// ListByDateRange retrieves plans created inside [start, end] ordered by
// stock symbol. An optional symbol substring filter narrows the result.
func (r *TradePlanRepository) ListByDateRange(start, end time.Time, symbol string) ([]models.TradePlan, error) {
	var plans []models.TradePlan
	q := r.db.Where("created_at >= ? AND created_at <= ?", start, end)
	if symbol != "" {
		q = q.Where("stock_symbol ILIKE ?", "%"+symbol+"%")
	}
	result := q.Order("stock_symbol").Find(&plans)
	return plans, result.Error
}

// ListByDateRangePaginated retrieves plans in range with pagination
func (r *TradePlanRepository) ListByDateRangePaginated(start, end time.Time, symbol string, page, pageSize int) ([]models.TradePlan, int64, error) {
	var plans []models.TradePlan
	var total int64

	q := r.db.Model(&models.TradePlan{}).Where("created_at >= ? AND created_at <= ?", start, end)
	if symbol != "" {
		q = q.Where("stock_symbol ILIKE ?", "%"+symbol+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := q.Order("stock_symbol").
		Offset(offset).
		Limit(pageSize).
		Find(&plans)

	return plans, total, result.Error
}

// UpdateCatalyst updates the news catalyst summary, the only mutable
// field on a plan
func (r *TradePlanRepository) UpdateCatalyst(id uint, summary string) error {
	result := r.db.Model(&models.TradePlan{}).
		Where("id = ?", id).
		Update("catalyst_summary", summary)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}
	return nil
}
