package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate holds the net profit/loss position for one (plan, user) pair.
// A nil label with both amounts nil means "no position yet". Once any
// transaction exists for the pair, the aggregation recompute is the only
// legitimate writer of the derived fields.
//
// The label/amount pairing is enforced by a storage-level CHECK so a
// partial write can never leave a row half-classified.
type Aggregate struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	TradePlanID  uint             `gorm:"not null;uniqueIndex:uniq_aggregate_pair" json:"trade_plan_id"`
	CreatedByID  uint             `gorm:"not null;index;uniqueIndex:uniq_aggregate_pair" json:"created_by_id"`
	Label        *PnLLabel        `gorm:"size:10;check:chk_aggregate_amounts,(label = 'Profit' AND profit_amount IS NOT NULL AND loss_amount IS NULL) OR (label = 'Loss' AND loss_amount IS NOT NULL AND profit_amount IS NULL) OR (label IS NULL AND profit_amount IS NULL AND loss_amount IS NULL)" json:"label"`
	ProfitAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"profit_amount"`
	LossAmount   *decimal.Decimal `gorm:"type:numeric(12,2)" json:"loss_amount"`
	UpdatedByID  uint             `gorm:"not null" json:"updated_by_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	// Relations
	TradePlan TradePlan `gorm:"foreignKey:TradePlanID" json:"trade_plan,omitempty"`
}

// TableName specifies the table name for Aggregate model
func (Aggregate) TableName() string {
	return "aggregates"
}

// Consistent reports whether the label/amount pairing invariant holds.
// Mirrors the storage CHECK for use on the manual-override path before
// a write is attempted.
func (a *Aggregate) Consistent() bool {
	switch {
	case a.Label == nil:
		return a.ProfitAmount == nil && a.LossAmount == nil
	case *a.Label == PnLProfit:
		return a.ProfitAmount != nil && a.LossAmount == nil
	case *a.Label == PnLLoss:
		return a.LossAmount != nil && a.ProfitAmount == nil
	default:
		return false
	}
}
