package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLLabel classifies a transaction or an aggregate as profitable or not
type PnLLabel string

const (
	PnLProfit PnLLabel = "Profit"
	PnLLoss   PnLLabel = "Loss"
)

// Valid reports whether the label is one of the two known values
func (l PnLLabel) Valid() bool {
	return l == PnLProfit || l == PnLLoss
}

// Transaction represents one buy/sell execution recorded against a plan.
// Rows are unique per (plan, buy, sell, quantity, creator); writing the
// same natural key again updates the existing row instead of inserting.
type Transaction struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	TradePlanID       uint             `gorm:"not null;index;uniqueIndex:uniq_tx_natural_key" json:"trade_plan_id"`
	BuyPrice          decimal.Decimal  `gorm:"type:numeric(10,2);not null;uniqueIndex:uniq_tx_natural_key" json:"buy_price"`
	SellPrice         decimal.Decimal  `gorm:"type:numeric(10,2);not null;uniqueIndex:uniq_tx_natural_key" json:"sell_price"`
	Quantity          int              `gorm:"not null;check:quantity > 0;uniqueIndex:uniq_tx_natural_key" json:"quantity"`
	PredictionMatched bool             `gorm:"default:false" json:"prediction_matched"`
	Label             PnLLabel         `gorm:"size:10;not null" json:"label"`
	ProfitAmount      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"profit_amount"`
	LossAmount        *decimal.Decimal `gorm:"type:numeric(12,2)" json:"loss_amount"`
	CreatedByID       uint             `gorm:"not null;index;uniqueIndex:uniq_tx_natural_key" json:"created_by_id"`
	UpdatedByID       uint             `gorm:"not null" json:"updated_by_id"`
	CreatedAt         time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`

	// Relations
	TradePlan TradePlan `gorm:"foreignKey:TradePlanID" json:"trade_plan,omitempty"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
