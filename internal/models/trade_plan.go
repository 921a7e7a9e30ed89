package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradePlan represents one imported trade opportunity. Rows are immutable
// after import except for the news catalyst summary.
type TradePlan struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	StockSymbol     string          `gorm:"size:100;not null;index" json:"stock_symbol"`
	StrikeExpiry    string          `gorm:"size:100" json:"strike_expiry"`
	EntryPrice      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"entry_price"`
	TargetPrice     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"target_price"`
	StopLossPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"stop_loss_price"`
	SupportLevel    string          `gorm:"size:100" json:"support_level"`
	ResistanceLevel string          `gorm:"size:100" json:"resistance_level"`
	CapitalRequired decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"capital_required"`
	MaxLoss         decimal.Decimal `gorm:"type:numeric(10,2)" json:"max_loss"`
	MaxProfit       decimal.Decimal `gorm:"type:numeric(10,2)" json:"max_profit"`
	CatalystSummary string          `gorm:"type:text" json:"catalyst_summary"`
	// Fingerprint is a digest over every field except the catalyst
	// summary; it carries the composite uniqueness constraint since a
	// nine-column unique index is unwieldy.
	Fingerprint string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	CreatedAt   time.Time `gorm:"type:date;index" json:"created_at"`
}

// TableName specifies the table name for TradePlan model
func (TradePlan) TableName() string {
	return "trade_plans"
}

// BeforeSave derives the uniqueness fingerprint
func (p *TradePlan) BeforeSave(tx *gorm.DB) error {
	p.Fingerprint = p.fingerprint()
	return nil
}

func (p *TradePlan) fingerprint() string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		p.StockSymbol,
		p.StrikeExpiry,
		p.EntryPrice.StringFixed(2),
		p.TargetPrice.StringFixed(2),
		p.StopLossPrice.StringFixed(2),
		p.SupportLevel,
		p.ResistanceLevel,
		p.CapitalRequired.StringFixed(2),
	}, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// RiskPerShare is entry price minus stop-loss price. Derived, not stored.
func (p *TradePlan) RiskPerShare() decimal.Decimal {
	return p.EntryPrice.Sub(p.StopLossPrice)
}

// Quantity is the whole number of shares the allocated capital buys at
// the entry price. Zero when the entry price is not positive.
func (p *TradePlan) Quantity() int64 {
	if !p.EntryPrice.IsPositive() {
		return 0
	}
	return p.CapitalRequired.Div(p.EntryPrice).IntPart()
}
