package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/pkg/money"
)

// PlanCreator is the storage surface the importer writes through
type PlanCreator interface {
	CreateIgnoreDuplicate(plan *models.TradePlan) (bool, error)
}

// planRow mirrors one spreadsheet row. Numeric cells arrive as text and
// may carry currency symbols and thousands separators.
type planRow struct {
	StockSymbol     string `csv:"Stock Name"`
	StrikeExpiry    string `csv:"Option Strike Price & Expiry"`
	EntryPrice      string `csv:"Option Buy Price"`
	TargetPrice     string `csv:"Intraday Exit Price Target"`
	StopLossPrice   string `csv:"Stop Loss Price"`
	SupportLevel    string `csv:"Support Level"`
	ResistanceLevel string `csv:"Resistance Level"`
	CapitalRequired string `csv:"Capital Required"`
	MaxLoss         string `csv:"Max Loss If Stop Loss Hits"`
	MaxProfit       string `csv:"Max Profit If Target Hits"`
	CatalystSummary string `csv:"News Catalyst Summary"`
}

// RowError is one malformed spreadsheet row. It is reported but does not
// abort the batch; earlier rows stay committed.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Report summarises one import batch
type Report struct {
	BatchID    uuid.UUID  `json:"batch_id"`
	Created    int        `json:"created"`
	Duplicates int        `json:"duplicates"`
	Errors     []RowError `json:"errors"`
}

// Importer ingests spreadsheet-sourced trade plans
type Importer struct {
	plans PlanCreator
}

// NewImporter creates a new Importer
func NewImporter(plans PlanCreator) *Importer {
	return &Importer{plans: plans}
}

// ImportCSV reads plan rows from r and creates one TradePlan per row.
// The batch is not atomic: a bad row is collected into the report and
// the remaining rows are still processed.
func (im *Importer) ImportCSV(r io.Reader) (*Report, error) {
	var rows []planRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	report := &Report{BatchID: uuid.New()}
	for i, row := range rows {
		// Spreadsheet row number: 1-based plus header line.
		rowNum := i + 2

		plan, err := row.toPlan()
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}

		created, err := im.plans.CreateIgnoreDuplicate(plan)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		if created {
			report.Created++
		} else {
			report.Duplicates++
		}
	}
	return report, nil
}

func (r *planRow) toPlan() (*models.TradePlan, error) {
	symbol := strings.TrimSpace(r.StockSymbol)
	if symbol == "" {
		return nil, fmt.Errorf("stock name is empty")
	}

	entry := parseAmount(r.EntryPrice)
	if entry == nil {
		return nil, fmt.Errorf("option buy price %q is not numeric", r.EntryPrice)
	}
	capital := parseAmount(r.CapitalRequired)
	if capital == nil {
		return nil, fmt.Errorf("capital required %q is not numeric", r.CapitalRequired)
	}

	return &models.TradePlan{
		StockSymbol:     symbol,
		StrikeExpiry:    strings.TrimSpace(r.StrikeExpiry),
		EntryPrice:      *entry,
		TargetPrice:     money.QuantizeOrZero(parseAmount(r.TargetPrice)),
		StopLossPrice:   money.QuantizeOrZero(parseAmount(r.StopLossPrice)),
		SupportLevel:    strings.TrimSpace(r.SupportLevel),
		ResistanceLevel: strings.TrimSpace(r.ResistanceLevel),
		CapitalRequired: *capital,
		MaxLoss:         money.QuantizeOrZero(parseAmount(r.MaxLoss)),
		MaxProfit:       money.QuantizeOrZero(parseAmount(r.MaxProfit)),
		CatalystSummary: strings.TrimSpace(r.CatalystSummary),
	}, nil
}

// parseAmount strips currency symbols, thousands separators, and
// whitespace, then parses a fixed-point amount. Returns nil when the
// cell cannot be coerced to a number.
func parseAmount(s string) *decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '₹', '$', '€', '£', ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	if cleaned == "" {
		return nil
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	q := money.Quantize(d)
	return &q
}
