package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-desk-admin/internal/models"
)

// fakePlanCreator dedupes on the same fields the fingerprint covers
type fakePlanCreator struct {
	created []*models.TradePlan
	seen    map[string]bool
	failOn  string
}

func newFakePlanCreator() *fakePlanCreator {
	return &fakePlanCreator{seen: map[string]bool{}}
}

func (f *fakePlanCreator) CreateIgnoreDuplicate(plan *models.TradePlan) (bool, error) {
	if f.failOn != "" && plan.StockSymbol == f.failOn {
		return false, assert.AnError
	}
	key := plan.StockSymbol + "|" + plan.StrikeExpiry + "|" + plan.EntryPrice.String()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.created = append(f.created, plan)
	return true, nil
}

const csvHeader = "Stock Name,Option Strike Price & Expiry,Option Buy Price,Intraday Exit Price Target,Stop Loss Price,Support Level,Resistance Level,Capital Required,Max Loss If Stop Loss Hits,Max Profit If Target Hits,News Catalyst Summary\n"

func TestImportCSVCleansCurrencyCells(t *testing.T) {
	creator := newFakePlanCreator()
	im := NewImporter(creator)

	csv := csvHeader +
		"RELIANCE,2500 CE 28-AUG,\"₹1,234.50\",\"₹1,300.00\",\"₹1,200.00\",1210,1320,\"₹1,23,450\",₹3450,₹6550,Refinery margin beat\n"

	report, err := im.ImportCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Empty(t, report.Errors)

	require.Len(t, creator.created, 1)
	plan := creator.created[0]
	assert.Equal(t, "RELIANCE", plan.StockSymbol)
	assert.Equal(t, "1234.5", plan.EntryPrice.String())
	assert.Equal(t, "123450", plan.CapitalRequired.String())
	assert.Equal(t, "Refinery margin beat", plan.CatalystSummary)
}

func TestImportCSVRowErrorsDoNotAbortBatch(t *testing.T) {
	creator := newFakePlanCreator()
	im := NewImporter(creator)

	csv := csvHeader +
		"GOOD,100 CE,10.00,12.00,9.00,9.5,12.5,1000,100,200,ok\n" +
		",100 CE,10.00,12.00,9.00,9.5,12.5,1000,100,200,missing symbol\n" +
		"BADPRICE,100 CE,notanumber,12.00,9.00,9.5,12.5,1000,100,200,bad entry\n" +
		"ALSOGOOD,200 CE,20.00,22.00,19.00,19.5,22.5,2000,100,200,ok too\n"

	report, err := im.ImportCSV(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 3, report.Errors[0].Row)
	assert.Equal(t, 4, report.Errors[1].Row)
	assert.NotEqual(t, report.BatchID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestImportCSVCountsDuplicates(t *testing.T) {
	creator := newFakePlanCreator()
	im := NewImporter(creator)

	row := "TCS,3500 CE,35.00,40.00,32.00,33,41,3500,300,500,order win\n"
	report, err := im.ImportCSV(strings.NewReader(csvHeader + row + row))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Duplicates)
	assert.Empty(t, report.Errors)
}

func TestImportCSVStoreErrorIsRowScoped(t *testing.T) {
	creator := newFakePlanCreator()
	creator.failOn = "BROKEN"
	im := NewImporter(creator)

	csv := csvHeader +
		"BROKEN,100 CE,10.00,12.00,9.00,9.5,12.5,1000,100,200,x\n" +
		"FINE,200 CE,20.00,22.00,19.00,19.5,22.5,2000,100,200,y\n"

	report, err := im.ImportCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Row)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"₹1,234.567", "1234.57", true},
		{"$99.995", "100", true},
		{" 42 ", "42", true},
		{"", "", false},
		{"n/a", "", false},
	}

	for _, tc := range cases {
		got := parseAmount(tc.in)
		if !tc.ok {
			assert.Nil(t, got, "parseAmount(%q)", tc.in)
			continue
		}
		require.NotNil(t, got, "parseAmount(%q)", tc.in)
		assert.Equal(t, tc.want, got.String(), "parseAmount(%q)", tc.in)
	}
}
