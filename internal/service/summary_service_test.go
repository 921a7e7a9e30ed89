package service_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/internal/service"
	"github.com/trade-desk-admin/pkg/money"
)

func newSummaryFixture(plans ...models.TradePlan) (*service.SummaryService, *fakePlanStore, *fakeTxStore, *fakeAggStore) {
	planStore := newFakePlanStore(plans...)
	txStore := newFakeTxStore()
	aggStore := newFakeAggStore()
	return service.NewSummaryService(planStore, txStore, aggStore), planStore, txStore, aggStore
}

func record(t *testing.T, ledger *service.LedgerService, userID uint, planID uint, buy, sell string, qty int) {
	t.Helper()
	_, _, err := ledger.Record(userID, &service.RecordRequest{
		TradePlanID: planID,
		BuyPrice:    dec(t, buy),
		SellPrice:   dec(t, sell),
		Quantity:    qty,
		Window:      service.Today(),
	})
	require.NoError(t, err)
}

func TestRecomputeNetsAllTransactions(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "RELIANCE"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	// +10.00 then -2.50 nets to +7.50 for the pair.
	record(t, ledger, 7, 1, "10.00", "12.00", 5)
	record(t, ledger, 7, 1, "10.00", "9.50", 5)

	agg := aggStore.get(1, 7)
	require.NotNil(t, agg)
	require.NotNil(t, agg.Label)
	assert.Equal(t, models.PnLProfit, *agg.Label)
	require.NotNil(t, agg.ProfitAmount)
	assert.True(t, agg.ProfitAmount.Equal(dec(t, "7.50")), "net = %s", agg.ProfitAmount)
	assert.Nil(t, agg.LossAmount)
	assert.True(t, agg.Consistent())
}

func TestRecomputeNetLoss(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "TCS"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	record(t, ledger, 7, 1, "10.00", "9.50", 5)
	record(t, ledger, 7, 1, "10.00", "9.00", 2)

	agg := aggStore.get(1, 7)
	require.NotNil(t, agg)
	require.NotNil(t, agg.Label)
	assert.Equal(t, models.PnLLoss, *agg.Label)
	require.NotNil(t, agg.LossAmount)
	assert.True(t, agg.LossAmount.Equal(dec(t, "4.50")))
	assert.Nil(t, agg.ProfitAmount)
}

func TestRecomputeZeroNetIsProfit(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "INFY"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	record(t, ledger, 7, 1, "10.00", "11.00", 5)
	record(t, ledger, 7, 1, "11.00", "10.00", 5)

	agg := aggStore.get(1, 7)
	require.NotNil(t, agg)
	require.NotNil(t, agg.Label)
	assert.Equal(t, models.PnLProfit, *agg.Label)
	require.NotNil(t, agg.ProfitAmount)
	assert.True(t, agg.ProfitAmount.IsZero())
}

func TestRecomputeIsolatesPairs(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "SBIN"), todayPlan(2, "HDFC"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	record(t, ledger, 7, 1, "10.00", "12.00", 1)
	record(t, ledger, 8, 1, "10.00", "9.00", 1)
	record(t, ledger, 7, 2, "20.00", "19.00", 1)

	profit := aggStore.get(1, 7)
	require.NotNil(t, profit)
	assert.Equal(t, models.PnLProfit, *profit.Label)

	loss := aggStore.get(1, 8)
	require.NotNil(t, loss)
	assert.Equal(t, models.PnLLoss, *loss.Label)

	other := aggStore.get(2, 7)
	require.NotNil(t, other)
	assert.Equal(t, models.PnLLoss, *other.Label)
}

// Convergence: any interleaving of concurrent writes for one pair must
// end at the value a single-threaded recompute over all rows produces.
func TestRecomputeConvergesUnderConcurrentWrites(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "NIFTY"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	const writers = 20
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct sell prices so every write is a distinct row.
			sell := fmt.Sprintf("%d.25", 8+i%5)
			_, _, err := ledger.Record(7, &service.RecordRequest{
				TradePlanID: 1,
				BuyPrice:    dec(t, "10.00"),
				SellPrice:   dec(t, sell),
				Quantity:    1 + i,
				Window:      service.Today(),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	net, err := txStore.SumNetForPair(1, 7)
	require.NoError(t, err)
	net = money.Quantize(net)

	agg := aggStore.get(1, 7)
	require.NotNil(t, agg)
	require.NotNil(t, agg.Label)
	if net.Sign() >= 0 {
		assert.Equal(t, models.PnLProfit, *agg.Label)
		require.NotNil(t, agg.ProfitAmount)
		assert.True(t, agg.ProfitAmount.Equal(net), "aggregate %s != recomputed %s", agg.ProfitAmount, net)
	} else {
		assert.Equal(t, models.PnLLoss, *agg.Label)
		require.NotNil(t, agg.LossAmount)
		assert.True(t, agg.LossAmount.Equal(net.Neg()))
	}
	assert.True(t, agg.Consistent())
}

func TestGetSummarySeedsEmptyRows(t *testing.T) {
	summary, _, _, aggStore := newSummaryFixture(todayPlan(1, "B-PLAN"), todayPlan(2, "A-PLAN"))

	aggs, err := summary.GetSummary(7, service.Today())
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	for _, agg := range aggs {
		assert.Nil(t, agg.Label)
		assert.Nil(t, agg.ProfitAmount)
		assert.Nil(t, agg.LossAmount)
		assert.True(t, agg.Consistent())
	}

	// A second view must reuse the seeded rows, not recreate them.
	again, err := summary.GetSummary(7, service.Today())
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, aggs[0].ID, again[0].ID)

	assert.NotNil(t, aggStore.get(1, 7))
	assert.NotNil(t, aggStore.get(2, 7))
}

func TestSeededRowUntouchedUntilFirstTransaction(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "IDLE"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	_, err := summary.GetSummary(7, service.Today())
	require.NoError(t, err)

	seeded := aggStore.get(1, 7)
	require.NotNil(t, seeded)
	assert.Nil(t, seeded.Label)

	record(t, ledger, 7, 1, "10.00", "12.00", 5)

	derived := aggStore.get(1, 7)
	require.NotNil(t, derived)
	require.NotNil(t, derived.Label)
	assert.Equal(t, models.PnLProfit, *derived.Label)
}

func TestOverrideOnlyWithoutTransactions(t *testing.T) {
	summary, planStore, txStore, aggStore := newSummaryFixture(todayPlan(1, "MANUAL"))
	ledger := service.NewLedgerService(planStore, txStore, summary)

	_, err := summary.GetSummary(7, service.Today())
	require.NoError(t, err)
	seeded := aggStore.get(1, 7)
	require.NotNil(t, seeded)

	label := models.PnLProfit
	amount := dec(t, "5.555")
	agg, err := summary.Override(7, seeded.ID, &service.OverrideRequest{
		Label:        &label,
		ProfitAmount: &amount,
	})
	require.NoError(t, err)
	require.NotNil(t, agg.ProfitAmount)
	assert.True(t, agg.ProfitAmount.Equal(dec(t, "5.56")), "override amounts are quantized")
	assert.Nil(t, agg.LossAmount)

	// Once a transaction exists the row belongs to the recompute.
	record(t, ledger, 7, 1, "10.00", "9.00", 1)
	_, err = summary.Override(7, seeded.ID, &service.OverrideRequest{Label: &label, ProfitAmount: &amount})
	assert.ErrorIs(t, err, service.ErrAggregateLocked)

	derived := aggStore.get(1, 7)
	require.NotNil(t, derived.Label)
	assert.Equal(t, models.PnLLoss, *derived.Label, "recompute supersedes the manual override")
}

func TestOverrideValidation(t *testing.T) {
	summary, _, _, aggStore := newSummaryFixture(todayPlan(1, "VALID"))
	_, err := summary.GetSummary(7, service.Today())
	require.NoError(t, err)
	seeded := aggStore.get(1, 7)

	label := models.PnLProfit
	_, err = summary.Override(7, seeded.ID, &service.OverrideRequest{Label: &label})

	var verrs service.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "profit_amount")

	// Clearing the label clears both amounts.
	agg, err := summary.Override(7, seeded.ID, &service.OverrideRequest{})
	require.NoError(t, err)
	assert.Nil(t, agg.Label)
	assert.Nil(t, agg.ProfitAmount)
	assert.Nil(t, agg.LossAmount)
}
