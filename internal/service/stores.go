package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/models"
)

// Store interfaces cover exactly the repository surface the services
// consume. The repositories in internal/repository satisfy them; tests
// substitute in-memory implementations.

// PlanStore is the trade plan surface consumed by the services
type PlanStore interface {
	ExistsInRange(id uint, start, end time.Time) (bool, error)
	ListByDateRange(start, end time.Time, symbol string) ([]models.TradePlan, error)
}

// TransactionStore is the ledger surface consumed by the services
type TransactionStore interface {
	Upsert(txn *models.Transaction) (bool, error)
	Save(txn *models.Transaction) error
	GetByIDAndCreator(id, userID uint) (*models.Transaction, error)
	ListByCreatorPaginated(userID uint, start, end time.Time, page, pageSize int) ([]models.Transaction, int64, error)
	SumNetForPair(planID, userID uint) (decimal.Decimal, error)
	CountForPair(planID, userID uint) (int64, error)
}

// AggregateStore is the aggregate surface consumed by the services
type AggregateStore interface {
	UpsertDerived(agg *models.Aggregate) error
	SeedMissing(planIDs []uint, userID uint) error
	GetByIDAndOwner(id, userID uint) (*models.Aggregate, error)
	ListByPlanIDs(planIDs []uint, userID uint) ([]models.Aggregate, error)
	Save(agg *models.Aggregate) error
}

// DateRange is a closed, day-granular eligibility window
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Today returns the default eligibility window: plans created today
func Today() DateRange {
	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return DateRange{Start: day, End: day}
}

// TimestampBounds returns the window as a half-open timestamp interval
// [start, end+1d) for filtering timestamp columns.
func (r DateRange) TimestampBounds() (time.Time, time.Time) {
	return r.Start, r.End.AddDate(0, 0, 1)
}
