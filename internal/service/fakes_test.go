package service_test

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/internal/repository"
)

var (
	errTxNotFound  = repository.ErrTransactionNotFound
	errAggNotFound = repository.ErrAggregateNotFound
)

// In-memory stores satisfying the service store interfaces. All methods
// are mutex-guarded so convergence tests can hammer them concurrently.

type fakePlanStore struct {
	mu    sync.Mutex
	plans map[uint]models.TradePlan
}

func newFakePlanStore(plans ...models.TradePlan) *fakePlanStore {
	s := &fakePlanStore{plans: make(map[uint]models.TradePlan)}
	for _, p := range plans {
		s.plans[p.ID] = p
	}
	return s
}

func (s *fakePlanStore) ExistsInRange(id uint, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return false, nil
	}
	return !p.CreatedAt.Before(start) && !p.CreatedAt.After(end), nil
}

func (s *fakePlanStore) ListByDateRange(start, end time.Time, symbol string) ([]models.TradePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TradePlan
	for _, p := range s.plans {
		if !p.CreatedAt.Before(start) && !p.CreatedAt.After(end) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockSymbol < out[j].StockSymbol })
	return out, nil
}

type fakeTxStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[uint]*models.Transaction
	// failSaveID makes Save fail for one row ID, for partial-batch tests
	failSaveID uint
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{rows: make(map[uint]*models.Transaction)}
}

func (s *fakeTxStore) Upsert(txn *models.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.TradePlanID == txn.TradePlanID &&
			row.CreatedByID == txn.CreatedByID &&
			row.Quantity == txn.Quantity &&
			row.BuyPrice.Equal(txn.BuyPrice) &&
			row.SellPrice.Equal(txn.SellPrice) {
			row.PredictionMatched = txn.PredictionMatched
			row.Label = txn.Label
			row.ProfitAmount = txn.ProfitAmount
			row.LossAmount = txn.LossAmount
			row.UpdatedByID = txn.UpdatedByID
			row.UpdatedAt = time.Now()
			*txn = *row
			return false, nil
		}
	}
	s.seq++
	now := time.Now()
	txn.ID = s.seq
	txn.CreatedAt = now
	txn.UpdatedAt = now
	cp := *txn
	s.rows[txn.ID] = &cp
	return true, nil
}

func (s *fakeTxStore) Save(txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveID != 0 && txn.ID == s.failSaveID {
		return errors.New("save rejected")
	}
	cp := *txn
	cp.UpdatedAt = time.Now()
	s.rows[txn.ID] = &cp
	return nil
}

func (s *fakeTxStore) GetByIDAndCreator(id, userID uint) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.CreatedByID != userID {
		return nil, errTxNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *fakeTxStore) ListByCreatorPaginated(userID uint, start, end time.Time, page, pageSize int) ([]models.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, row := range s.rows {
		if row.CreatedByID == userID && !row.CreatedAt.Before(start) && row.CreatedAt.Before(end) {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (s *fakeTxStore) SumNetForPair(planID, userID uint) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	net := decimal.Zero
	for _, row := range s.rows {
		if row.TradePlanID == planID && row.CreatedByID == userID {
			term := row.SellPrice.Sub(row.BuyPrice).Mul(decimal.NewFromInt(int64(row.Quantity)))
			net = net.Add(term)
		}
	}
	return net, nil
}

func (s *fakeTxStore) CountForPair(planID, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, row := range s.rows {
		if row.TradePlanID == planID && row.CreatedByID == userID {
			count++
		}
	}
	return count, nil
}

type aggKey struct {
	planID uint
	userID uint
}

type fakeAggStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[aggKey]*models.Aggregate
}

func newFakeAggStore() *fakeAggStore {
	return &fakeAggStore{rows: make(map[aggKey]*models.Aggregate)}
}

func (s *fakeAggStore) UpsertDerived(agg *models.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := aggKey{agg.TradePlanID, agg.CreatedByID}
	if row, ok := s.rows[key]; ok {
		row.Label = agg.Label
		row.ProfitAmount = agg.ProfitAmount
		row.LossAmount = agg.LossAmount
		row.UpdatedByID = agg.UpdatedByID
		row.UpdatedAt = time.Now()
		return nil
	}
	s.seq++
	agg.ID = s.seq
	cp := *agg
	s.rows[key] = &cp
	return nil
}

func (s *fakeAggStore) SeedMissing(planIDs []uint, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, planID := range planIDs {
		key := aggKey{planID, userID}
		if _, ok := s.rows[key]; ok {
			continue
		}
		s.seq++
		s.rows[key] = &models.Aggregate{
			ID:          s.seq,
			TradePlanID: planID,
			CreatedByID: userID,
			UpdatedByID: userID,
		}
	}
	return nil
}

func (s *fakeAggStore) GetByIDAndOwner(id, userID uint) (*models.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id && row.CreatedByID == userID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, errAggNotFound
}

func (s *fakeAggStore) ListByPlanIDs(planIDs []uint, userID uint) ([]models.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Aggregate
	for _, planID := range planIDs {
		if row, ok := s.rows[aggKey{planID, userID}]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeAggStore) Save(agg *models.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *agg
	cp.UpdatedAt = time.Now()
	s.rows[aggKey{agg.TradePlanID, agg.CreatedByID}] = &cp
	return nil
}

func (s *fakeAggStore) get(planID, userID uint) *models.Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[aggKey{planID, userID}]; ok {
		cp := *row
		return &cp
	}
	return nil
}
