package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/internal/repository"
)

const (
	newsCacheVersionKey = "plans:news:ver"
	newsCacheTTL        = 10 * time.Minute
)

// PlanService handles trade plan reads and the single mutable field,
// the news catalyst summary. The news feed for a date range is cached in
// Redis and invalidated by bumping a version key on any plan mutation.
type PlanService struct {
	planRepo *repository.TradePlanRepository
	redis    *redis.Client
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo *repository.TradePlanRepository, redisClient *redis.Client) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		redis:    redisClient,
	}
}

// PlanRow is one plan with its derived sizing fields
type PlanRow struct {
	models.TradePlan
	RiskPerShare decimal.Decimal `json:"risk_per_share"`
	Quantity     int64           `json:"quantity"`
}

// ListPlans retrieves plans in the window with derived risk-per-share
// and quantity, ordered by stock symbol
func (s *PlanService) ListPlans(window DateRange, symbol string, page, pageSize int) ([]PlanRow, int64, error) {
	plans, total, err := s.planRepo.ListByDateRangePaginated(window.Start, window.End, symbol, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]PlanRow, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, PlanRow{
			TradePlan:    p,
			RiskPerShare: p.RiskPerShare(),
			Quantity:     p.Quantity(),
		})
	}
	return rows, total, nil
}

// GetPlan retrieves one plan by ID
func (s *PlanService) GetPlan(id uint) (*models.TradePlan, error) {
	return s.planRepo.GetByID(id)
}

// NewsItem is one entry of the catalyst news feed
type NewsItem struct {
	StockSymbol     string    `json:"stock_symbol"`
	CatalystSummary string    `json:"catalyst_summary"`
	CreatedAt       time.Time `json:"created_at"`
}

// News returns the catalyst summaries for plans in the window, served
// from cache when fresh
func (s *PlanService) News(ctx context.Context, window DateRange) ([]NewsItem, error) {
	key := s.newsCacheKey(ctx, window)
	if key != "" {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var items []NewsItem
			if err := json.Unmarshal(data, &items); err == nil {
				return items, nil
			}
		}
	}

	plans, err := s.planRepo.ListByDateRange(window.Start, window.End, "")
	if err != nil {
		return nil, err
	}

	items := make([]NewsItem, 0, len(plans))
	for _, p := range plans {
		items = append(items, NewsItem{
			StockSymbol:     p.StockSymbol,
			CatalystSummary: p.CatalystSummary,
			CreatedAt:       p.CreatedAt,
		})
	}

	if key != "" {
		if data, err := json.Marshal(items); err == nil {
			s.redis.Set(ctx, key, data, newsCacheTTL)
		}
	}
	return items, nil
}

// UpdateCatalyst updates a plan's news catalyst summary and invalidates
// the news cache
func (s *PlanService) UpdateCatalyst(ctx context.Context, id uint, summary string) error {
	if err := s.planRepo.UpdateCatalyst(id, summary); err != nil {
		return err
	}
	s.InvalidateNewsCache(ctx)
	return nil
}

// InvalidateNewsCache bumps the cache version so stale range keys are
// never served again. Called after catalyst edits and bulk imports.
func (s *PlanService) InvalidateNewsCache(ctx context.Context) {
	if err := s.redis.Incr(ctx, newsCacheVersionKey).Err(); err != nil {
		log.Printf("[PlanService] failed to bump news cache version: %v", err)
	}
}

// newsCacheKey builds the versioned cache key for a window. Returns ""
// when Redis is unavailable so callers fall through to the database.
func (s *PlanService) newsCacheKey(ctx context.Context, window DateRange) string {
	ver, err := s.redis.Get(ctx, newsCacheVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("plans:news:v%d:%s:%s",
		ver,
		window.Start.Format("2006-01-02"),
		window.End.Format("2006-01-02"))
}
