package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/middleware"
	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/internal/repository"
	"github.com/trade-desk-admin/internal/service"
	"github.com/trade-desk-admin/pkg/response"
)

// SummaryHandler handles profit/loss summary API requests
type SummaryHandler struct {
	summaryService *service.SummaryService
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summaryService *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

// Get returns the acting user's aggregates for every plan in the window,
// seeding empty rows for plans viewed for the first time
// GET /api/v1/summary?start=&end=
func (h *SummaryHandler) Get(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	aggs, err := h.summaryService.GetSummary(middleware.GetUserID(c), window)
	if err != nil {
		response.InternalError(c, "failed to load summary")
		return
	}

	response.Success(c, aggs)
}

// Override manually edits an aggregate with no transactions behind it
// PUT /api/v1/summary/:id
func (h *SummaryHandler) Override(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid aggregate id")
		return
	}

	var body struct {
		Label        *models.PnLLabel `json:"label"`
		ProfitAmount *decimal.Decimal `json:"profit_amount"`
		LossAmount   *decimal.Decimal `json:"loss_amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	agg, err := h.summaryService.Override(middleware.GetUserID(c), uint(id), &service.OverrideRequest{
		Label:        body.Label,
		ProfitAmount: body.ProfitAmount,
		LossAmount:   body.LossAmount,
	})
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			response.ValidationFailed(c, verrs)
		case errors.Is(err, service.ErrAggregateLocked):
			response.Conflict(c, "aggregate has transactions; it is maintained automatically")
		case errors.Is(err, repository.ErrAggregateNotFound):
			response.NotFound(c, "aggregate not found")
		default:
			response.InternalError(c, "failed to save override")
		}
		return
	}

	response.Success(c, agg)
}

// RegisterRoutes registers summary routes
func (h *SummaryHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	summary := rg.Group("/summary")
	summary.Use(authMiddleware)
	{
		summary.GET("", h.Get)
		summary.PUT("/:id", h.Override)
	}
}
