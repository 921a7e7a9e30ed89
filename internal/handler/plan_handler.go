package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trade-desk-admin/internal/importer"
	"github.com/trade-desk-admin/internal/repository"
	"github.com/trade-desk-admin/internal/service"
	"github.com/trade-desk-admin/pkg/response"
)

// PlanHandler handles trade plan API requests
type PlanHandler struct {
	planService *service.PlanService
	importer    *importer.Importer
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService *service.PlanService, imp *importer.Importer) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		importer:    imp,
	}
}

// List returns plans in the requested date range with derived sizing
// GET /api/v1/plans?start=&end=&symbol=&page=&page_size=
func (h *PlanHandler) List(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, pageSize := parsePagination(c)

	rows, total, err := h.planService.ListPlans(window, c.Query("symbol"), page, pageSize)
	if err != nil {
		response.InternalError(c, "failed to list plans")
		return
	}

	response.SuccessPaginated(c, rows, total, page, pageSize)
}

// News returns the catalyst summaries for plans in range
// GET /api/v1/plans/news?start=&end=
func (h *PlanHandler) News(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	items, err := h.planService.News(c.Request.Context(), window)
	if err != nil {
		response.InternalError(c, "failed to load trade news")
		return
	}

	response.Success(c, items)
}

// UpdateCatalyst updates a plan's news catalyst summary
// PUT /api/v1/plans/:id/catalyst
func (h *PlanHandler) UpdateCatalyst(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid plan id")
		return
	}

	var req struct {
		CatalystSummary string `json:"catalyst_summary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.planService.UpdateCatalyst(c.Request.Context(), uint(id), req.CatalystSummary); err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			response.NotFound(c, "plan not found")
			return
		}
		response.InternalError(c, "failed to update catalyst summary")
		return
	}

	response.Success(c, gin.H{"id": id})
}

// Import ingests a CSV of plan rows
// POST /api/v1/plans/import (multipart, field "file")
func (h *PlanHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "no file provided")
		return
	}
	defer file.Close()

	report, err := h.importer.ImportCSV(file)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// New plans may change any cached range.
	h.planService.InvalidateNewsCache(c.Request.Context())

	response.Created(c, report)
}

// RegisterRoutes registers plan routes
func (h *PlanHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	plans := rg.Group("/plans")
	plans.Use(authMiddleware)
	{
		plans.GET("", h.List)
		plans.GET("/news", h.News)
		plans.PUT("/:id/catalyst", h.UpdateCatalyst)
		plans.POST("/import", h.Import)
	}
}
