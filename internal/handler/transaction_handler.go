package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/trade-desk-admin/internal/middleware"
	"github.com/trade-desk-admin/internal/models"
	"github.com/trade-desk-admin/internal/repository"
	"github.com/trade-desk-admin/internal/service"
	"github.com/trade-desk-admin/pkg/response"
)

// TransactionHandler handles transaction ledger API requests
type TransactionHandler struct {
	ledger *service.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// No binding tags on the numeric fields: a zero quantity or plan id must
// come back as a field-keyed validation error, not a bind failure.
type transactionBody struct {
	TradePlanID uint             `json:"trade_plan_id"`
	BuyPrice    decimal.Decimal  `json:"buy_price"`
	SellPrice   decimal.Decimal  `json:"sell_price"`
	Quantity    int              `json:"quantity"`
	Prediction  *models.PnLLabel `json:"prediction"`
}

// Record creates or updates a transaction for the acting user
// POST /api/v1/transactions?start=&end=
func (h *TransactionHandler) Record(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var body transactionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	txn, created, err := h.ledger.Record(middleware.GetUserID(c), &service.RecordRequest{
		TradePlanID: body.TradePlanID,
		BuyPrice:    body.BuyPrice,
		SellPrice:   body.SellPrice,
		Quantity:    body.Quantity,
		Prediction:  body.Prediction,
		Window:      window,
	})
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}

	if created {
		response.Created(c, txn)
		return
	}
	response.Success(c, txn)
}

type bulkEditBody struct {
	Rows []struct {
		ID          *uint            `json:"id"`
		TradePlanID uint             `json:"trade_plan_id"`
		BuyPrice    decimal.Decimal  `json:"buy_price"`
		SellPrice   decimal.Decimal  `json:"sell_price"`
		Quantity    int              `json:"quantity"`
		Prediction  *models.PnLLabel `json:"prediction"`
	} `json:"rows" binding:"required,min=1"`
}

// BulkEdit applies a batch of edits
// PUT /api/v1/transactions?start=&end=
func (h *TransactionHandler) BulkEdit(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var body bulkEditBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rows := make([]service.EditRow, 0, len(body.Rows))
	for _, r := range body.Rows {
		rows = append(rows, service.EditRow{
			ID:          r.ID,
			TradePlanID: r.TradePlanID,
			BuyPrice:    r.BuyPrice,
			SellPrice:   r.SellPrice,
			Quantity:    r.Quantity,
			Prediction:  r.Prediction,
		})
	}

	saved, err := h.ledger.BulkEdit(middleware.GetUserID(c), rows, window)
	if err != nil {
		h.handleLedgerError(c, err)
		return
	}

	response.Success(c, saved)
}

// List returns the acting user's transactions in the window, newest first
// GET /api/v1/transactions?start=&end=&page=&page_size=
func (h *TransactionHandler) List(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, pageSize := parsePagination(c)

	txns, total, err := h.ledger.ListTransactions(middleware.GetUserID(c), window, page, pageSize)
	if err != nil {
		response.InternalError(c, "failed to list transactions")
		return
	}

	response.SuccessPaginated(c, txns, total, page, pageSize)
}

func (h *TransactionHandler) handleLedgerError(c *gin.Context, err error) {
	var verrs service.ValidationErrors
	if errors.As(err, &verrs) {
		response.ValidationFailed(c, verrs)
		return
	}
	if errors.Is(err, repository.ErrTransactionNotFound) {
		response.NotFound(c, "transaction not found")
		return
	}
	response.InternalError(c, "failed to write transaction")
}

// RegisterRoutes registers transaction routes
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	txns := rg.Group("/transactions")
	txns.Use(authMiddleware)
	{
		txns.POST("", h.Record)
		txns.PUT("", h.BulkEdit)
		txns.GET("", h.List)
	}
}
