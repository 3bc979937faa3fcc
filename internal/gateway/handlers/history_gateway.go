package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-system/internal/auth"
	"storefront-system/internal/services/history"
)

type HistoryService interface {
	RecordStockMovement(ctx context.Context, m history.Movement) (*history.Result, error)
	GetProductStockHistory(ctx context.Context, productID int64, limit int) (*history.ProductHistoryResponse, error)
	GetAllStockHistory(ctx context.Context, q history.Query) (*history.AllHistoryResponse, error)
	GetStockHistoryStatistics(ctx context.Context) (*history.StatisticsResponse, error)
}

type HistoryHTTPHandler struct {
	ledger HistoryService
	log    *zap.Logger
}

func NewHistoryHTTPHandler(ledger HistoryService, log *zap.Logger) *HistoryHTTPHandler {
	return &HistoryHTTPHandler{ledger: ledger, log: log}
}

func (h *HistoryHTTPHandler) RecordStockMovement(c *gin.Context) {
	var m history.Movement
	if err := c.ShouldBindJSON(&m); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if m.UserID == nil {
		m.UserID = auth.UserIDFrom(c.Request.Context())
	}

	resp, err := h.ledger.RecordStockMovement(c.Request.Context(), m)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Entry)
}

func (h *HistoryHTTPHandler) GetProductStockHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.ledger.GetProductStockHistory(c.Request.Context(), id, parseIntQuery(c, "limit"))
	reply(c, h.log, resp.Success, resp.Message, err, resp.Entries)
}

func (h *HistoryHTTPHandler) GetAllStockHistory(c *gin.Context) {
	var q history.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, "Invalid query: "+err.Error())
		return
	}

	resp, err := h.ledger.GetAllStockHistory(c.Request.Context(), q)
	reply(c, h.log, resp.Success, resp.Message, err, gin.H{
		"entries":    resp.Entries,
		"pagination": resp.Pagination,
	})
}

func (h *HistoryHTTPHandler) GetStockHistoryStatistics(c *gin.Context) {
	resp, err := h.ledger.GetStockHistoryStatistics(c.Request.Context())
	reply(c, h.log, resp.Success, resp.Message, err, gin.H{
		"totalEntries": resp.TotalEntries,
		"byType":       resp.ByType,
		"recent":       resp.Recent,
	})
}
