package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-system/internal/services/stock"
)

type StockService interface {
	UpdateProductStock(ctx context.Context, productID int64, quantity int, op stock.Operation) (*stock.UpdateStockResponse, error)
	UpdateStockThresholds(ctx context.Context, productID int64, minStockLevel, maxStockLevel int) (*stock.UpdateStockResponse, error)
	GetLowStockProducts(ctx context.Context) (*stock.ProductsResponse, error)
	GetOutOfStockProducts(ctx context.Context) (*stock.ProductsResponse, error)
	GetStockStatistics(ctx context.Context) (*stock.StatisticsResponse, error)
	ApplyGlobalThresholdsToAllProducts(ctx context.Context, opts stock.ApplyOptions) (*stock.ApplyThresholdsResponse, error)
	RecalculateStockStatuses(ctx context.Context) (*stock.RecalculateResponse, error)
}

type StockHTTPHandler struct {
	stock StockService
	log   *zap.Logger
}

func NewStockHTTPHandler(svc StockService, log *zap.Logger) *StockHTTPHandler {
	return &StockHTTPHandler{stock: svc, log: log}
}

type updateStockRequest struct {
	Quantity  *int            `json:"quantity" binding:"required"`
	Operation stock.Operation `json:"operation" binding:"required"`
}

func (h *StockHTTPHandler) UpdateProductStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.stock.UpdateProductStock(c.Request.Context(), id, *req.Quantity, req.Operation)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Product)
}

type updateThresholdsRequest struct {
	MinStockLevel *int `json:"minStockLevel" binding:"required"`
	MaxStockLevel *int `json:"maxStockLevel" binding:"required"`
}

func (h *StockHTTPHandler) UpdateStockThresholds(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.stock.UpdateStockThresholds(c.Request.Context(), id, *req.MinStockLevel, *req.MaxStockLevel)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Product)
}

func (h *StockHTTPHandler) GetLowStockProducts(c *gin.Context) {
	resp, err := h.stock.GetLowStockProducts(c.Request.Context())
	reply(c, h.log, resp.Success, resp.Message, err, resp.Products)
}

func (h *StockHTTPHandler) GetOutOfStockProducts(c *gin.Context) {
	resp, err := h.stock.GetOutOfStockProducts(c.Request.Context())
	reply(c, h.log, resp.Success, resp.Message, err, resp.Products)
}

func (h *StockHTTPHandler) GetStockStatistics(c *gin.Context) {
	resp, err := h.stock.GetStockStatistics(c.Request.Context())
	reply(c, h.log, resp.Success, resp.Message, err, resp.Statistics)
}

func (h *StockHTTPHandler) ApplyGlobalThresholds(c *gin.Context) {
	var opts stock.ApplyOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	resp, err := h.stock.ApplyGlobalThresholdsToAllProducts(c.Request.Context(), opts)
	reply(c, h.log, resp.Success, resp.Message, err, gin.H{"updatedCount": resp.UpdatedCount})
}

func (h *StockHTTPHandler) RecalculateStockStatuses(c *gin.Context) {
	resp, err := h.stock.RecalculateStockStatuses(c.Request.Context())
	reply(c, h.log, resp.Success, resp.Message, err, gin.H{"correctedCount": resp.CorrectedCount})
}
