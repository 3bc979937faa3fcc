package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-system/internal/auth"
	"storefront-system/internal/services/orders"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, items []orders.ItemInput) (*orders.OrderResponse, error)
	GetOrder(ctx context.Context, id int64) (*orders.OrderResponse, error)
	UpdateOrderToPaid(ctx context.Context, id int64) (*orders.OrderResponse, error)
	DeliverOrder(ctx context.Context, id int64) (*orders.OrderResponse, error)
	CancelOrder(ctx context.Context, id int64) (*orders.OrderResponse, error)
}

type OrderHTTPHandler struct {
	orders OrderService
	log    *zap.Logger
}

func NewOrderHTTPHandler(svc OrderService, log *zap.Logger) *OrderHTTPHandler {
	return &OrderHTTPHandler{orders: svc, log: log}
}

type createOrderRequest struct {
	Items []orders.ItemInput `json:"items" binding:"required,dive"`
}

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	actor, ok := auth.ActorFrom(c.Request.Context())
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), actor.UserID, req.Items)
	if err == nil && resp.Success {
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": resp.Message, "data": resp.Order})
		return
	}
	reply(c, h.log, resp.Success, resp.Message, err, resp.Order)
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.orders.GetOrder(c.Request.Context(), id)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Order)
}

// PayOrder and CancelOrder are open to the owner, so visibility is checked
// through GetOrder first.
func (h *OrderHTTPHandler) PayOrder(c *gin.Context) {
	h.ownedTransition(c, h.orders.UpdateOrderToPaid)
}

func (h *OrderHTTPHandler) CancelOrder(c *gin.Context) {
	h.ownedTransition(c, h.orders.CancelOrder)
}

func (h *OrderHTTPHandler) DeliverOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.orders.DeliverOrder(c.Request.Context(), id)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Order)
}

func (h *OrderHTTPHandler) ownedTransition(c *gin.Context, transition func(context.Context, int64) (*orders.OrderResponse, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	visible, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil || !visible.Success {
		reply(c, h.log, visible.Success, visible.Message, err, nil)
		return
	}

	resp, err := transition(c.Request.Context(), id)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Order)
}
