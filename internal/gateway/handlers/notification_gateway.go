package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-system/internal/services/notifications"
	"storefront-system/internal/services/settings"
)

type NotificationService interface {
	FindProductsNeedingNotification(ctx context.Context) (*notifications.FlaggedResponse, error)
	CheckStockAndNotify(ctx context.Context, adminEmail string) (*notifications.CheckResponse, error)
}

type SettingsService interface {
	Get(ctx context.Context) (settings.NotificationSettings, error)
	UpdateNotificationSettings(ctx context.Context, u settings.Update) (*settings.UpdateResponse, error)
}

type NotificationHTTPHandler struct {
	notifications NotificationService
	settings      SettingsService
	log           *zap.Logger
}

func NewNotificationHTTPHandler(n NotificationService, s SettingsService, log *zap.Logger) *NotificationHTTPHandler {
	return &NotificationHTTPHandler{notifications: n, settings: s, log: log}
}

func (h *NotificationHTTPHandler) GetProductsNeedingNotification(c *gin.Context) {
	resp, err := h.notifications.FindProductsNeedingNotification(c.Request.Context())
	reply(c, h.log, resp.Success, resp.Message, err, resp.Products)
}

type checkRequest struct {
	AdminEmail string `json:"adminEmail"`
}

func (h *NotificationHTTPHandler) CheckStockAndNotify(c *gin.Context) {
	var req checkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	resp, err := h.notifications.CheckStockAndNotify(c.Request.Context(), req.AdminEmail)
	reply(c, h.log, resp.Success, resp.Message, err, gin.H{"notificationsSent": resp.NotificationsSent})
}

func (h *NotificationHTTPHandler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	reply(c, h.log, err == nil, "Notification settings retrieved", err, s)
}

func (h *NotificationHTTPHandler) UpdateSettings(c *gin.Context) {
	var u settings.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.settings.UpdateNotificationSettings(c.Request.Context(), u)
	reply(c, h.log, resp.Success, resp.Message, err, resp.Settings)
}
