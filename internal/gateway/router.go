// Package gateway assembles the HTTP API.
package gateway

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-system/internal/gateway/handlers"
	"storefront-system/internal/gateway/middleware"
	"storefront-system/internal/utils"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Stock         handlers.StockService
	History       handlers.HistoryService
	Orders        handlers.OrderService
	Notifications handlers.NotificationService
	Settings      handlers.SettingsService

	Signer    *utils.TokenSigner
	RateLimit string
	Health    map[string]HealthCheck
	Log       *zap.Logger
}

func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(d.Log))

	if d.RateLimit != "" {
		limit, err := middleware.RateLimit(d.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	stockHandler := handlers.NewStockHTTPHandler(d.Stock, d.Log)
	historyHandler := handlers.NewHistoryHTTPHandler(d.History, d.Log)
	orderHandler := handlers.NewOrderHTTPHandler(d.Orders, d.Log)
	notificationHandler := handlers.NewNotificationHTTPHandler(d.Notifications, d.Settings, d.Log)

	// --- Authenticated API Group ---
	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuth(d.Signer))
	{
		ordersGroup := api.Group("/orders")
		{
			ordersGroup.POST("", orderHandler.CreateOrder)
			ordersGroup.GET("/:id", orderHandler.GetOrder)
			ordersGroup.PUT("/:id/pay", orderHandler.PayOrder)
			ordersGroup.PUT("/:id/cancel", orderHandler.CancelOrder)
		}
	}

	// --- Admin API Group ---
	admin := r.Group("/api/v1")
	admin.Use(middleware.JWTAuth(d.Signer), middleware.RequireAdmin())
	{
		admin.PUT("/orders/:id/deliver", orderHandler.DeliverOrder)

		stockGroup := admin.Group("/stock")
		{
			stockGroup.GET("/low", stockHandler.GetLowStockProducts)
			stockGroup.GET("/out", stockHandler.GetOutOfStockProducts)
			stockGroup.GET("/statistics", stockHandler.GetStockStatistics)
			stockGroup.PUT("/products/:id", stockHandler.UpdateProductStock)
			stockGroup.PUT("/products/:id/thresholds", stockHandler.UpdateStockThresholds)
			stockGroup.POST("/thresholds/apply", stockHandler.ApplyGlobalThresholds)
			stockGroup.POST("/recalculate", stockHandler.RecalculateStockStatuses)

			stockGroup.GET("/products/:id/history", historyHandler.GetProductStockHistory)
			stockGroup.GET("/history", historyHandler.GetAllStockHistory)
			stockGroup.POST("/history", historyHandler.RecordStockMovement)
			stockGroup.GET("/history/statistics", historyHandler.GetStockHistoryStatistics)
		}

		notificationsGroup := admin.Group("/notifications")
		{
			notificationsGroup.GET("/products", notificationHandler.GetProductsNeedingNotification)
			notificationsGroup.POST("/check", notificationHandler.CheckStockAndNotify)
			notificationsGroup.GET("/settings", notificationHandler.GetSettings)
			notificationsGroup.PUT("/settings", notificationHandler.UpdateSettings)
		}
	}

	r.GET("/health", healthCheckHandler(d.Health))

	return r, nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIP", c.ClientIP()))
	}
}

func healthCheckHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK

		services := make(map[string]interface{}, len(checks))
		unavailable := []string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				services[name] = gin.H{"status": "unavailable", "message": err.Error()}
				unavailable = append(unavailable, name)
				continue
			}
			services[name] = gin.H{"status": "healthy"}
		}
		sort.Strings(unavailable)

		if len(unavailable) > 0 {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"services":             services,
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}
