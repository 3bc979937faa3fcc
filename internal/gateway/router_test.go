package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/internal/database/dbtest"
	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
	"storefront-system/internal/notifier/notifiertest"
	"storefront-system/internal/services/history"
	"storefront-system/internal/services/notifications"
	"storefront-system/internal/services/orders"
	"storefront-system/internal/services/settings"
	"storefront-system/internal/services/stock"
	"storefront-system/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiHarness struct {
	db     *gorm.DB
	bus    *events.Bus
	mail   *notifiertest.Recorder
	notify *notifications.Service
	router *gin.Engine
	signer *utils.TokenSigner

	admin models.User
	buyer models.User
	other models.User
}

func newAPIHarness(t *testing.T, health map[string]HealthCheck) *apiHarness {
	t.Helper()
	db := dbtest.New(t)
	log := zap.NewNop()

	cfg := settings.NewService(db, settings.NewMemoryCache(time.Minute), log)
	bus := events.NewBus(log)
	ledger := history.NewLedger(db, log)
	mail := &notifiertest.Recorder{}
	notify := notifications.NewService(db, cfg, mail, log)
	stockSvc := stock.NewService(db, cfg, bus, log)
	bus.Subscribe("ledger", ledger.Handler())
	cfg.OnChange(stockSvc.GlobalLowThresholdChanged)

	signer := utils.NewTokenSigner("test-secret")
	router, err := NewRouter(Deps{
		Stock:         stockSvc,
		History:       ledger,
		Orders:        orders.NewService(db, cfg, stockSvc, bus, mail, log, orders.Options{}),
		Notifications: notify,
		Settings:      cfg,
		Signer:        signer,
		Health:        health,
		Log:           log,
	})
	require.NoError(t, err)

	return &apiHarness{
		db:     db,
		bus:    bus,
		mail:   mail,
		notify: notify,
		router: router,
		signer: signer,
		admin:  dbtest.SeedUser(t, db, models.User{Name: "Admin", Role: models.RoleAdmin}),
		buyer:  dbtest.SeedUser(t, db, models.User{Name: "Buyer"}),
		other:  dbtest.SeedUser(t, db, models.User{Name: "Other"}),
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (h *apiHarness) do(t *testing.T, as *models.User, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, _, err := h.signer.GenerateToken(as.ID, as.Role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	code, _ := h.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	h = newAPIHarness(t, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	code, _ = h.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStockRoutes(t *testing.T) {
	h := newAPIHarness(t, nil)
	p := dbtest.SeedProduct(t, h.db, models.Product{IsPublished: true, CountInStock: 3})
	path := fmt.Sprintf("/api/v1/stock/products/%d", p.ID)

	code, _ := h.do(t, nil, http.MethodPut, path, gin.H{"quantity": 10, "operation": "subtract"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(t, &h.buyer, http.MethodPut, path, gin.H{"quantity": 10, "operation": "subtract"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := h.do(t, &h.admin, http.MethodPut, path, gin.H{"quantity": 10, "operation": "subtract"})
	require.Equal(t, http.StatusOK, code, resp.Error)

	var product models.Product
	require.NoError(t, json.Unmarshal(resp.Data, &product))
	assert.Equal(t, 0, product.CountInStock)
	assert.Equal(t, models.StockStatusOutOfStock, product.StockStatus)

	code, _ = h.do(t, &h.admin, http.MethodPut, path, gin.H{"operation": "add"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = h.do(t, &h.admin, http.MethodPut, "/api/v1/stock/products/9999", gin.H{"quantity": 1, "operation": "add"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Product not found", resp.Error)

	code, _ = h.do(t, &h.admin, http.MethodPut, path+"/thresholds", gin.H{"minStockLevel": 8, "maxStockLevel": 4})
	assert.Equal(t, http.StatusBadRequest, code)

	h.bus.Wait()
	code, resp = h.do(t, &h.admin, http.MethodGet, path+"/history", nil)
	require.Equal(t, http.StatusOK, code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, -3, entries[0].QuantityChange)
	require.NotNil(t, entries[0].User)
	assert.Equal(t, "Admin", entries[0].User.Name)

	code, _ = h.do(t, &h.admin, http.MethodGet, "/api/v1/stock/statistics", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.do(t, &h.admin, http.MethodGet, "/api/v1/stock/history?page=1&limit=5&movementType=adjustment", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestOrderRoutes(t *testing.T) {
	h := newAPIHarness(t, nil)
	p := dbtest.SeedProduct(t, h.db, models.Product{IsPublished: true, CountInStock: 10, Price: "20.00"})

	code, resp := h.do(t, &h.buyer, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{{"productId": p.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var order models.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, "56.00", order.TotalPrice)
	base := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	code, _ = h.do(t, &h.other, http.MethodPut, base+"/pay", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do(t, &h.buyer, http.MethodPut, base+"/deliver", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = h.do(t, &h.buyer, http.MethodPut, base+"/pay", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = h.do(t, &h.buyer, http.MethodPut, base+"/pay", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, orders.ErrAlreadyPaid.Error(), resp.Error)

	code, resp = h.do(t, &h.buyer, http.MethodPut, base+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, orders.ErrAlreadyPaid.Error(), resp.Error)

	code, _ = h.do(t, &h.admin, http.MethodPut, base+"/deliver", nil)
	assert.Equal(t, http.StatusOK, code)

	h.bus.Wait()
	var got models.Product
	require.NoError(t, h.db.First(&got, p.ID).Error)
	assert.Equal(t, 8, got.CountInStock)
}

func TestNotificationRoutes(t *testing.T) {
	h := newAPIHarness(t, nil)
	dbtest.SeedProduct(t, h.db, models.Product{IsPublished: true, CountInStock: 500})

	code, resp := h.do(t, &h.admin, http.MethodPost, "/api/v1/notifications/check", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.JSONEq(t, `{"notificationsSent":0}`, string(resp.Data))
	assert.Empty(t, h.mail.Emails())

	code, resp = h.do(t, &h.admin, http.MethodPut, "/api/v1/notifications/settings", gin.H{"globalLowStockThreshold": 600, "globalMaxStockLevel": 1000})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = h.do(t, &h.admin, http.MethodPost, "/api/v1/notifications/check", gin.H{"adminEmail": "ops@example.com"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.JSONEq(t, `{"notificationsSent":1}`, string(resp.Data))
	require.Len(t, h.mail.Emails(), 1)
	assert.Equal(t, "ops@example.com", h.mail.Emails()[0].To)

	code, _ = h.do(t, &h.admin, http.MethodPut, "/api/v1/notifications/settings", gin.H{"globalCriticalStockThreshold": 700})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSettingsUpdateRederivesStockStatus(t *testing.T) {
	h := newAPIHarness(t, nil)
	p := dbtest.SeedProduct(t, h.db, models.Product{IsPublished: true, CountInStock: 8, StockStatus: models.StockStatusLowStock, IsLowStock: true})

	code, resp := h.do(t, &h.admin, http.MethodPut, "/api/v1/notifications/settings", gin.H{"globalLowStockThreshold": 5, "globalCriticalStockThreshold": 2})
	require.Equal(t, http.StatusOK, code, resp.Error)
	h.bus.Wait()

	var got models.Product
	require.NoError(t, h.db.First(&got, p.ID).Error)
	assert.Equal(t, models.StockStatusInStock, got.StockStatus)
	assert.False(t, got.IsLowStock)

	h.bus.Subscribe("notifications", h.notify.Handler())

	code, resp = h.do(t, &h.admin, http.MethodPut, "/api/v1/notifications/settings", gin.H{"globalLowStockThreshold": 10})
	require.Equal(t, http.StatusOK, code, resp.Error)
	h.bus.Wait()

	require.NoError(t, h.db.First(&got, p.ID).Error)
	assert.Equal(t, models.StockStatusLowStock, got.StockStatus)
	require.Len(t, h.mail.Emails(), 1)
	assert.Equal(t, h.admin.Email, h.mail.Emails()[0].To)
}
