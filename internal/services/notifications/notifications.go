// Package notifications decides when stock levels warrant an alert and sends
// at most one aggregated email per check.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/internal/database/models"
	"storefront-system/internal/events"
	"storefront-system/internal/notifier"
	"storefront-system/internal/services/settings"
	"storefront-system/internal/services/stock"
)

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 0
	}
}

// Classify applies the rules in priority order. There is no per-product
// critical threshold.
func Classify(count, effectiveLow, critical int) Severity {
	switch {
	case count <= 0:
		return SeverityCritical
	case count <= critical:
		return SeverityCritical
	case count <= effectiveLow:
		return SeverityWarning
	default:
		return SeverityNone
	}
}

type FlaggedProduct struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	CountInStock      int      `json:"countInStock"`
	LowThreshold      int      `json:"lowThreshold"`
	CriticalThreshold int      `json:"criticalThreshold"`
	Severity          Severity `json:"severity"`
}

type SettingsReader interface {
	Get(ctx context.Context) (settings.NotificationSettings, error)
}

type Service struct {
	db       *gorm.DB
	settings SettingsReader
	notifier notifier.Notifier
	log      *zap.Logger
}

func NewService(db *gorm.DB, settings SettingsReader, n notifier.Notifier, log *zap.Logger) *Service {
	return &Service{db: db, settings: settings, notifier: n, log: log}
}

type FlaggedResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Products []FlaggedProduct `json:"products"`
}

func (s *Service) FindProductsNeedingNotification(ctx context.Context) (*FlaggedResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &FlaggedResponse{Success: false, Message: "database error"}, err
	}

	flagged, err := s.scan(ctx, cfg)
	if err != nil {
		return &FlaggedResponse{Success: false, Message: "database error"}, err
	}

	return &FlaggedResponse{
		Success:  true,
		Message:  fmt.Sprintf("%d products need attention", len(flagged)),
		Products: flagged,
	}, nil
}

func (s *Service) scan(ctx context.Context, cfg settings.NotificationSettings) ([]FlaggedProduct, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("count_in_stock ASC, id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(products))
	flagged := make([]FlaggedProduct, 0)
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		low := stock.EffectiveMinStockLevel(p.MinStockLevel, cfg.GlobalLowStockThreshold)
		sev := Classify(p.CountInStock, low, cfg.GlobalCriticalStockThreshold)
		if sev == SeverityNone {
			continue
		}
		flagged = append(flagged, FlaggedProduct{
			ID:                p.ID,
			Name:              p.Name,
			Slug:              p.Slug,
			CountInStock:      p.CountInStock,
			LowThreshold:      low,
			CriticalThreshold: cfg.GlobalCriticalStockThreshold,
			Severity:          sev,
		})
	}
	return flagged, nil
}

type CheckResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	NotificationsSent int    `json:"notificationsSent"`
}

// CheckStockAndNotify sends one email covering every flagged product. An
// empty adminEmail falls back to the configured address, then to every admin.
func (s *Service) CheckStockAndNotify(ctx context.Context, adminEmail string) (*CheckResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return &CheckResponse{Success: false, Message: "database error"}, err
	}

	if !cfg.EmailNotifications {
		return &CheckResponse{Success: true, Message: "Email notifications are disabled"}, nil
	}

	flagged, err := s.scan(ctx, cfg)
	if err != nil {
		return &CheckResponse{Success: false, Message: "database error"}, err
	}
	if len(flagged) == 0 {
		return &CheckResponse{Success: true, Message: "No products need notification"}, nil
	}

	to, err := s.recipients(ctx, adminEmail, cfg)
	if err != nil {
		return &CheckResponse{Success: false, Message: "database error"}, err
	}
	if to == "" {
		s.log.Warn("stock alert has no recipient", zap.Int("flagged", len(flagged)))
		return &CheckResponse{Success: false, Message: "No notification recipient configured"}, nil
	}

	subject, body, err := renderAlert(flagged)
	if err != nil {
		return &CheckResponse{Success: false, Message: "Failed to compose notification"}, err
	}

	if err := s.notifier.SendEmail(ctx, to, subject, body); err != nil {
		s.log.Error("failed to send stock alert", zap.String("to", to), zap.Error(err))
		return &CheckResponse{Success: false, Message: "Failed to send notification"}, nil
	}

	s.log.Info("stock alert sent", zap.String("to", to), zap.Int("products", len(flagged)))
	return &CheckResponse{
		Success:           true,
		Message:           fmt.Sprintf("Stock alert sent for %d products", len(flagged)),
		NotificationsSent: len(flagged),
	}, nil
}

func (s *Service) recipients(ctx context.Context, explicit string, cfg settings.NotificationSettings) (string, error) {
	if e := strings.TrimSpace(explicit); e != "" {
		return e, nil
	}
	if cfg.AdminEmail != "" {
		return cfg.AdminEmail, nil
	}

	var emails []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Order("id").
		Pluck("email", &emails).Error; err != nil {
		return "", err
	}
	return strings.Join(emails, ", "), nil
}

// Handler runs one check per batch in which any product moved to a worse
// severity. It is the only place a stock mutation leads to an alert.
func (s *Service) Handler() events.Handler {
	return func(ctx context.Context, batch []events.StockChanged) error {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}
		if !cfg.EmailNotifications || !escalated(batch, cfg.GlobalCriticalStockThreshold) {
			return nil
		}

		resp, err := s.CheckStockAndNotify(ctx, "")
		if err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("stock alert: %s", resp.Message)
		}
		return nil
	}
}

func escalated(batch []events.StockChanged, critical int) bool {
	for _, ev := range batch {
		before := Classify(ev.QuantityBefore, ev.MinBefore, critical)
		after := Classify(ev.QuantityAfter, ev.MinAfter, critical)
		if after.rank() > before.rank() {
			return true
		}
	}
	return false
}
