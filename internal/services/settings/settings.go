// Package settings owns the global notification and threshold settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-system/internal/database/models"
)

const (
	notificationsKey = "notifications"
	CurrentVersion   = 2
)

type NotificationSettings struct {
	Version int `json:"version"`

	// Revision grows by one on every update. Caches never replace a value
	// with one of a lower revision.
	Revision int64 `json:"revision"`

	GlobalLowStockThreshold      int    `json:"globalLowStockThreshold"`
	GlobalCriticalStockThreshold int    `json:"globalCriticalStockThreshold"`
	GlobalMaxStockLevel          int    `json:"globalMaxStockLevel"`
	EmailNotifications           bool   `json:"emailNotifications"`
	AdminEmail                   string `json:"adminEmail"`
}

func Defaults() NotificationSettings {
	return NotificationSettings{
		Version:                      CurrentVersion,
		GlobalLowStockThreshold:      10,
		GlobalCriticalStockThreshold: 3,
		GlobalMaxStockLevel:          100,
		EmailNotifications:           true,
	}
}

var (
	ErrNegativeThreshold = errors.New("thresholds cannot be negative")
	ErrCriticalNotBelow  = errors.New("critical threshold must be lower than low stock threshold")
	ErrMaxNotAboveLow    = errors.New("max stock level must be greater than low stock threshold")
)

func (s NotificationSettings) Validate() error {
	if s.GlobalLowStockThreshold < 0 || s.GlobalCriticalStockThreshold < 0 || s.GlobalMaxStockLevel < 0 {
		return ErrNegativeThreshold
	}
	if s.GlobalCriticalStockThreshold >= s.GlobalLowStockThreshold {
		return ErrCriticalNotBelow
	}
	if s.GlobalMaxStockLevel <= s.GlobalLowStockThreshold {
		return ErrMaxNotAboveLow
	}
	return nil
}

// storedSettings accepts every layout the settings document has had.
// Version 1 used the un-prefixed names; version 0 had no version field and
// only a single alert threshold.
type storedSettings struct {
	Version  *int  `json:"version"`
	Revision int64 `json:"revision"`

	GlobalLowStockThreshold      *int    `json:"globalLowStockThreshold"`
	GlobalCriticalStockThreshold *int    `json:"globalCriticalStockThreshold"`
	GlobalMaxStockLevel          *int    `json:"globalMaxStockLevel"`
	EmailNotifications           *bool   `json:"emailNotifications"`
	AdminEmail                   *string `json:"adminEmail"`

	LowStockThreshold        *int    `json:"lowStockThreshold"`
	CriticalStockThreshold   *int    `json:"criticalStockThreshold"`
	EnableEmailNotifications *bool   `json:"enableEmailNotifications"`
	NotificationEmail        *string `json:"notificationEmail"`

	StockAlertThreshold *int `json:"stockAlertThreshold"`
}

func firstInt(fallback int, candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}

func firstBool(fallback bool, candidates ...*bool) bool {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}

func firstString(fallback string, candidates ...*string) string {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return fallback
}

// normalize decodes any stored layout into the current one. The second result
// reports whether the input was an older layout.
func normalize(raw []byte) (NotificationSettings, bool, error) {
	d := Defaults()
	if len(raw) == 0 {
		return d, false, nil
	}

	var st storedSettings
	if err := json.Unmarshal(raw, &st); err != nil {
		return d, false, fmt.Errorf("failed to decode settings: %w", err)
	}

	out := NotificationSettings{
		Version:                      CurrentVersion,
		Revision:                     st.Revision,
		GlobalLowStockThreshold:      firstInt(d.GlobalLowStockThreshold, st.GlobalLowStockThreshold, st.LowStockThreshold, st.StockAlertThreshold),
		GlobalCriticalStockThreshold: firstInt(d.GlobalCriticalStockThreshold, st.GlobalCriticalStockThreshold, st.CriticalStockThreshold),
		GlobalMaxStockLevel:          firstInt(d.GlobalMaxStockLevel, st.GlobalMaxStockLevel),
		EmailNotifications:           firstBool(d.EmailNotifications, st.EmailNotifications, st.EnableEmailNotifications),
		AdminEmail:                   strings.TrimSpace(firstString("", st.AdminEmail, st.NotificationEmail)),
	}

	// Old documents could hold a critical value at or above low.
	if out.GlobalCriticalStockThreshold >= out.GlobalLowStockThreshold {
		out.GlobalCriticalStockThreshold = max(out.GlobalLowStockThreshold-1, 0)
	}
	if out.GlobalMaxStockLevel <= out.GlobalLowStockThreshold {
		out.GlobalMaxStockLevel = out.GlobalLowStockThreshold * 10
	}

	migrated := st.Version == nil || *st.Version < CurrentVersion
	return out, migrated, nil
}

// ChangeHook runs after an update has been stored. Errors are logged; the
// update itself stands.
type ChangeHook func(ctx context.Context, before, after NotificationSettings) error

type Service struct {
	db    *gorm.DB
	cache Cache
	log   *zap.Logger
	hooks []ChangeHook
}

func NewService(db *gorm.DB, cache Cache, log *zap.Logger) *Service {
	return &Service{db: db, cache: cache, log: log}
}

// OnChange registers h for every successful update. Register hooks before
// the service starts taking requests.
func (s *Service) OnChange(h ChangeHook) {
	s.hooks = append(s.hooks, h)
}

// Get returns the current settings, from cache when possible. Documents in an
// older layout are rewritten once in the current layout.
func (s *Service) Get(ctx context.Context) (NotificationSettings, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	var row models.Setting
	err := s.db.WithContext(ctx).Where(&models.Setting{Key: notificationsKey}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d := Defaults()
		s.cache.Set(ctx, d)
		return d, nil
	}
	if err != nil {
		return NotificationSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	current, migrated, err := normalize([]byte(row.Value))
	if err != nil {
		return NotificationSettings{}, err
	}

	if migrated {
		if err := s.save(ctx, current); err != nil {
			s.log.Warn("failed to persist migrated settings", zap.Error(err))
		} else {
			s.log.Info("migrated notification settings", zap.Int("fromVersion", row.Version))
		}
	}

	s.cache.Set(ctx, current)
	return current, nil
}

func (s *Service) save(ctx context.Context, v NotificationSettings) error {
	v.Version = CurrentVersion
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	row := models.Setting{
		Key:       notificationsKey,
		Version:   CurrentVersion,
		Value:     string(payload),
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

// Update is a partial settings change; nil fields keep their current value.
type Update struct {
	GlobalLowStockThreshold      *int    `json:"globalLowStockThreshold"`
	GlobalCriticalStockThreshold *int    `json:"globalCriticalStockThreshold"`
	GlobalMaxStockLevel          *int    `json:"globalMaxStockLevel"`
	EmailNotifications           *bool   `json:"emailNotifications"`
	AdminEmail                   *string `json:"adminEmail"`
}

type UpdateResponse struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	Settings NotificationSettings `json:"settings"`
}

func (s *Service) UpdateNotificationSettings(ctx context.Context, u Update) (*UpdateResponse, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return &UpdateResponse{Success: false, Message: "database error"}, err
	}

	next := current
	next.Revision = current.Revision + 1
	if u.GlobalLowStockThreshold != nil {
		next.GlobalLowStockThreshold = *u.GlobalLowStockThreshold
	}
	if u.GlobalCriticalStockThreshold != nil {
		next.GlobalCriticalStockThreshold = *u.GlobalCriticalStockThreshold
	}
	if u.GlobalMaxStockLevel != nil {
		next.GlobalMaxStockLevel = *u.GlobalMaxStockLevel
	}
	if u.EmailNotifications != nil {
		next.EmailNotifications = *u.EmailNotifications
	}
	if u.AdminEmail != nil {
		next.AdminEmail = strings.TrimSpace(*u.AdminEmail)
	}

	if err := next.Validate(); err != nil {
		return &UpdateResponse{Success: false, Message: err.Error(), Settings: current}, nil
	}

	if err := s.save(ctx, next); err != nil {
		return &UpdateResponse{Success: false, Message: "failed to save settings"}, err
	}
	s.cache.Set(ctx, next)

	for _, h := range s.hooks {
		if err := h(ctx, current, next); err != nil {
			s.log.Error("settings change hook failed", zap.Int64("revision", next.Revision), zap.Error(err))
		}
	}

	return &UpdateResponse{
		Success:  true,
		Message:  "Notification settings updated",
		Settings: next,
	}, nil
}
