package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront-system/internal/database/models"
)

// ConnectOptions bounds the connect retry loop and sizes the pool.
type ConnectOptions struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxTries:        5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
	}
}

func NewConnection(ctx context.Context, dsn string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required")
	}
	return Open(ctx, postgres.Open(dsn), DefaultConnectOptions(), log)
}

// Open connects through dialector, retrying transient failures with
// exponential backoff until opts.MaxTries is exhausted.
func Open(ctx context.Context, dialector gorm.Dialector, opts ConnectOptions, log *zap.Logger) (*gorm.DB, error) {
	if opts.MaxTries == 0 {
		opts.MaxTries = 1
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.InitialInterval
	expo.MaxInterval = opts.MaxInterval

	attempt := 0
	connect := func() (*gorm.DB, error) {
		attempt++
		db, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to get sql.DB: %w", err))
		}
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)

		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to ping DB: %w", err)
		}
		return db, nil
	}

	db, err := backoff.Retry(ctx, connect,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(opts.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("database connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempt, err)
	}

	log.Info("database connected", zap.Int("attempts", attempt))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.StockHistory{},
		&models.Setting{},
	)
}
