package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/config"
	"storefront-system/internal/database"
	"storefront-system/internal/events"
	"storefront-system/internal/gateway"
	"storefront-system/internal/messaging"
	"storefront-system/internal/messaging/kafka"
	"storefront-system/internal/notifier"
	"storefront-system/internal/services/history"
	"storefront-system/internal/services/notifications"
	"storefront-system/internal/services/orders"
	"storefront-system/internal/services/settings"
	"storefront-system/internal/services/stock"
	"storefront-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	log, err := newLogger(cfg.App.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("gateway stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	db, err := database.NewConnection(ctx, cfg.DB.DSN(), log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	settingsSvc := settings.NewService(db, newSettingsCache(cfg, rdb, log), log)
	mailer := newNotifier(cfg, rdb, log)

	bus := events.NewBus(log)
	ledger := history.NewLedger(db, log)
	notifySvc := notifications.NewService(db, settingsSvc, mailer, log)

	bus.Subscribe("ledger", ledger.Handler())
	bus.Subscribe("notifications", notifySvc.Handler())
	bus.Subscribe("redis", messaging.StockEventSink(messaging.NewRedisPublisher(rdb), messaging.StockEventsChannelPrefix+"all"))

	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisher(cfg.Kafka.Brokers)
		defer pub.Close()
		bus.Subscribe("kafka", messaging.StockEventSink(pub, cfg.Kafka.Topic))
		log.Info("kafka sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	stockSvc := stock.NewService(db, settingsSvc, bus, log)
	settingsSvc.OnChange(stockSvc.GlobalLowThresholdChanged)

	skip := cfg.SkipOrderStockDecrement()
	if skip {
		log.Warn("paid orders will not decrement stock", zap.String("database", cfg.DB.Name))
	}
	orderSvc := orders.NewService(db, settingsSvc, stockSvc, bus, mailer, log, orders.Options{SkipStockDecrement: skip})

	router, err := gateway.NewRouter(gateway.Deps{
		Stock:         stockSvc,
		History:       ledger,
		Orders:        orderSvc,
		Notifications: notifySvc,
		Settings:      settingsSvc,
		Signer:        utils.NewTokenSigner(cfg.Auth.JWTSecret),
		RateLimit:     cfg.App.RateLimit,
		Health: map[string]gateway.HealthCheck{
			"database": pingDatabase(db),
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	probes, err := startHealthServer(cfg.App.GRPCPort, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			probes.Stop()
			return err
		}
	}

	probes.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}

	bus.Wait()
	return nil
}

func newSettingsCache(cfg config.Config, rdb *redis.Client, log *zap.Logger) settings.Cache {
	if cfg.Settings.CacheBackend == "redis" {
		return settings.NewRedisCache(rdb, cfg.Settings.CacheTTL, log)
	}
	return settings.NewMemoryCache(cfg.Settings.CacheTTL)
}

func newNotifier(cfg config.Config, rdb *redis.Client, log *zap.Logger) notifier.Notifier {
	if cfg.Notifier.Backend == "redis" {
		return notifier.NewRedisOutbox(rdb, cfg.Notifier.OutboxKey)
	}
	return notifier.NewLogNotifier(log)
}

func pingDatabase(db *gorm.DB) gateway.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
