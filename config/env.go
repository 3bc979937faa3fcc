package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	DB       DBConfig
	Auth     AuthConfig
	Stock    StockConfig
	Notifier NotifierConfig
	Kafka    KafkaConfig
	Settings SettingsConfig
}

type AppConfig struct {
	Environment string
	HTTPPort    string
	GRPCPort    string
	RateLimit   string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
}

// StockConfig controls the order-payment decrement. BypassLocalDB skips the
// decrement when the service runs against the database named LocalDBName.
type StockConfig struct {
	BypassLocalDB bool
	LocalDBName   string
}

type NotifierConfig struct {
	// Backend is "log" or "redis".
	Backend   string
	OutboxKey string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SettingsConfig struct {
	// CacheBackend is "memory" or "redis".
	CacheBackend string
	CacheTTL     time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	bypass, _ := strconv.ParseBool(getEnv("STOCK_BYPASS_LOCAL_DB", "false"))
	cacheTTL, err := time.ParseDuration(getEnv("SETTINGS_CACHE_TTL", "5m"))
	if err != nil {
		cacheTTL = 5 * time.Minute
	}

	return Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			GRPCPort:    getEnv("GRPC_PORT", "50052"),
			RateLimit:   getEnv("RATE_LIMIT", "60-M"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Stock: StockConfig{
			BypassLocalDB: bypass,
			LocalDBName:   getEnv("STOCK_LOCAL_DB_NAME", "storefront_local"),
		},
		Notifier: NotifierConfig{
			Backend:   getEnv("NOTIFIER_BACKEND", "log"),
			OutboxKey: getEnv("NOTIFIER_OUTBOX_KEY", "mail:outbox"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_STOCK_TOPIC", "stock.changed"),
		},
		Settings: SettingsConfig{
			CacheBackend: getEnv("SETTINGS_CACHE", "memory"),
			CacheTTL:     cacheTTL,
		},
	}
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// SkipOrderStockDecrement reports whether paid orders should leave stock untouched.
func (c Config) SkipOrderStockDecrement() bool {
	return c.Stock.BypassLocalDB && c.DB.Name == c.Stock.LocalDBName
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
