package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SETTINGS_CACHE_TTL", "")

	cfg := LoadConfig()

	assert.Equal(t, "storefront", cfg.DB.Name)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "memory", cfg.Settings.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.Settings.CacheTTL)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.SkipOrderStockDecrement())
}

func TestLoadConfig_KafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")

	cfg := LoadConfig()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestSkipOrderStockDecrement(t *testing.T) {
	t.Setenv("STOCK_BYPASS_LOCAL_DB", "true")
	t.Setenv("DB_NAME", "storefront_local")

	cfg := LoadConfig()
	assert.True(t, cfg.SkipOrderStockDecrement())

	cfg.DB.Name = "storefront"
	assert.False(t, cfg.SkipOrderStockDecrement(), "bypass only applies to the local database")
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
