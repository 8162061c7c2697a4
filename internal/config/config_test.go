package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.RateSource.TTL)
	assert.Equal(t, 10*time.Minute, cfg.RateSource.RefreshInterval)
	assert.Equal(t, time.Second, cfg.RateSource.MinInterval)
	assert.True(t, cfg.Store.DefaultTaxPercentage.Equal(decimal.NewFromInt(16)))
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("RATE_CACHE_TTL", "90s")
	t.Setenv("RATE_MIN_INTERVAL", "2s")
	t.Setenv("DEFAULT_TAX_PERCENTAGE", "8.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("FEATURE_ORDER_EVENTS", "true")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 90*time.Second, cfg.RateSource.TTL)
	assert.Equal(t, 2*time.Second, cfg.RateSource.MinInterval)
	assert.Equal(t, "8.5", cfg.Store.DefaultTaxPercentage.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Features.EnableOrderEvents)
	require.NoError(t, cfg.Validate())
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("RATE_CACHE_TTL", "soon")
	t.Setenv("DEFAULT_TAX_PERCENTAGE", "abc")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.RateSource.TTL)
	assert.True(t, cfg.Store.DefaultTaxPercentage.Equal(decimal.NewFromInt(16)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown_driver", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"bad_port", func(c *Config) { c.Server.Port = 0 }},
		{"empty_rate_url", func(c *Config) { c.RateSource.BaseURL = "" }},
		{"zero_ttl", func(c *Config) { c.RateSource.TTL = 0 }},
		{"negative_spacing", func(c *Config) { c.RateSource.MinInterval = -time.Second }},
		{"negative_tax", func(c *Config) { c.Store.DefaultTaxPercentage = decimal.NewFromInt(-1) }},
		{"tax_over_100", func(c *Config) { c.Store.DefaultTaxPercentage = decimal.NewFromInt(101) }},
		{"events_without_brokers", func(c *Config) {
			c.Features.EnableOrderEvents = true
			c.Kafka.Brokers = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", d.ConnectionString())
}
