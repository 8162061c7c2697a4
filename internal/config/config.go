package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	RateSource RateSourceConfig
	Store      StoreConfig
	Features   FeatureFlags
	LogLevel   string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

// RateSourceConfig controls the USD→VES exchange rate cache.
type RateSourceConfig struct {
	BaseURL         string
	Timeout         time.Duration
	TTL             time.Duration
	RefreshInterval time.Duration
	MinInterval     time.Duration
	StoreKey        string
}

type StoreConfig struct {
	DefaultTaxPercentage decimal.Decimal
	WhatsAppBaseURL      string
}

type FeatureFlags struct {
	EnableOrderEvents  bool
	EnableOrderCaching bool
}

// Load reads configuration from the environment, after applying a .env file
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       getEnvString("DB_DRIVER", "postgres"),
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "storefront"),
			Password:     getEnvString("DB_PASSWORD", "storefront"),
			Name:         getEnvString("DB_NAME", "storefront"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_ORDER_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic: getEnvString("KAFKA_ORDERS_TOPIC", "storefront.orders"),
		},
		RateSource: RateSourceConfig{
			BaseURL:         getEnvString("RATE_SOURCE_URL", "https://ve.dolarapi.com"),
			Timeout:         getEnvDuration("RATE_SOURCE_TIMEOUT", 10*time.Second),
			TTL:             getEnvDuration("RATE_CACHE_TTL", 5*time.Minute),
			RefreshInterval: getEnvDuration("RATE_REFRESH_INTERVAL", 10*time.Minute),
			MinInterval:     getEnvDuration("RATE_MIN_INTERVAL", time.Second),
			StoreKey:        getEnvString("RATE_STORE_KEY", "storefront:dollar_rate"),
		},
		Store: StoreConfig{
			DefaultTaxPercentage: getEnvDecimal("DEFAULT_TAX_PERCENTAGE", decimal.NewFromInt(16)),
			WhatsAppBaseURL:      getEnvString("WHATSAPP_BASE_URL", "https://wa.me"),
		},
		Features: FeatureFlags{
			EnableOrderEvents:  getEnvBool("FEATURE_ORDER_EVENTS", false),
			EnableOrderCaching: getEnvBool("FEATURE_ORDER_CACHING", true),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.RateSource.BaseURL == "" {
		return fmt.Errorf("config: RATE_SOURCE_URL is required")
	}
	if c.RateSource.TTL <= 0 {
		return fmt.Errorf("config: RATE_CACHE_TTL must be positive")
	}
	if c.RateSource.RefreshInterval <= 0 {
		return fmt.Errorf("config: RATE_REFRESH_INTERVAL must be positive")
	}
	if c.RateSource.MinInterval < 0 {
		return fmt.Errorf("config: RATE_MIN_INTERVAL cannot be negative")
	}
	if c.Store.DefaultTaxPercentage.IsNegative() || c.Store.DefaultTaxPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("config: DEFAULT_TAX_PERCENTAGE must be between 0 and 100")
	}
	if c.Features.EnableOrderEvents && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: KAFKA_BROKERS is required when order events are enabled")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
