// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"course-membership/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port" env:"ENGINE_HTTP_PORT"`
	AdminJWTSecret string        `yaml:"admin_jwt_secret" env:"ENGINE_ADMIN_JWT_SECRET"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"ENGINE_HTTP_REQUEST_TIMEOUT"`
	// OrderRateLimit caps POST /orders per client per OrderRateWindow.
	// Needs redis; 0 disables it.
	OrderRateLimit  int           `yaml:"order_rate_limit"`
	OrderRateWindow time.Duration `yaml:"order_rate_window"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"ENGINE_LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"ENGINE_LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                       // enable sampling in prod
}

type PersistenceConfig struct {
	Backend       string `yaml:"backend" env:"ENGINE_PERSISTENCE_BACKEND"` // memory|file|redis|postgres
	FileDir       string `yaml:"file_dir" env:"ENGINE_PERSISTENCE_FILE_DIR"`
	EncryptionKey string `yaml:"encryption_key" env:"ENGINE_PERSISTENCE_ENCRYPTION_KEY"` // optional, file backend only
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"ENGINE_DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
	// Catalog reads plans/companies from postgres instead of this file.
	Catalog bool `yaml:"catalog" env:"ENGINE_DATABASE_CATALOG"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"ENGINE_REDIS_URL"`
	Password string        `yaml:"password" env:"ENGINE_REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"ENGINE_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"ENGINE_KAFKA_TOPIC"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token" env:"ENGINE_TELEGRAM_TOKEN"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

type OrdersConfig struct {
	TTL time.Duration `yaml:"ttl" env:"ENGINE_ORDER_TTL"`
}

type PaymentConfig struct {
	SuccessRate float64       `yaml:"success_rate" env:"ENGINE_PAYMENT_SUCCESS_RATE"`
	OutageRate  float64       `yaml:"outage_rate" env:"ENGINE_PAYMENT_OUTAGE_RATE"`
	MinLatency  time.Duration `yaml:"min_latency"`
	MaxLatency  time.Duration `yaml:"max_latency"`
	Timeout     time.Duration `yaml:"timeout" env:"ENGINE_PAYMENT_TIMEOUT"`
}

type SweeperConfig struct {
	Interval time.Duration `yaml:"interval" env:"ENGINE_SWEEP_INTERVAL"`
	// NeverActivatedPolicy decides what happens to purchases never activated
	// before their deadline: "expire" or "cancel".
	NeverActivatedPolicy string        `yaml:"never_activated_policy" env:"ENGINE_SWEEP_NEVER_ACTIVATED_POLICY"`
	LockTTL              time.Duration `yaml:"lock_ttl"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type RetryConfig struct {
	Attempts       uint          `yaml:"attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Orders      OrdersConfig      `yaml:"orders"`
	Payment     PaymentConfig     `yaml:"payment"`
	Sweeper     SweeperConfig     `yaml:"sweeper"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler"`
	Retry       RetryConfig       `yaml:"retry"`

	Plans     []model.Plan    `yaml:"plans"`
	Companies []model.Company `yaml:"companies"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies ENGINE_* environment
// overrides and fills defaults. A missing file is allowed in dev mode.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev mode runs on defaults
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 15 * time.Second
	}
	if c.HTTP.OrderRateWindow <= 0 {
		c.HTTP.OrderRateWindow = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = "memory"
	}
	c.Persistence.Backend = strings.ToLower(c.Persistence.Backend)
	if c.Persistence.FileDir == "" {
		c.Persistence.FileDir = "data"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "membership-events"
	}
	if c.Orders.TTL <= 0 {
		c.Orders.TTL = model.DefaultOrderTTL
	}
	if c.Payment.SuccessRate == 0 {
		c.Payment.SuccessRate = 0.95
	}
	if c.Payment.MaxLatency <= 0 {
		c.Payment.MinLatency = 50 * time.Millisecond
		c.Payment.MaxLatency = 300 * time.Millisecond
	}
	if c.Payment.Timeout <= 0 {
		c.Payment.Timeout = 5 * time.Second
	}
	if c.Sweeper.Interval <= 0 {
		c.Sweeper.Interval = time.Minute
	}
	if c.Sweeper.NeverActivatedPolicy == "" {
		c.Sweeper.NeverActivatedPolicy = "expire"
	}
	if c.Sweeper.LockTTL <= 0 {
		c.Sweeper.LockTTL = c.Sweeper.Interval
	}
	if c.Reconciler.Interval <= 0 {
		c.Reconciler.Interval = time.Minute
	}
	if c.Reconciler.StaleAfter <= 0 {
		c.Reconciler.StaleAfter = 2 * c.Payment.Timeout
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.InitialBackoff <= 0 {
		c.Retry.InitialBackoff = 50 * time.Millisecond
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = time.Second
	}
}

// Validate checks cross-field requirements after defaults are applied.
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case "memory", "file":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown persistence.backend %q", c.Persistence.Backend)
	}
	if c.Database.Catalog && c.Database.URL == "" {
		return errors.New("database.url is required when database.catalog is set")
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return errors.New("payment.success_rate must be within [0,1]")
	}
	if c.Payment.OutageRate < 0 || c.Payment.OutageRate > 1 {
		return errors.New("payment.outage_rate must be within [0,1]")
	}
	if c.Payment.MinLatency < 0 || c.Payment.MinLatency > c.Payment.MaxLatency {
		return errors.New("payment.min_latency must not exceed payment.max_latency")
	}
	switch c.Sweeper.NeverActivatedPolicy {
	case "expire", "cancel":
	default:
		return fmt.Errorf("unknown sweeper.never_activated_policy %q", c.Sweeper.NeverActivatedPolicy)
	}
	if len(c.Persistence.EncryptionKey) > 0 {
		switch len(c.Persistence.EncryptionKey) {
		case 16, 24, 32:
		default:
			return errors.New("persistence.encryption_key must be 16, 24 or 32 bytes")
		}
	}
	return nil
}

// CancelNeverActivated reports whether the sweep cancels (rather than
// expires) purchases that were never activated.
func (c *Config) CancelNeverActivated() bool {
	return c.Sweeper.NeverActivatedPolicy == "cancel"
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
