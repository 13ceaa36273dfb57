package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ServiceName    = "inventory-orders"
	ServiceVersion = "0.1.0"
)

const (
	LogsPath      = "/otlp/v1/logs"
	TracesPath    = "/otlp/v1/traces"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type Database struct {
	URL          string        `mapstructure:"url"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type Redis struct {
	Addr           string        `mapstructure:"addr"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type Auth struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AdminUsername     string        `mapstructure:"admin_username"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type Kafka struct {
	Broker      string `mapstructure:"broker"`
	OrdersTopic string `mapstructure:"orders_topic"`
}

type Otel struct {
	Endpoint   string `mapstructure:"endpoint"`
	AuthHeader string `mapstructure:"auth_header"`
}

type Orders struct {
	LockInventory bool `mapstructure:"lock_inventory"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	HTTP      HTTP      `mapstructure:"http"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	Auth      Auth      `mapstructure:"auth"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Otel      Otel      `mapstructure:"otel"`
	Orders    Orders    `mapstructure:"orders"`
	Log       Log       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("database.query_timeout", 3*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.token_ttl", 15*time.Minute)
	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 3)
	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.orders_topic", "orders")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.auth_header", "")
	v.SetDefault("orders.lock_inventory", false)
	v.SetDefault("log.level", "info")
}

// Load reads defaults, an optional config file and INVENTORY_* environment variables, in
// increasing order of precedence. An empty path looks for config.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INVENTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", "INVENTORY_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind DATABASE_URL: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values a server needs. In-memory runs skip the database URL.
func (c *Config) Validate(memory bool) error {
	var errs []error
	if !memory && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (or DATABASE_URL) is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.AdminPasswordHash == "" {
		errs = append(errs, errors.New("auth.admin_password_hash is required"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate_limit.rps and rate_limit.burst must be positive"))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("database.query_timeout must be positive"))
	}
	return errors.Join(errs...)
}
