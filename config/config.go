package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"` // apply embedded migrations at startup
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// VaultConfig holds the credential vault key material.
type VaultConfig struct {
	Key string `mapstructure:"key"` // 64 hex chars = 256-bit AES key
}

// GatewayConfig describes the external payment processor.
type GatewayConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SettlementConfig drives checkout and reconciliation.
type SettlementConfig struct {
	CommissionRate    string        `mapstructure:"commission_rate"` // decimal string, e.g. "0.05"
	Currency          string        `mapstructure:"currency"`
	CallbackBaseURL   string        `mapstructure:"callback_base_url"`
	WebhookURL        string        `mapstructure:"webhook_url"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileAfter    time.Duration `mapstructure:"reconcile_after"`
	AbandonAfter      time.Duration `mapstructure:"abandon_after"`
}

type RateLimitConfig struct {
	Enabled         bool  `mapstructure:"enabled"`
	CheckoutPerHour int64 `mapstructure:"checkout_per_hour"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: EBM_.
// Nested keys use underscore: EBM_VAULT_KEY, EBM_GATEWAY_WEBHOOK_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ebook_marketplace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "ebook-marketplace")
	v.SetDefault("vault.key", "")
	v.SetDefault("gateway.base_url", "https://api.slickpay.dz/v1")
	v.SetDefault("gateway.webhook_secret", "")
	v.SetDefault("gateway.timeout", "15s")
	v.SetDefault("settlement.commission_rate", "0.05")
	v.SetDefault("settlement.currency", "DZD")
	v.SetDefault("settlement.callback_base_url", "http://localhost:3000")
	v.SetDefault("settlement.webhook_url", "http://localhost:8080/api/v1/payments/webhook")
	v.SetDefault("settlement.reconcile_interval", "1m")
	v.SetDefault("settlement.reconcile_after", "10m")
	v.SetDefault("settlement.abandon_after", "1h")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.checkout_per_hour", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// EBM_VAULT_KEY -> vault.key
	v.SetEnvPrefix("EBM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the settlement core cannot run with.
// It is called once at startup; any error is fatal.
func (c *Config) Validate() error {
	var errs []error

	key, err := hex.DecodeString(c.Vault.Key)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("vault.key must be hex encoded: %w", err))
	case len(key) != 32:
		errs = append(errs, fmt.Errorf("vault.key must decode to 32 bytes, got %d", len(key)))
	}

	if c.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("gateway.base_url is required"))
	}
	if c.Gateway.WebhookSecret == "" {
		errs = append(errs, errors.New("gateway.webhook_secret is required"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("gateway.timeout must be positive"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	rate, err := decimal.NewFromString(c.Settlement.CommissionRate)
	if err != nil {
		errs = append(errs, fmt.Errorf("settlement.commission_rate must be a decimal: %w", err))
	} else if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("settlement.commission_rate must be in [0,1), got %s", rate))
	}
	if c.Settlement.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("settlement.reconcile_interval must be positive"))
	}
	if c.Settlement.AbandonAfter < c.Settlement.ReconcileAfter {
		errs = append(errs, errors.New("settlement.abandon_after must not be shorter than settlement.reconcile_after"))
	}
	if len(c.Settlement.Currency) != 3 {
		errs = append(errs, fmt.Errorf("settlement.currency must be an ISO 4217 code, got %q", c.Settlement.Currency))
	}

	return errors.Join(errs...)
}
