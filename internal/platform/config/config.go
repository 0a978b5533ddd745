// Package config loads certflow configuration from an optional YAML file
// overlaid with CERTFLOW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	platformstrings "certflow/pkg/platform/strings"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore, e.g. CERTFLOW_PAYMENT__WEBHOOK_SECRET.
const EnvPrefix = "CERTFLOW_"

// Config holds the application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	DB          DBConfig          `koanf:"db"`
	Redis       RedisConfig       `koanf:"redis"`
	Kafka       KafkaConfig       `koanf:"kafka"`
	Auth        AuthConfig        `koanf:"auth"`
	Review      ReviewConfig      `koanf:"review"`
	Certificate CertificateConfig `koanf:"certificate"`
	Payment     PaymentConfig     `koanf:"payment"`
	Log         LogConfig         `koanf:"log"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	ListenAddr        string        `koanf:"listen_addr"`
	AllowedOrigins    []string      `koanf:"allowed_origins"` // empty = same-origin only
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DBConfig selects Postgres persistence. An empty URL runs on in-memory stores.
type DBConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	TxTimeout       time.Duration `koanf:"tx_timeout"`
}

// RedisConfig enables the verification cache. An empty URL disables it.
type RedisConfig struct {
	URL            string        `koanf:"url"`
	PoolSize       int           `koanf:"pool_size"`
	MinIdleConns   int           `koanf:"min_idle_conns"`
	DialTimeout    time.Duration `koanf:"dial_timeout"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	VerifyCacheTTL time.Duration `koanf:"verify_cache_ttl"`
}

// KafkaConfig enables status-change notifications. No brokers means the
// notifier only logs.
type KafkaConfig struct {
	Brokers           []string `koanf:"brokers"`
	Topic             string   `koanf:"topic"`
	Partitions        int32    `koanf:"partitions"`
	ReplicationFactor int16    `koanf:"replication_factor"`
}

type AuthConfig struct {
	JWTSigningKey string `koanf:"jwt_signing_key"`
	Issuer        string `koanf:"issuer"`
}

type ReviewConfig struct {
	CompletenessThreshold int  `koanf:"completeness_threshold"` // percent, 1-100
	RequireReadyScorecard bool `koanf:"require_ready_scorecard"`
}

type CertificateConfig struct {
	ValidityMonths      int    `koanf:"validity_months"`
	VerificationBaseURL string `koanf:"verification_base_url"`
	ExpirySweep         string `koanf:"expiry_sweep"` // cron spec
}

type PaymentConfig struct {
	FeeAmount     string `koanf:"fee_amount"`
	Currency      string `koanf:"currency"`
	InvoicePrefix string `koanf:"invoice_prefix"`
	WebhookSecret string `koanf:"webhook_secret"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or text
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Lists may arrive as one comma separated env value.
	c.Server.AllowedOrigins = platformstrings.SplitList(c.Server.AllowedOrigins...)
	c.Kafka.Brokers = platformstrings.SplitList(c.Kafka.Brokers...)

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.DB.MaxOpenConns == 0 {
		c.DB.MaxOpenConns = 20
	}
	if c.DB.MaxIdleConns == 0 {
		c.DB.MaxIdleConns = 5
	}
	if c.DB.ConnMaxLifetime == 0 {
		c.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if c.DB.TxTimeout == 0 {
		c.DB.TxTimeout = 5 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.VerifyCacheTTL == 0 {
		c.Redis.VerifyCacheTTL = 5 * time.Minute
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "certflow.status-changes"
	}
	if c.Kafka.Partitions == 0 {
		c.Kafka.Partitions = 3
	}
	if c.Kafka.ReplicationFactor == 0 {
		c.Kafka.ReplicationFactor = 1
	}
	if c.Auth.JWTSigningKey == "" {
		// Development default; production deployments set CERTFLOW_AUTH__JWT_SIGNING_KEY.
		c.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "certflow"
	}
	if c.Review.CompletenessThreshold == 0 {
		c.Review.CompletenessThreshold = 100
	}
	if c.Certificate.ValidityMonths == 0 {
		c.Certificate.ValidityMonths = 12
	}
	if c.Certificate.VerificationBaseURL == "" {
		c.Certificate.VerificationBaseURL = "http://localhost:8080"
	}
	if c.Certificate.ExpirySweep == "" {
		c.Certificate.ExpirySweep = "@every 1h"
	}
	if c.Payment.FeeAmount == "" {
		c.Payment.FeeAmount = "1500.00"
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "AED"
	}
	if c.Payment.InvoicePrefix == "" {
		c.Payment.InvoicePrefix = "INV"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Review.CompletenessThreshold < 1 || c.Review.CompletenessThreshold > 100 {
		errs = append(errs, fmt.Errorf("review.completeness_threshold must be between 1 and 100 (got %d)", c.Review.CompletenessThreshold))
	}
	if c.Certificate.ValidityMonths <= 0 {
		errs = append(errs, fmt.Errorf("certificate.validity_months must be positive (got %d)", c.Certificate.ValidityMonths))
	}
	if !strings.HasPrefix(c.Certificate.VerificationBaseURL, "http://") && !strings.HasPrefix(c.Certificate.VerificationBaseURL, "https://") {
		errs = append(errs, fmt.Errorf("certificate.verification_base_url %q must be an http(s) URL", c.Certificate.VerificationBaseURL))
	}
	if fee, err := decimal.NewFromString(c.Payment.FeeAmount); err != nil || !fee.IsPositive() {
		errs = append(errs, fmt.Errorf("payment.fee_amount %q must be a positive decimal", c.Payment.FeeAmount))
	}
	if len(c.Payment.Currency) != 3 {
		errs = append(errs, fmt.Errorf("payment.currency %q must be a 3-letter code", c.Payment.Currency))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	if c.DB.TxTimeout < 0 {
		errs = append(errs, fmt.Errorf("db.tx_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// FeeDecimal returns the parsed certification fee. Validate guarantees it parses.
func (c PaymentConfig) FeeDecimal() decimal.Decimal {
	fee, err := decimal.NewFromString(c.FeeAmount)
	if err != nil {
		return decimal.Zero
	}
	return fee
}
