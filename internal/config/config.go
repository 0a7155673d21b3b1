// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvDevelopment is the APP_ENV value that enables local-development behavior
// (loopback tenant fallback, relaxed secret length, reset token echo).
const EnvDevelopment = "development"

// minSecretLen is the minimum JWT_SECRET length outside development (256 bits for HS256).
const minSecretLen = 32

// Config holds application configuration loaded from the environment.
// It is built once at process start and passed by value or pointer to every component; nothing
// reads the environment after Load returns.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health service listens on (e.g. :9090). "off" disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the HMAC key for access and refresh tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTAlgorithm is the HMAC variant: HS256 (default), HS384 or HS512.
	JWTAlgorithm string `mapstructure:"JWT_ALGORITHM"`
	// JWTIssuer is the iss claim set on issue and checked on decode.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim set on issue and checked on decode.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "336h" for 14 days).
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// PasswordResetTTL is the lifetime of a password reset token (e.g. "60m").
	PasswordResetTTL string `mapstructure:"PASSWORD_RESET_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment ("development", "production", ...).
	Env string `mapstructure:"APP_ENV"`
	// DefaultDevTenant is the tenant subdomain used for loopback hosts in development.
	DefaultDevTenant string `mapstructure:"DEFAULT_DEV_TENANT"`
	// LoginRatePerMinute bounds credential-bearing requests per client IP. 0 disables limiting.
	LoginRatePerMinute int `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs. X-Forwarded-For and X-Real-IP
	// are only honoured on connections from these addresses; empty means the peer address is always used.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// NotifyKafkaBrokers is a comma-separated broker list; when set, reset tokens are published to Kafka.
	NotifyKafkaBrokers string `mapstructure:"NOTIFY_KAFKA_BROKERS"`
	// NotifyKafkaTopic is the topic for password reset delivery messages.
	NotifyKafkaTopic string `mapstructure:"NOTIFY_KAFKA_TOPIC"`
	// NotifyKafkaGroupID is the consumer group cmd/worker uses to relay reset messages to the webhook.
	NotifyKafkaGroupID string `mapstructure:"NOTIFY_KAFKA_GROUP_ID"`
	// NotifyWebhookURL receives reset delivery requests as JSON POSTs when Kafka is not configured.
	NotifyWebhookURL string `mapstructure:"NOTIFY_WEBHOOK_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty means no-op telemetry providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name on all telemetry.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("JWT_ISSUER", "mtss-auth")
	v.SetDefault("JWT_AUDIENCE", "mtss-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "336h") // 14d
	v.SetDefault("PASSWORD_RESET_TTL", "60m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DEFAULT_DEV_TENANT", "public")
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 20)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("NOTIFY_KAFKA_BROKERS", "")
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "mtss-password-reset")
	v.SetDefault("NOTIFY_KAFKA_GROUP_ID", "mtss-notify-relay")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "mtss-auth")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that Load cannot express as defaults.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if !c.IsDevelopment() && len(c.JWTSecret) < minSecretLen {
		return errors.New("config: JWT_SECRET must be at least 32 bytes outside development")
	}
	switch strings.ToUpper(c.JWTAlgorithm) {
	case "", "HS256", "HS384", "HS512":
	default:
		return errors.New("config: JWT_ALGORITHM must be HS256, HS384 or HS512")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.LoginRatePerMinute < 0 {
		return errors.New("config: LOGIN_RATE_PER_MINUTE must not be negative")
	}
	if strings.TrimSpace(c.DefaultDevTenant) == "" {
		c.DefaultDevTenant = "public"
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// GRPCEnabled reports whether the gRPC health server should be started.
func (c *Config) GRPCEnabled() bool {
	addr := strings.TrimSpace(c.GRPCAddr)
	return addr != "" && !strings.EqualFold(addr, "off")
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	if c == nil || strings.TrimSpace(c.TrustedProxies) == "" {
		return nil, nil
	}
	var out []netip.Prefix
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// IsDevelopment reports whether APP_ENV selects local development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), EnvDevelopment)
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 14 days if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 14*24*time.Hour)
}

// ResetTTL parses PasswordResetTTL as a time.Duration. Returns 60m if unset or invalid.
func (c *Config) ResetTTL() time.Duration {
	return parseDuration(c.PasswordResetTTL, 60*time.Minute)
}

// NotifyKafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if Kafka delivery is enabled (non-empty list).
func (c *Config) NotifyKafkaBrokersList() []string {
	if c == nil || c.NotifyKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.NotifyKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
