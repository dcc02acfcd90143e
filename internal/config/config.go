// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// EncryptionKey is the passphrase the at-rest cipher key is derived from. Required; there is no fallback.
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file used to sign session tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTLRaw is the session lifetime (e.g. "24h").
	SessionTTLRaw     string `mapstructure:"SESSION_TTL"`
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// CookieSecure sets the Secure attribute on the session cookie. Forced on in production.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`

	// TransportPrivateKey is the RSA key (PEM or path) clients encrypt payloads for. When empty outside
	// production an ephemeral key is generated at startup.
	TransportPrivateKey string `mapstructure:"TRANSPORT_PRIVATE_KEY"`

	OTPTTLRaw      string `mapstructure:"OTP_TTL"`
	OTPMaxAttempts int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPReturnToClient enables dev OTP mode: codes are kept for GET /dev/otp. Must not be true in production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// MailAPIKey is the transactional mail API key used to deliver OTP codes.
	MailAPIKey  string `mapstructure:"MAIL_API_KEY"`
	MailBaseURL string `mapstructure:"MAIL_BASE_URL"`
	MailSender  string `mapstructure:"MAIL_SENDER"`

	// HeartbeatWindowRaw is how long after its last heartbeat a user counts as live (e.g. "60s").
	HeartbeatWindowRaw string `mapstructure:"HEARTBEAT_WINDOW"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, security events are emitted to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	TelemetryKafkaTopic   string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker is Load without the server-only requirements (ENCRYPTION_KEY, HTTP_ADDR).
func LoadWorker() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "inotebook-auth")
	v.SetDefault("JWT_AUDIENCE", "inotebook-api")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "inotebook_session")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("TRANSPORT_PRIVATE_KEY", "")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_BASE_URL", "")
	v.SetDefault("MAIL_SENDER", "")
	v.SetDefault("HEARTBEAT_WINDOW", "60s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "inotebook-security-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "inotebook-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.EncryptionKey = strings.TrimSpace(cfg.EncryptionKey)
	if cfg.IsProduction() {
		cfg.CookieSecure = true
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.EncryptionKey == "" {
		return errors.New("config: ENCRYPTION_KEY must be set")
	}
	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.IsProduction() && c.TransportPrivateKey == "" {
		return errors.New("config: TRANSPORT_PRIVATE_KEY must be set when APP_ENV=production")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	if (c.JWTPrivateKey == "") != (c.JWTPublicKey == "") {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SessionTTL parses SessionTTLRaw. Returns 24h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.SessionTTLRaw, 24*time.Hour)
}

// OTPTTL parses OTPTTLRaw. Returns 10m if unset or invalid.
func (c *Config) OTPTTL() time.Duration {
	return parseDuration(c.OTPTTLRaw, 10*time.Minute)
}

// HeartbeatWindow parses HeartbeatWindowRaw. Returns 60s if unset or invalid.
func (c *Config) HeartbeatWindow() time.Duration {
	return parseDuration(c.HeartbeatWindowRaw, 60*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka emission is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
