package config

import (
	"os"
	"testing"
	"time"
)

// resetEnv clears the environment and sets the minimum a server needs to start.
func resetEnv(t *testing.T) {
	t.Helper()
	os.Clearenv()
	os.Setenv("ENCRYPTION_KEY", "test-passphrase")
}

func TestLoad_Defaults(t *testing.T) {
	resetEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "inotebook-auth" || cfg.JWTAudience != "inotebook-api" {
		t.Errorf("JWT iss/aud = %q/%q", cfg.JWTIssuer, cfg.JWTAudience)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.SessionCookieName != "inotebook_session" {
		t.Errorf("SessionCookieName = %q", cfg.SessionCookieName)
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL())
	}
	if cfg.OTPTTL() != 10*time.Minute || cfg.OTPMaxAttempts != 5 {
		t.Errorf("OTP ttl/attempts = %v/%d", cfg.OTPTTL(), cfg.OTPMaxAttempts)
	}
	if cfg.HeartbeatWindow() != time.Minute {
		t.Errorf("HeartbeatWindow = %v", cfg.HeartbeatWindow())
	}
	if cfg.OTPReturnToClient || cfg.CookieSecure {
		t.Error("OTPReturnToClient and CookieSecure should default to false")
	}
	if cfg.TelemetryKafkaTopic != "inotebook-security-events" {
		t.Errorf("TelemetryKafkaTopic = %q", cfg.TelemetryKafkaTopic)
	}
}

func TestLoad_EncryptionKeyRequired(t *testing.T) {
	for _, v := range []string{"", "   "} {
		os.Clearenv()
		os.Setenv("ENCRYPTION_KEY", v)
		cfg, err := Load()
		if err == nil {
			t.Fatalf("ENCRYPTION_KEY=%q: Load should fail", v)
		}
		if cfg != nil {
			t.Error("Load should return nil config on error")
		}
		if err.Error() != "config: ENCRYPTION_KEY must be set" {
			t.Errorf("error = %q", err.Error())
		}
	}
}

func TestLoadWorker_NoEncryptionKey(t *testing.T) {
	os.Clearenv()
	os.Setenv("LOKI_URL", "http://loki:3100")
	cfg, err := LoadWorker()
	if err != nil {
		t.Fatalf("LoadWorker: %v", err)
	}
	if cfg.LokiURL != "http://loki:3100" || cfg.KafkaGroupID != "inotebook-telemetry-worker" {
		t.Errorf("worker cfg = %+v", cfg)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	resetEnv(t)
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "12")
	os.Setenv("SESSION_TTL", "2h")
	os.Setenv("OTP_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q", cfg.JWTIssuer)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SessionTTL() != 2*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL())
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts = %d", cfg.OTPMaxAttempts)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 10, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetEnv(t)
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_Production(t *testing.T) {
	t.Run("dev OTP forbidden", func(t *testing.T) {
		resetEnv(t)
		os.Setenv("APP_ENV", "production")
		os.Setenv("TRANSPORT_PRIVATE_KEY", "/etc/inotebook/transport.pem")
		os.Setenv("OTP_RETURN_TO_CLIENT", "true")
		if _, err := Load(); err == nil || err.Error() != "config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production" {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("transport key required", func(t *testing.T) {
		resetEnv(t)
		os.Setenv("APP_ENV", "production")
		if _, err := Load(); err == nil {
			t.Error("want error without TRANSPORT_PRIVATE_KEY")
		}
	})
	t.Run("secure cookie forced", func(t *testing.T) {
		resetEnv(t)
		os.Setenv("APP_ENV", "Production")
		os.Setenv("TRANSPORT_PRIVATE_KEY", "/etc/inotebook/transport.pem")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.CookieSecure || !cfg.IsProduction() {
			t.Error("production must force CookieSecure")
		}
	})
}

func TestLoad_OTPReturnToClientDevelopment(t *testing.T) {
	resetEnv(t)
	os.Setenv("OTP_RETURN_TO_CLIENT", "true")
	os.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should be true")
	}
}

func TestLoad_JWTKeysPaired(t *testing.T) {
	resetEnv(t)
	os.Setenv("JWT_PRIVATE_KEY", "/keys/jwt.pem")
	if _, err := Load(); err == nil {
		t.Error("want error when only JWT_PRIVATE_KEY is set")
	}
}

func TestDurations_InvalidFallBack(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid", "invalid"},
		{"zero", "0"},
		{"negative", "-5m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SessionTTLRaw: tt.raw, OTPTTLRaw: tt.raw, HeartbeatWindowRaw: tt.raw}
			if cfg.SessionTTL() != 24*time.Hour {
				t.Errorf("SessionTTL = %v", cfg.SessionTTL())
			}
			if cfg.OTPTTL() != 10*time.Minute {
				t.Errorf("OTPTTL = %v", cfg.OTPTTL())
			}
			if cfg.HeartbeatWindow() != 60*time.Second {
				t.Errorf("HeartbeatWindow = %v", cfg.HeartbeatWindow())
			}
		})
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"localhost:9092", 1},
		{"a:9092, b:9092 ,,", 2},
	}
	for _, tt := range tests {
		cfg := &Config{TelemetryKafkaBrokers: tt.in}
		if got := cfg.TelemetryKafkaBrokersList(); len(got) != tt.want {
			t.Errorf("TelemetryKafkaBrokersList(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
	var nilCfg *Config
	if nilCfg.TelemetryKafkaBrokersList() != nil {
		t.Error("nil config should return nil")
	}
}
