package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminhandler "inotebook/backend/internal/admin/handler"
	"inotebook/backend/internal/audit"
	auditrepo "inotebook/backend/internal/audit/repository"
	"inotebook/backend/internal/config"
	"inotebook/backend/internal/db"
	"inotebook/backend/internal/devotp"
	devotphandler "inotebook/backend/internal/devotp/handler"
	healthhandler "inotebook/backend/internal/health/handler"
	"inotebook/backend/internal/heartbeat"
	heartbeathandler "inotebook/backend/internal/heartbeat/handler"
	identityhandler "inotebook/backend/internal/identity/handler"
	identityservice "inotebook/backend/internal/identity/service"
	messagehandler "inotebook/backend/internal/message/handler"
	messagerepo "inotebook/backend/internal/message/repository"
	notehandler "inotebook/backend/internal/note/handler"
	noterepo "inotebook/backend/internal/note/repository"
	"inotebook/backend/internal/otp"
	"inotebook/backend/internal/otp/mail"
	otprepo "inotebook/backend/internal/otp/repository"
	"inotebook/backend/internal/policy/engine"
	"inotebook/backend/internal/security"
	"inotebook/backend/internal/server"
	"inotebook/backend/internal/server/middleware"
	sessionrepo "inotebook/backend/internal/session/repository"
	"inotebook/backend/internal/telemetry"
	telemetryotel "inotebook/backend/internal/telemetry/otel"
	"inotebook/backend/internal/telemetry/producer"
	userrepo "inotebook/backend/internal/user/repository"
)

const (
	serviceName     = "inotebook-backend"
	shutdownTimeout = 15 * time.Second
	devKeyBits      = 2048
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	var events telemetry.EventEmitter = providers.EventEmitter()
	if kafkaProducer != nil {
		events = telemetry.MultiEmitter{events, kafkaProducer}
		log.Printf("telemetry: security events also go to kafka topic %s", cfg.TelemetryKafkaTopic)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	cipher, err := security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("cipher: %v", err)
	}
	tokens, err := loadTokenProvider(cfg)
	if err != nil {
		log.Fatalf("session tokens: %v", err)
	}
	transport, err := loadTransportKey(cfg)
	if err != nil {
		log.Fatalf("transport key: %v", err)
	}
	policy, err := engine.NewOPAEvaluator(ctx, engine.DefaultRegoPolicy)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	notes := noterepo.NewPostgresRepository(database)
	messages := messagerepo.NewPostgresRepository(database)
	audits := auditrepo.NewPostgresRepository(database)
	auditLogger := audit.NewLogger(audits, middleware.ClientIPFromContext)

	var devStore *devotp.MemoryStore
	if cfg.OTPReturnToClient {
		devStore = devotp.NewMemoryStore()
		log.Println("otp: dev mode, codes are served at GET /dev/otp")
	}
	var mailer otp.Mailer
	if cfg.MailAPIKey != "" {
		mailer = mail.NewClient(cfg.MailAPIKey, cfg.MailBaseURL, cfg.MailSender)
	}
	var otpDevStore otp.DevStore
	if devStore != nil {
		otpDevStore = devStore
	}
	otpService := otp.NewService(otprepo.NewPostgresRepository(database), mailer, otpDevStore, otp.Config{
		TTL:         cfg.OTPTTL(),
		MaxAttempts: cfg.OTPMaxAttempts,
	})

	authService := identityservice.NewAuthService(identityservice.Deps{
		Users:    users,
		Sessions: sessions,
		OTP:      otpService,
		Policy:   policy,
		Hasher:   security.NewHasher(cfg.BcryptCost),
		Tokens:   tokens,
		Cipher:   cipher,
		Audit:    auditLogger,
		Events:   events,
	})
	tracker := heartbeat.NewTracker(cfg.HeartbeatWindow())

	deps := server.Deps{
		Auth:      identityhandler.NewHandler(authService, transport, identityhandler.CookieConfig{Name: cfg.SessionCookieName, Secure: cfg.CookieSecure}),
		Notes:     notehandler.NewHandler(notes, cipher),
		Messages:  messagehandler.NewHandler(messages, users, transport, cipher, auditLogger, events),
		Heartbeat: heartbeathandler.NewHandler(tracker, users, sessions),
		Admin: adminhandler.NewHandler(users, audits, adminhandler.Options{
			ActiveSessions: func(ctx context.Context) (int, error) { return sessions.CountActive(ctx, time.Now().UTC()) },
			Notes:          notes.Count,
			Messages:       messages.Count,
			Live:           func() int { return len(tracker.Live()) },
		}),
		Health:      healthhandler.NewHandler(database, policy),
		Tokens:      tokens,
		Sessions:    sessions,
		CookieName:  cfg.SessionCookieName,
		AuditLogger: auditLogger,
		Events:      events,
	}
	if devStore != nil {
		deps.DevOTP = devotphandler.NewHandler(devStore)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewHTTPHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Let in-flight async security events finish before closing their sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka producer close: %v", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// loadTokenProvider uses JWT_PRIVATE_KEY/JWT_PUBLIC_KEY, or an ephemeral RSA pair outside production.
func loadTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	privPEM, pubPEM := cfg.JWTPrivateKey, cfg.JWTPublicKey
	if privPEM == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when APP_ENV=production")
		}
		priv, pub, err := security.GenerateRSAKeyPEM(devKeyBits)
		if err != nil {
			return nil, err
		}
		privPEM, pubPEM = string(priv), string(pub)
		log.Println("security: using an ephemeral session signing key; sessions end on restart")
	}
	priv, err := security.ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	pub, err := security.ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL()), nil
}

// loadTransportKey uses TRANSPORT_PRIVATE_KEY, or an ephemeral key outside production
// (config validation rejects a missing key in production).
func loadTransportKey(cfg *config.Config) (*security.TransportKey, error) {
	if cfg.TransportPrivateKey != "" {
		return security.LoadTransportKey(cfg.TransportPrivateKey)
	}
	log.Println("security: using an ephemeral transport key; clients must refetch it after a restart")
	return security.GenerateTransportKey(devKeyBits)
}
