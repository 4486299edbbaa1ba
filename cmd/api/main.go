package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ebook-marketplace/config"
	"ebook-marketplace/internal/adapter/gateway/slickpay"
	httpHandler "ebook-marketplace/internal/adapter/http/handler"
	"ebook-marketplace/internal/adapter/metrics"
	pgStorage "ebook-marketplace/internal/adapter/storage/postgres"
	redisStorage "ebook-marketplace/internal/adapter/storage/redis"
	"ebook-marketplace/internal/core/domain"
	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/internal/jobs"
	"ebook-marketplace/internal/service"
	"ebook-marketplace/migrations"
	"ebook-marketplace/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("EBM_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Ebook Marketplace payments API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, logger.Component(log, "postgres"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.AutoMigrate {
		applied, err := pgStorage.Migrate(ctx, pool, migrations.FS, logger.Component(log, "migrate"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Int("applied", applied).Msg("Schema up to date")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, logger.Component(log, "redis"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	itemRepo := pgStorage.NewItemRepo(pool)
	credRepo := pgStorage.NewCredentialRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	purchaseRepo := pgStorage.NewPurchaseRepo(pool)
	settingsRepo := pgStorage.NewSettingsRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize core services
	vault, err := service.NewAESVault(cfg.Vault.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize credential vault")
	}
	signer := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	caps := domain.DefaultCapabilities()
	permSvc := service.NewPermissionService(caps)
	settlementMetrics := metrics.NewSettlementMetrics()
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	gatewayFactory := slickpay.NewFactory(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, signer)
	verifier := service.NewWebhookSignatureVerifier(cfg.Gateway.WebhookSecret, gatewayFactory)
	resolver := service.NewMerchantGatewayResolver(credRepo, vault, gatewayFactory, logger.Component(log, "gateway"))

	// Initialize business services
	settlementSvc := service.NewSettlementService(
		itemRepo,
		txRepo,
		purchaseRepo,
		settingsRepo,
		transactor,
		resolver,
		verifier,
		settlementMetrics,
		auditSvc,
		service.SettlementConfig{
			CommissionRate:  decimal.RequireFromString(cfg.Settlement.CommissionRate),
			Currency:        cfg.Settlement.Currency,
			CallbackBaseURL: cfg.Settlement.CallbackBaseURL,
			WebhookURL:      cfg.Settlement.WebhookURL,
			GatewayTimeout:  cfg.Gateway.Timeout,
		},
		logger.Component(log, "settlement"),
	)
	credSvc := service.NewMerchantService(credRepo, vault, resolver, settlementMetrics, logger.Component(log, "credentials"))
	adminSvc := service.NewUserAdminService(userRepo, logger.Component(log, "admin"))

	var limiter ports.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = redisStorage.NewRateLimitStore(rdb)
	}

	var docs *httpHandler.APIDocs
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		docs = httpHandler.NewAPIDocs(specBytes, "Ebook Marketplace Payments API")
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SettlementSvc:   settlementSvc,
		CredentialSvc:   credSvc,
		AdminSvc:        adminSvc,
		Evaluator:       permSvc,
		Capabilities:    caps,
		TokenSvc:        tokenSvc,
		UserRepo:        userRepo,
		RateLimiter:     limiter,
		CheckoutPerHour: cfg.RateLimit.CheckoutPerHour,
		HealthCheckers:  []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		AuditSvc:        auditSvc,
		Metrics:         settlementMetrics.Handler(),
		Docs:            docs,
		Mode:            cfg.Server.Mode,
		Logger:          logger.Component(log, "http"),
	})

	// Settle transactions whose webhook never arrived.
	reconciler := jobs.NewReconcileJob(settlementSvc, jobs.ReconcileConfig{
		Interval:     cfg.Settlement.ReconcileInterval,
		PendingAfter: cfg.Settlement.ReconcileAfter,
		AbandonAfter: cfg.Settlement.AbandonAfter,
	}, log)
	go reconciler.Start(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")
	reconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
