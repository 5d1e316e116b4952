package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/prescription-ai-portal/cmd/mainconfig"
	"github.com/wolfman30/prescription-ai-portal/internal/api/router"
	"github.com/wolfman30/prescription-ai-portal/internal/app/bootstrap"
	appconfig "github.com/wolfman30/prescription-ai-portal/internal/config"
	"github.com/wolfman30/prescription-ai-portal/internal/events"
	"github.com/wolfman30/prescription-ai-portal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/prescription-ai-portal/internal/http/middleware"
	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/internal/observability/metrics"
	"github.com/wolfman30/prescription-ai-portal/internal/portal"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting prescription-ai-portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"document_store", cfg.DocumentStore,
		"identity_provider", cfg.IdentityProvider,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		logger.Error("invalid session configuration", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	store, err := bootstrap.BuildDocumentStore(cfg, awsCfg, pool, logger)
	if err != nil {
		logger.Error("failed to build document store", "error", err)
		os.Exit(1)
	}
	backend, err := bootstrap.BuildIdentityBackend(cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build identity provider", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	feed := bootstrap.BuildNotificationFeed(cfg, redisClient, logger)

	// Events go through the Postgres outbox when a database is configured.
	sink := bootstrap.BuildEventSink(cfg, awsCfg, logger)
	var publisher events.Publisher = sink
	if pool != nil {
		outbox := events.NewOutboxStore(pool)
		publisher = outbox
		go events.NewRelay(outbox, sink, logger).Start(ctx)
	}
	lifecycle := notify.NewService(bootstrap.BuildEmailSender(cfg, awsCfg, logger), publisher, cfg.PublicBaseURL, logger)

	metricsHandler, portalMetrics := setupMetrics()

	authHandler := handlers.NewAuthHandler(0, logger)
	portalHandler := handlers.NewPortalHandler(portal.NewService(store, portalMetrics, logger), 0, logger)
	if audit, auditDB := bootstrap.BuildAuditService(pool, logger); audit != nil {
		defer auditDB.Close()
		authHandler.WithAuditor(audit)
		portalHandler.WithAuditor(audit)
	}

	registry := session.NewRegistry(backend, session.Options{
		Store:    store,
		Feed:     feed,
		Observer: lifecycle,
		Metrics:  portalMetrics,
		Logger:   logger,
	}, cfg.SessionIdleTimeout)
	go registry.Run(ctx, time.Minute)

	authLimiter := httpmiddleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	go authLimiter.Run(ctx, 5*time.Minute, 10*time.Minute)
	sessionLimiter := httpmiddleware.NewRateLimiter(cfg.SessionCreateRPS, cfg.SessionCreateBurst)
	go sessionLimiter.Run(ctx, 5*time.Minute, 10*time.Minute)

	// Setup router
	routerCfg := &router.Config{
		Logger:   logger,
		Sessions: registry,
		SessionCookie: httpmiddleware.SessionCookieConfig{
			Secret:        secret,
			Name:          cfg.SessionCookieName,
			TTL:           cfg.SessionTTL,
			Secure:        cfg.SessionCookieSecure,
			CreateLimiter: sessionLimiter,
		},
		Health:             handlers.NewHealthHandler(registry),
		Auth:               authHandler,
		Notifications:      handlers.NewNotificationsHandler(feed, logger),
		Portal:             portalHandler,
		Stream:             handlers.NewStreamHandler(cfg.AllowedOrigins, logger),
		AuthRateLimiter:    authLimiter,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.AllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server. No WriteTimeout: the session stream is long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	stop()
	registry.Close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry with the portal collectors plus
// the Go runtime and process collectors.
func setupMetrics() (http.Handler, *metrics.PortalMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	portalMetrics := metrics.NewPortalMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), portalMetrics
}

// sessionSecret returns SESSION_SECRET. Outside production an empty value is
// replaced by a random per-process secret, which logs everyone out on restart.
func sessionSecret(cfg *appconfig.Config, logger *logging.Logger) (string, error) {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret, nil
	}
	if cfg.IsProduction() {
		return "", fmt.Errorf("SESSION_SECRET is required in production")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn("SESSION_SECRET not set; using an ephemeral secret")
	return hex.EncodeToString(buf), nil
}
