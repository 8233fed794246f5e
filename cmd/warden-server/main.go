package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"github.com/triage-ai/warden/internal/api"
	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/auditread"
	"github.com/triage-ai/warden/internal/invoke"
	"github.com/triage-ai/warden/internal/killswitch"
	"github.com/triage-ai/warden/internal/manifest"
	"github.com/triage-ai/warden/internal/policy"
	"github.com/triage-ai/warden/internal/resolver"
	"github.com/triage-ai/warden/internal/store"
	"github.com/triage-ai/warden/internal/tools"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("WARDEN_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("WARDEN_HTTP_PORT", "8080")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	policyEndpoint := os.Getenv("POLICY_EVALUATOR_ENDPOINT")
	failMode := envOrDefault("WARDEN_FAIL_MODE", "open")
	manifestTTL := envOrDefaultInt("WARDEN_MANIFEST_CACHE_TTL_S", 60)
	specTTL := envOrDefaultInt("WARDEN_TOOL_CACHE_TTL_S", 60)
	authTTL := envOrDefaultInt("WARDEN_AUTH_CACHE_TTL_S", 30)

	failClosed := failMode == "closed"

	logger.Info("starting warden server",
		zap.String("http_port", httpPort),
		zap.String("fail_mode", failMode),
		zap.Bool("policy_evaluator_configured", policyEndpoint != ""),
	)

	// Postgres pool (required: registries, catalog, allow-list, admin API)
	if postgresDSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}
	db, err := sql.Open("pgx", postgresDSN)
	if err != nil {
		logger.Fatal("failed to open postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	pgStore := store.NewStore(db)
	logger.Info("postgres connected")

	// Audit trail — ClickHouse or LogWriter fallback
	var sink audit.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := audit.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
		} else {
			sink = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		logger.Info("no CLICKHOUSE_DSN set, audit trail degrades to log writer")
	}
	trail := audit.NewTrail(sink, logger)
	if sink != nil {
		defer sink.Close()
	}

	// ClickHouse reader (for the audit query endpoints)
	var chReader *auditread.Reader
	if clickhouseDSN != "" {
		chReader, err = auditread.NewReader(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse reader connection failed", zap.Error(err))
		} else {
			defer func() { _ = chReader.Close() }()
			logger.Info("clickhouse reader connected")
		}
	}

	// Registries and catalog
	manifests := manifest.NewPostgresRegistry(manifest.PostgresRegistryConfig{
		DB:       db,
		CacheTTL: time.Duration(manifestTTL) * time.Second,
		Logger:   logger,
	})
	switches := killswitch.NewPostgresRegistry(killswitch.PostgresRegistryConfig{
		DB:     db,
		Logger: logger,
	})
	catalog := tools.NewPostgresCatalog(tools.PostgresCatalogConfig{
		DB:       db,
		CacheTTL: time.Duration(specTTL) * time.Second,
		Logger:   logger,
	})

	// Policy checker (optional — without an evaluator, manifests with
	// policy ids follow the fail mode)
	var checker *policy.Checker
	if policyEndpoint != "" {
		checker = policy.NewChecker(policy.CheckerConfig{
			Evaluator: policy.NewHTTPEvaluator(policy.HTTPEvaluatorConfig{
				Endpoint: policyEndpoint,
				Logger:   logger,
			}),
			FailClosed: failClosed,
			Logger:     logger,
		})
	}

	// Capability resolver
	res := resolver.New(resolver.Config{
		Manifests:  manifests,
		Switches:   switches,
		Native:     tools.NewNativeRegistry(),
		Catalog:    catalog,
		Checker:    checker,
		Trail:      trail,
		FailClosed: failClosed,
		Logger:     logger,
	})

	// Invocation allow-list, seeded from Postgres
	edges, err := pgStore.LoadAllowList(context.Background())
	if err != nil {
		logger.Fatal("failed to load allow-list", zap.Error(err))
	}
	allow := invoke.NewAllowList(edges)
	logger.Info("allow-list loaded", zap.Int("targets", len(edges)))

	invoker := invoke.NewGateway(invoke.GatewayConfig{
		Allow:    allow,
		Resolver: res,
		Actors:   invoke.NewActorRegistry(invoke.NewToolActor),
		Trail:    trail,
		Logger:   logger,
	})

	// HTTP API server
	deps := &api.Dependencies{
		Store:    pgStore,
		Keys:     pgStore,
		Resolver: res,
		Invoker:  invoker,
		Allow:    allow,
		Reader:   chReader,
		Logger:   logger,
		CacheTTL: time.Duration(authTTL) * time.Second,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("warden server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
