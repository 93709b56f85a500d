// Package main is the entry point for the stock ledger API server.
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

	"stockledger/internal/config"
	"stockledger/internal/core/txcode"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/template"
	"stockledger/internal/infrastructure/cache"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/pkg/logger"
	txcodesvc "stockledger/pkg/txcode"
)

// devJWTSecret is only accepted outside production; config.Validate enforces it.
const devJWTSecret = "stockledger-dev-secret"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting stockledger server", "env", cfg.AppEnv, "storage", cfg.StorageDriver)

	// --- Storage ---
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer st.Close()

	// --- Template cache ---
	var templateStore template.Store = template.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore, closeRedis, err := openRedis(ctx, cfg)
		if err != nil {
			log.Fatalw("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer closeRedis()
		templateStore = redisStore
		st.checks["redis"] = redisStore
		log.Infow("template cache backed by redis", "addr", cfg.RedisAddr)
	}
	templateCache := template.NewCache(st.templates, templateStore, cfg.TemplateCacheTTL)

	if st.pool != nil {
		listener := cache.NewTemplateListener(st.pool.Pool, templateCache)
		listener.Start(ctx)
		defer listener.Stop()
	}

	// --- Domain services ---
	stockService := stock.NewService(st.variants)
	movementService := movement.NewService(movement.ServiceConfig{
		Repo:      st.movements,
		Stock:     stockService,
		Codes:     txcodesvc.New(st.movements),
		Templates: templateCache,
		Audit:     st.audit,
		History:   st.history,
		TxManager: st.txManager,
		Prefixes: txcode.Config{
			InboundPrefix:  cfg.InboundPrefix,
			OutboundPrefix: cfg.OutboundPrefix,
		},
	})

	// --- JWT Service ---
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		log.Warn("JWT_SECRET not set, using development secret")
		jwtSecret = devJWTSecret
	}
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret, cfg.JWTIssuer))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Movements:    movementService,
		Variants:     stockService,
		HealthChecks: st.checks,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.AppPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
