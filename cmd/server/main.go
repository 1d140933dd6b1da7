// Package main is the entry point for the ledgercore API server.
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

	"github.com/gin-gonic/gin"

	"ledgercore/internal/config"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/auth"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/domain/transaction"
	v1 "ledgercore/internal/infrastructure/http/v1"
	"ledgercore/internal/infrastructure/storage"
	"ledgercore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
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
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting ledgercore server", "driver", cfg.Database.Driver)

	// --- Storage ---
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()
	log.Info("storage ready")

	// --- Services ---
	policy, err := cfg.StockPolicy()
	if err != nil {
		log.Fatalw("invalid stock policy", "error", err)
	}
	ledger := stock.NewLedger(backend.Stock, policy)

	transactions := transaction.NewService(transaction.Deps{
		Repo:      backend.Transactions,
		Products:  backend.Products,
		Clients:   backend.Clients,
		Providers: backend.Providers,
		Ledger:    ledger,
		TxManager: backend.TxManager,
		Numerator: backend.Numerator,
		Publisher: backend.Publisher,
		Audit:     backend.Audit,
	})
	stockService := stock.NewService(backend.Stock, ledger, backend.TxManager, backend.Publisher, backend.Audit)
	products := product.NewService(backend.Products,
		domain.CatalogServiceConfig[*product.Product]{TxManager: backend.TxManager}, ledger)
	clients := counterparty.NewClientService(backend.Clients,
		domain.CatalogServiceConfig[*counterparty.Client]{TxManager: backend.TxManager})
	providers := counterparty.NewProviderService(backend.Providers,
		domain.CatalogServiceConfig[*counterparty.Provider]{TxManager: backend.TxManager})

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtConfig.Issuer = cfg.JWT.Issuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Idempotency:  backend.Idempotency,
		DB:           backend,
		Transactions: transactions,
		Stock:        stockService,
		Products:     products,
		Clients:      clients,
		Providers:    providers,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTPAddr, "oversell_guard", policy.Guard.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
