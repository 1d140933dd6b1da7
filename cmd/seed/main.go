// Package main provides a CLI tool for seeding a tenant with demo catalog
// data and printing a development access token for it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ledgercore/internal/config"
	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/auth"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/infrastructure/storage"
	"ledgercore/pkg/logger"
)

type productSeed struct {
	sku      string
	name     string
	purchase string
	sale     string
	stock    int64
}

var demoProducts = []productSeed{
	{"PAP-A4", "Resma papel A4", "3.20", "4.99", 120},
	{"BOL-AZ", "Bolígrafo azul", "0.18", "0.45", 500},
	{"CUA-100", "Cuaderno 100 hojas", "1.10", "2.25", 80},
	{"GRA-STD", "Grapadora estándar", "4.75", "8.90", 15},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	tenantID := id.New()
	if raw := os.Getenv("SEED_TENANT_ID"); raw != "" {
		if tenantID, err = id.Parse(raw); err != nil {
			log.Fatalw("invalid SEED_TENANT_ID", "error", err)
		}
	}
	userID := id.New()

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	log.Infow("connected to database", "driver", backend.Driver, "tenant_id", tenantID)

	policy, err := cfg.StockPolicy()
	if err != nil {
		log.Fatalw("invalid stock policy", "error", err)
	}
	products := product.NewService(backend.Products,
		domain.CatalogServiceConfig[*product.Product]{TxManager: backend.TxManager},
		stock.NewLedger(backend.Stock, policy))
	clients := counterparty.NewClientService(backend.Clients,
		domain.CatalogServiceConfig[*counterparty.Client]{TxManager: backend.TxManager})
	providers := counterparty.NewProviderService(backend.Providers,
		domain.CatalogServiceConfig[*counterparty.Provider]{TxManager: backend.TxManager})

	for _, s := range demoProducts {
		p := product.NewProduct(tenantID, s.name)
		sku := s.sku
		p.SKU = &sku
		p.PurchasePrice = types.MustMoney(s.purchase)
		p.SalePrice = types.MustMoney(s.sale)

		if err := products.CreateWithStock(ctx, p, s.stock, &userID); err != nil {
			log.Warnw("failed to seed product", "sku", s.sku, "error", err)
			continue
		}
		log.Infow("product created", "sku", s.sku, "product_id", p.ID, "stock", p.Stock)
	}

	client := counterparty.NewClient(tenantID, "Librería Central")
	if err := clients.Create(ctx, client); err != nil {
		log.Fatalw("failed to seed client", "error", err)
	}
	log.Infow("client created", "client_id", client.ID)

	provider := counterparty.NewProvider(tenantID, "Distribuidora Papelera S.A.")
	taxID := "30-71234567-1"
	provider.TaxID = &taxID
	if err := providers.Create(ctx, provider); err != nil {
		log.Warnw("failed to seed provider", "error", err)
	} else {
		log.Infow("provider created", "provider_id", provider.ID)
	}

	if cfg.JWT.Secret == "" {
		log.Info("JWT_SECRET not set, skipping token")
		return
	}
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtConfig.Issuer = cfg.JWT.Issuer
	jwtConfig.AccessTokenTTL = 12 * time.Hour
	jwtService := auth.NewJWTService(jwtConfig)
	token, expiresAt, err := jwtService.GenerateAccessToken(appctx.UserContext{
		UserID:   userID,
		TenantID: tenantID,
		Email:    "demo@ledgercore.local",
	})
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}

	log.Infow("seeding completed successfully", "tenant_id", tenantID, "token_expires_at", expiresAt)
	fmt.Println(token)
}
