package v1

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/idempotency"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/domain/transaction"
	"ledgercore/internal/infrastructure/http/v1/handlers"
	"ledgercore/internal/infrastructure/http/v1/middleware"
	"ledgercore/pkg/logger"
)

// RouterConfig holds dependencies for router setup.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	// Idempotency is optional; without it Idempotency-Key is ignored.
	Idempotency idempotency.Store

	// DB is pinged by /health; nil reports healthy.
	DB handlers.Pinger

	Transactions *transaction.Service
	Stock        *stock.Service
	Products     *product.Service
	Clients      *counterparty.ClientService
	Providers    *counterparty.ProviderService
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Recovery sits inside ErrorHandler so a panic is rendered as a 500,
	// and both inside Logger so the logged status is the final one.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	health := handlers.NewHealthHandler(cfg.DB)
	router.GET("/health", health.Ready)
	router.GET("/health/live", health.Live)

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()

	registerTransactionRoutes(api.Group("/transactions"), handlers.NewTransactionHandler(base, cfg.Transactions))

	products := api.Group("/products")
	RegisterCatalogRoutes(products, handlers.NewProductHandler(base, cfg.Products))
	registerStockRoutes(products, handlers.NewStockHandler(base, cfg.Stock))

	RegisterCatalogRoutes(api.Group("/clients"), handlers.NewClientHandler(base, cfg.Clients))
	RegisterCatalogRoutes(api.Group("/providers"), handlers.NewProviderHandler(base, cfg.Providers))

	return router
}

func registerTransactionRoutes(group *gin.RouterGroup, h *handlers.TransactionHandler) {
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", h.Update)
	group.POST("/:id/status", h.ChangeStatus)
	group.GET("/:id/verify", h.Verify)
}

func registerStockRoutes(group *gin.RouterGroup, h *handlers.StockHandler) {
	group.POST("/:id/stock-adjustments", h.Adjust)
	group.GET("/:id/stock", h.GetStock)
	group.GET("/:id/movements", h.ListMovements)
}
