// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// CatalogRouteHandler defines the interface for catalog handlers.
type CatalogRouteHandler interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	SetActive(c *gin.Context)
}

// RegisterCatalogRoutes registers the standard catalog routes.
//
//	RegisterCatalogRoutes(api.Group("/clients"), handlers.NewClientHandler(base, clientService))
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler) {
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.PATCH("/:id/active", handler.SetActive)
}
