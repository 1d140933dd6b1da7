package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// ProductHTTPHandler serves /products.
type ProductHTTPHandler = CatalogHandler[
	*product.Product,
	dto.CreateProductRequest,
	dto.UpdateProductRequest,
]

// NewProductHandler wires the generic catalog handler to the product
// catalog. Creation books the opening stock through the ledger.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHTTPHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[
		*product.Product,
		dto.CreateProductRequest,
		dto.UpdateProductRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "product",
		MapCreateDTO: func(req *dto.CreateProductRequest, tenantID id.ID) *product.Product {
			return req.ToEntity(tenantID)
		},
		MapUpdateDTO: func(req *dto.UpdateProductRequest, existing *product.Product) {
			req.ApplyTo(existing)
		},
		MapToDTO: func(p *product.Product) any {
			return dto.FromProduct(p)
		},
		Create: func(c *gin.Context, p *product.Product, req *dto.CreateProductRequest) error {
			return service.CreateWithStock(c.Request.Context(), p, req.Stock, base.UserID(c))
		},
	})
}
