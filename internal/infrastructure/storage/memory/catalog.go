package memory

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
)

// --- Products ---

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

// Products returns the product repository of s.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.products[p.ID]; ok {
			return apperror.NewDuplicate("product", "id", p.ID.String())
		}
		if p.SKU != nil && r.skuTaken(p.TenantID, *p.SKU, p.ID) {
			return apperror.NewDuplicate("product", "sku", *p.SKU)
		}
		r.s.products[p.ID] = copyProduct(p)
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	var (
		out *product.Product
		err error
	)
	r.s.read(ctx, func() {
		p, ok := r.s.products[productID]
		if !ok || p.TenantID != tenantID {
			err = apperror.NewNotFound("product", productID.String())
			return
		}
		out = copyProduct(p)
	})
	return out, err
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.products[p.ID]
		if !ok || cur.TenantID != p.TenantID {
			return apperror.NewNotFound("product", p.ID.String())
		}
		if cur.Version != p.Version {
			return apperror.NewConcurrentModification("product", p.ID.String())
		}
		if p.SKU != nil && r.skuTaken(p.TenantID, *p.SKU, p.ID) {
			return apperror.NewDuplicate("product", "sku", *p.SKU)
		}
		next := copyProduct(p)
		next.Stock = cur.Stock
		next.CreatedAt = cur.CreatedAt
		next.Version = cur.Version + 1
		next.UpdatedAt = r.s.clock()
		r.s.products[p.ID] = next

		p.Stock = next.Stock
		p.Version = next.Version
		p.UpdatedAt = next.UpdatedAt
		return nil
	})
}

func (r *ProductRepo) SetActive(ctx context.Context, tenantID, productID id.ID, active bool) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.products[productID]
		if !ok || cur.TenantID != tenantID {
			return apperror.NewNotFound("product", productID.String())
		}
		next := copyProduct(cur)
		next.IsActive = active
		next.Version++
		next.UpdatedAt = r.s.clock()
		r.s.products[productID] = next
		return nil
	})
}

func (r *ProductRepo) FindByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*product.Product, error) {
	var out []*product.Product
	r.s.read(ctx, func() {
		for _, pid := range id.Sorted(ids) {
			if p, ok := r.s.products[pid]; ok && p.TenantID == tenantID {
				out = append(out, copyProduct(p))
			}
		}
	})
	return out, nil
}

func (r *ProductRepo) ExistsBySKU(ctx context.Context, tenantID id.ID, sku string, excludeID id.ID) (bool, error) {
	var taken bool
	r.s.read(ctx, func() { taken = r.skuTaken(tenantID, sku, excludeID) })
	return taken, nil
}

func (r *ProductRepo) skuTaken(tenantID id.ID, sku string, excludeID id.ID) bool {
	for _, p := range r.s.products {
		if p.TenantID == tenantID && p.ID != excludeID && p.SKU != nil && *p.SKU == sku {
			return true
		}
	}
	return false
}

// --- Clients ---

// ClientRepo implements counterparty.ClientRepository.
type ClientRepo struct{ s *Store }

// Clients returns the client repository of s.
func (s *Store) Clients() *ClientRepo { return &ClientRepo{s: s} }

func (r *ClientRepo) Create(ctx context.Context, c *counterparty.Client) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.clients[c.ID]; ok {
			return apperror.NewDuplicate("client", "id", c.ID.String())
		}
		cp := *c
		cp.Counterparty = copyCounterparty(c.Counterparty)
		r.s.clients[c.ID] = &cp
		return nil
	})
}

func (r *ClientRepo) GetByID(ctx context.Context, tenantID, clientID id.ID) (*counterparty.Client, error) {
	var (
		out *counterparty.Client
		err error
	)
	r.s.read(ctx, func() {
		c, ok := r.s.clients[clientID]
		if !ok || c.TenantID != tenantID {
			err = apperror.NewNotFound("client", clientID.String())
			return
		}
		cp := *c
		cp.Counterparty = copyCounterparty(c.Counterparty)
		out = &cp
	})
	return out, err
}

func (r *ClientRepo) Update(ctx context.Context, c *counterparty.Client) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.clients[c.ID]
		if !ok || cur.TenantID != c.TenantID {
			return apperror.NewNotFound("client", c.ID.String())
		}
		if cur.Version != c.Version {
			return apperror.NewConcurrentModification("client", c.ID.String())
		}
		next := *c
		next.Counterparty = copyCounterparty(c.Counterparty)
		next.CreatedAt = cur.CreatedAt
		next.Version = cur.Version + 1
		next.UpdatedAt = r.s.clock()
		r.s.clients[c.ID] = &next

		c.Version = next.Version
		c.UpdatedAt = next.UpdatedAt
		return nil
	})
}

func (r *ClientRepo) SetActive(ctx context.Context, tenantID, clientID id.ID, active bool) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.clients[clientID]
		if !ok || cur.TenantID != tenantID {
			return apperror.NewNotFound("client", clientID.String())
		}
		next := *cur
		next.Counterparty = copyCounterparty(cur.Counterparty)
		next.IsActive = active
		next.Version++
		next.UpdatedAt = r.s.clock()
		r.s.clients[clientID] = &next
		return nil
	})
}

// --- Providers ---

// ProviderRepo implements counterparty.ProviderRepository.
type ProviderRepo struct{ s *Store }

// Providers returns the provider repository of s.
func (s *Store) Providers() *ProviderRepo { return &ProviderRepo{s: s} }

func (r *ProviderRepo) Create(ctx context.Context, p *counterparty.Provider) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.providers[p.ID]; ok {
			return apperror.NewDuplicate("provider", "id", p.ID.String())
		}
		if p.TaxID != nil && r.taxIDTaken(p.TenantID, *p.TaxID, p.ID) {
			return apperror.NewDuplicate("provider", "taxId", *p.TaxID)
		}
		r.s.providers[p.ID] = copyProvider(p)
		return nil
	})
}

func (r *ProviderRepo) GetByID(ctx context.Context, tenantID, providerID id.ID) (*counterparty.Provider, error) {
	var (
		out *counterparty.Provider
		err error
	)
	r.s.read(ctx, func() {
		p, ok := r.s.providers[providerID]
		if !ok || p.TenantID != tenantID {
			err = apperror.NewNotFound("provider", providerID.String())
			return
		}
		out = copyProvider(p)
	})
	return out, err
}

func (r *ProviderRepo) Update(ctx context.Context, p *counterparty.Provider) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.providers[p.ID]
		if !ok || cur.TenantID != p.TenantID {
			return apperror.NewNotFound("provider", p.ID.String())
		}
		if cur.Version != p.Version {
			return apperror.NewConcurrentModification("provider", p.ID.String())
		}
		if p.TaxID != nil && r.taxIDTaken(p.TenantID, *p.TaxID, p.ID) {
			return apperror.NewDuplicate("provider", "taxId", *p.TaxID)
		}
		next := copyProvider(p)
		next.CreatedAt = cur.CreatedAt
		next.Version = cur.Version + 1
		next.UpdatedAt = r.s.clock()
		r.s.providers[p.ID] = next

		p.Version = next.Version
		p.UpdatedAt = next.UpdatedAt
		return nil
	})
}

func (r *ProviderRepo) SetActive(ctx context.Context, tenantID, providerID id.ID, active bool) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.providers[providerID]
		if !ok || cur.TenantID != tenantID {
			return apperror.NewNotFound("provider", providerID.String())
		}
		next := copyProvider(cur)
		next.IsActive = active
		next.Version++
		next.UpdatedAt = r.s.clock()
		r.s.providers[providerID] = next
		return nil
	})
}

func (r *ProviderRepo) ExistsByTaxID(ctx context.Context, tenantID id.ID, taxID string, excludeID id.ID) (bool, error) {
	var taken bool
	r.s.read(ctx, func() { taken = r.taxIDTaken(tenantID, taxID, excludeID) })
	return taken, nil
}

func (r *ProviderRepo) taxIDTaken(tenantID id.ID, taxID string, excludeID id.ID) bool {
	for _, p := range r.s.providers {
		if p.TenantID == tenantID && p.ID != excludeID && p.TaxID != nil && *p.TaxID == taxID {
			return true
		}
	}
	return false
}

// --- copies ---

func copyProduct(p *product.Product) *product.Product {
	c := *p
	c.Attributes = p.Attributes.Clone()
	c.SKU = copyString(p.SKU)
	c.Description = copyString(p.Description)
	c.Category = copyString(p.Category)
	return &c
}

func copyCounterparty(c counterparty.Counterparty) counterparty.Counterparty {
	c.Attributes = c.Attributes.Clone()
	c.TaxID = copyString(c.TaxID)
	c.Email = copyString(c.Email)
	c.Phone = copyString(c.Phone)
	c.Address = copyString(c.Address)
	return c
}

func copyProvider(p *counterparty.Provider) *counterparty.Provider {
	c := *p
	c.Counterparty = copyCounterparty(p.Counterparty)
	c.ContactPerson = copyString(p.ContactPerson)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
