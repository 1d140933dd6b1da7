package memory

import (
	"context"
	"sort"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/stock"
)

// StockRepo implements stock.Repository over the product table.
type StockRepo struct{ s *Store }

// Stock returns the stock repository of s.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

// LockLevels needs no row locks: the caller's transaction holds the store lock.
func (r *StockRepo) LockLevels(ctx context.Context, tenantID id.ID, productIDs []id.ID) ([]stock.Level, error) {
	var out []stock.Level
	r.s.read(ctx, func() {
		for _, pid := range productIDs {
			if p, ok := r.s.products[pid]; ok && p.TenantID == tenantID {
				out = append(out, stock.Level{
					ProductID: p.ID,
					TenantID:  p.TenantID,
					SKU:       copyString(p.SKU),
					Stock:     p.Stock,
					IsActive:  p.IsActive,
					Version:   p.Version,
				})
			}
		}
	})
	return out, nil
}

func (r *StockRepo) GetLevel(ctx context.Context, tenantID, productID id.ID) (stock.Level, error) {
	levels, _ := r.LockLevels(ctx, tenantID, []id.ID{productID})
	if len(levels) == 0 {
		return stock.Level{}, apperror.NewNotFound("product", productID.String())
	}
	return levels[0], nil
}

func (r *StockRepo) SaveLevel(ctx context.Context, level stock.Level) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.products[level.ProductID]
		if !ok || cur.TenantID != level.TenantID {
			return apperror.NewNotFound("product", level.ProductID.String())
		}
		if cur.Version != level.Version {
			return apperror.NewConcurrentModification("product", level.ProductID.String())
		}
		next := copyProduct(cur)
		next.Stock = level.Stock
		next.Version++
		next.UpdatedAt = r.s.clock()
		r.s.products[level.ProductID] = next
		return nil
	})
}

func (r *StockRepo) AppendMovements(ctx context.Context, movements []stock.Movement) error {
	return r.s.write(ctx, func() error {
		r.s.movements = append(r.s.movements, movements...)
		return nil
	})
}

func (r *StockRepo) ListMovements(ctx context.Context, tenantID, productID id.ID, limit int) ([]stock.Movement, error) {
	var out []stock.Movement
	r.s.read(ctx, func() {
		for i := len(r.s.movements) - 1; i >= 0; i-- {
			m := r.s.movements[i]
			if m.TenantID == tenantID && m.ProductID == productID {
				out = append(out, m)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
