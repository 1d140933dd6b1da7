package stock

import (
	"context"
	"fmt"
	"math"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/pkg/logger"
)

// Ledger applies stock deltas. It must be called inside a storage transaction
// (tx.Manager.RunInTransaction); the locks it takes last until that commits.
type Ledger struct {
	repo   Repository
	policy Policy
	now    func() time.Time
}

// NewLedger creates a stock ledger.
func NewLedger(repo Repository, policy Policy) *Ledger {
	if policy.Guard == nil {
		policy.Guard = DenyOversell()
	}
	return &Ledger{
		repo:   repo,
		policy: policy,
		now:    time.Now,
	}
}

// WithClock replaces the time source (tests).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Policy returns the active policy.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// ApplyDelta adds delta to one product's stock and returns the new level.
func (l *Ledger) ApplyDelta(ctx context.Context, tenantID, productID id.ID, delta int64, origin Origin) (int64, error) {
	levels, err := l.ApplyDeltas(ctx, tenantID, []Delta{{ProductID: productID, Quantity: delta}}, origin)
	if err != nil {
		return 0, err
	}
	return levels[productID], nil
}

// ApplyDeltas applies a batch as one unit: every entry is validated against
// locked rows before anything is written, so a failing entry leaves all stock
// untouched. Entries for the same product are summed. Returns the new level
// of every product in the batch.
func (l *Ledger) ApplyDeltas(ctx context.Context, tenantID id.ID, deltas []Delta, origin Origin) (map[id.ID]int64, error) {
	if len(deltas) == 0 {
		return map[id.ID]int64{}, nil
	}

	net, err := netDeltas(deltas)
	if err != nil {
		return nil, err
	}

	productIDs := make([]id.ID, 0, len(net))
	for pid := range net {
		productIDs = append(productIDs, pid)
	}
	productIDs = id.Sorted(productIDs)

	rows, err := l.repo.LockLevels(ctx, tenantID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("lock stock levels: %w", err)
	}

	levels := make(map[id.ID]Level, len(rows))
	for _, r := range rows {
		if r.TenantID != tenantID {
			continue
		}
		levels[r.ProductID] = r
	}

	var missing []id.ID
	for _, pid := range productIDs {
		if _, ok := levels[pid]; !ok {
			missing = append(missing, pid)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.NewProductNotFound(id.Strings(missing))
	}

	// Validate the whole batch before the first write.
	for _, pid := range productIDs {
		if err := l.check(levels[pid], net[pid], origin); err != nil {
			return nil, err
		}
	}

	now := l.now().UTC()
	result := make(map[id.ID]int64, len(productIDs))
	movements := make([]Movement, 0, len(productIDs))

	for _, pid := range productIDs {
		lvl := levels[pid]
		if net[pid] == 0 {
			result[pid] = lvl.Stock
			continue
		}
		lvl.Stock += net[pid]
		if err := l.repo.SaveLevel(ctx, lvl); err != nil {
			return nil, fmt.Errorf("save stock level %s: %w", pid, err)
		}
		result[pid] = lvl.Stock

		movements = append(movements, Movement{
			ID:            id.New(),
			TenantID:      tenantID,
			ProductID:     pid,
			Delta:         net[pid],
			StockAfter:    lvl.Stock,
			Source:        origin.Source,
			TransactionID: origin.TransactionID,
			Reason:        origin.Reason,
			CreatedBy:     origin.UserID,
			CreatedAt:     now,
		})
	}

	if len(movements) == 0 {
		return result, nil
	}
	if err := l.repo.AppendMovements(ctx, movements); err != nil {
		return nil, fmt.Errorf("append stock movements: %w", err)
	}

	logger.Debug(ctx, "stock deltas applied",
		"tenant_id", tenantID,
		"source", origin.Source,
		"products", len(productIDs),
	)

	return result, nil
}

func (l *Ledger) check(lvl Level, delta int64, origin Origin) error {
	if l.policy.RejectInactive && !lvl.IsActive && !origin.Source.IsCompensating() {
		return apperror.NewInactiveProduct(lvl.ProductID.String())
	}

	sku := ""
	if lvl.SKU != nil {
		sku = *lvl.SKU
	}

	if !fits(lvl.Stock, delta) {
		return apperror.NewValidation("stock delta out of range").
			WithDetail("product_id", lvl.ProductID.String()).
			WithDetail("stock", lvl.Stock).
			WithDetail("delta", delta)
	}

	allowed, err := l.policy.Guard.Allow(Check{
		ProductID:   lvl.ProductID,
		SKU:         sku,
		StockBefore: lvl.Stock,
		Delta:       delta,
		StockAfter:  lvl.Stock + delta,
		Source:      origin.Source,
	})
	if err != nil {
		return apperror.NewInternal(err)
	}
	if !allowed {
		requested := delta
		if requested < 0 {
			requested = -requested
		}
		if requested < 0 {
			requested = math.MaxInt64
		}
		return apperror.NewInsufficientStock(lvl.ProductID.String(), requested, lvl.Stock)
	}
	return nil
}

// netDeltas sums entries per product and rejects zero entries.
func netDeltas(deltas []Delta) (map[id.ID]int64, error) {
	net := make(map[id.ID]int64, len(deltas))
	var zero, overflow []string
	for _, d := range deltas {
		if d.Quantity == 0 {
			zero = append(zero, d.ProductID.String())
			continue
		}
		cur := net[d.ProductID]
		if !fits(cur, d.Quantity) {
			overflow = append(overflow, d.ProductID.String())
			continue
		}
		net[d.ProductID] = cur + d.Quantity
	}
	if len(overflow) > 0 {
		return nil, apperror.NewValidation("stock delta out of range").
			WithDetail("product_ids", overflow)
	}
	if len(zero) > 0 {
		err := apperror.NewInvalidQuantity(zero)
		err.Message = "stock delta must be non-zero"
		return nil, err
	}
	return net, nil
}

// fits reports whether a+b stays within int64.
func fits(a, b int64) bool {
	if b > 0 {
		return a <= math.MaxInt64-b
	}
	return a >= math.MinInt64-b
}
