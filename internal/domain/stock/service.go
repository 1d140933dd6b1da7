package stock

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/domain/audit"
	"ledgercore/internal/domain/events"
	"ledgercore/pkg/logger"
	"ledgercore/pkg/validator"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

// AdjustCommand is a manual correction of one product's stock.
type AdjustCommand struct {
	TenantID  id.ID  `validate:"uuid_required"`
	ProductID id.ID  `validate:"uuid_required"`
	Delta     int64
	Reason    string `validate:"max=255"`
	UserID    *id.ID
}

// Adjustment is the result of AdjustStock.
type Adjustment struct {
	ProductID  id.ID `json:"productId"`
	Delta      int64 `json:"delta"`
	StockAfter int64 `json:"stockAfter"`
}

// Service exposes stock operations that are not part of a transaction's lifecycle.
type Service struct {
	repo      Repository
	ledger    *Ledger
	txManager tx.Manager
	publisher events.Publisher
	audit     audit.Recorder
}

// NewService creates the stock service.
func NewService(repo Repository, ledger *Ledger, txManager tx.Manager, publisher events.Publisher, recorder audit.Recorder) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		ledger:    ledger,
		txManager: txManager,
		publisher: publisher,
		audit:     recorder,
	}
}

// AdjustStock applies a signed manual delta to one product under the same
// locking and guard rules as transactions.
func (s *Service) AdjustStock(ctx context.Context, cmd AdjustCommand) (*Adjustment, error) {
	if cmd.Delta == 0 {
		err := apperror.NewInvalidQuantity([]string{cmd.ProductID.String()})
		err.Message = "adjustment delta must be non-zero"
		return nil, err
	}
	if err := validator.Check(cmd); err != nil {
		return nil, err
	}

	var result *Adjustment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		after, err := s.ledger.ApplyDelta(ctx, cmd.TenantID, cmd.ProductID, cmd.Delta, Origin{
			Source: SourceAdjustment,
			Reason: cmd.Reason,
			UserID: cmd.UserID,
		})
		if err != nil {
			return err
		}
		result = &Adjustment{ProductID: cmd.ProductID, Delta: cmd.Delta, StockAfter: after}

		entry := audit.Entry{
			TenantID:   cmd.TenantID,
			EntityType: events.AggregateProduct,
			EntityID:   cmd.ProductID,
			Action:     audit.ActionAdjust,
			UserID:     cmd.UserID,
			Before:     map[string]any{"stock": after - cmd.Delta},
			After:      map[string]any{"stock": after, "reason": cmd.Reason},
		}
		audit.Fill(ctx, &entry)
		if err := s.audit.Record(ctx, entry); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.New(cmd.TenantID, events.AggregateProduct, cmd.ProductID,
			events.StockAdjusted, map[string]any{
				"productId":  cmd.ProductID,
				"delta":      cmd.Delta,
				"stockAfter": after,
				"reason":     cmd.Reason,
			}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", cmd.ProductID,
		"delta", cmd.Delta,
		"stock_after", result.StockAfter,
	)
	return result, nil
}

// GetStock returns the current level of a product.
func (s *Service) GetStock(ctx context.Context, tenantID, productID id.ID) (Level, error) {
	return s.repo.GetLevel(ctx, tenantID, productID)
}

// ListMovements returns the journal of a product, newest first.
// The product must exist for the tenant.
func (s *Service) ListMovements(ctx context.Context, tenantID, productID id.ID, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}
	if _, err := s.repo.GetLevel(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, tenantID, productID, limit)
}
