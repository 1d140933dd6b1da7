package transaction

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/core/apperror"
	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/audit"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/domain/stock"
	"ledgercore/pkg/logger"
	"ledgercore/pkg/validator"
)

// Deps are the collaborators of Service.
type Deps struct {
	Repo      Repository
	Products  ProductReader
	Clients   ClientReader
	Providers ProviderReader
	Ledger    *stock.Ledger
	TxManager tx.Manager
	Numerator numerator.Generator
	Publisher events.Publisher
	Audit     audit.Recorder
}

// Service provides the transaction operations. Every write runs in one
// storage transaction: resolution, stock, persistence, journal and outbox
// commit or roll back together.
type Service struct {
	repo      Repository
	assembler *Assembler
	ledger    *stock.Ledger
	txManager tx.Manager
	numerator numerator.Generator
	publisher events.Publisher
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates the transaction service.
func NewService(d Deps) *Service {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Audit == nil {
		d.Audit = audit.NopRecorder{}
	}
	return &Service{
		repo:      d.Repo,
		assembler: NewAssembler(d.Products, d.Clients, d.Providers),
		ledger:    d.Ledger,
		txManager: d.TxManager,
		numerator: d.Numerator,
		publisher: d.Publisher,
		audit:     d.Audit,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for default dates (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.assembler.now = now
	return s
}

// CreateTransaction validates cmd, moves stock when the transaction is
// created COMPLETED, and persists the graph.
func (s *Service) CreateTransaction(ctx context.Context, cmd CreateCommand) (*Transaction, error) {
	var created *Transaction

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.assembler.Assemble(ctx, cmd)
		if err != nil {
			return err
		}

		if t.ReferenceNumber == "" && s.numerator != nil {
			ref, err := s.numerator.Next(ctx, t.TenantID, numerator.DefaultConfig(t.Type.ReferencePrefix()), t.Date)
			if err != nil {
				return fmt.Errorf("generate reference number: %w", err)
			}
			t.ReferenceNumber = ref
		}

		if t.Status == StatusCompleted {
			if _, err := s.ledger.ApplyDeltas(ctx, t.TenantID, t.StockDeltas(), s.origin(ctx, t, t.Type.Source())); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		if err := s.publisher.Publish(ctx, events.New(t.TenantID, events.AggregateTransaction, t.ID,
			events.TransactionCreated, eventPayload(t))); err != nil {
			return fmt.Errorf("publish %s: %w", events.TransactionCreated, err)
		}

		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction created",
		"transaction_id", created.ID,
		"type", created.Type,
		"status", created.Status,
		"reference", created.ReferenceNumber,
		"total", created.TotalAmount.StringFixed(types.MoneyScale),
		"lines", len(created.Lines),
	)
	return created, nil
}

// ChangeTransactionStatus moves a transaction to target and applies the
// stock effect of the transition. The header row is locked first, so two
// concurrent cancellations cannot both reverse stock.
func (s *Service) ChangeTransactionStatus(ctx context.Context, tenantID, transactionID id.ID, target Status) (*Transaction, error) {
	if !target.IsValid() {
		return nil, apperror.NewValidation("invalid target status").WithDetail("status", string(target))
	}

	var (
		changed *Transaction
		from    Status
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, tenantID, transactionID)
		if err != nil {
			return err
		}
		from = t.Status

		effect, err := Transition(t.Status, target)
		if err != nil {
			return err
		}

		switch effect {
		case EffectApply:
			if _, err := s.ledger.ApplyDeltas(ctx, tenantID, t.StockDeltas(), s.origin(ctx, t, stock.SourceCompletion)); err != nil {
				return err
			}
		case EffectReverse:
			if _, err := s.ledger.ApplyDeltas(ctx, tenantID, stock.Invert(t.StockDeltas()), s.origin(ctx, t, stock.SourceCancellation)); err != nil {
				return err
			}
		}

		t.Status = target
		t.Touch(s.now())
		if err := s.repo.UpdateHeader(ctx, t); err != nil {
			return err
		}

		if err := s.record(ctx, t, audit.ActionStatusChange,
			map[string]any{"status": from}, map[string]any{"status": target}); err != nil {
			return err
		}

		payload := eventPayload(t)
		payload["previousStatus"] = from
		if err := s.publisher.Publish(ctx, events.New(tenantID, events.AggregateTransaction, t.ID,
			events.TransactionStatusChanged, payload)); err != nil {
			return fmt.Errorf("publish %s: %w", events.TransactionStatusChanged, err)
		}

		changed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction status changed",
		"transaction_id", changed.ID,
		"from", from,
		"to", changed.Status,
	)
	return changed, nil
}

// GetTransaction returns a transaction of tenantID. A stored record whose
// totals no longer match its lines is returned as is and logged.
func (s *Service) GetTransaction(ctx context.Context, tenantID, transactionID id.ID) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, tenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if err := t.Verify(); err != nil {
		logger.Warn(ctx, "transaction totals inconsistent", "transaction_id", t.ID, "error", err)
	}
	return t, nil
}

// VerifyTransaction recomputes the totals of a stored transaction.
func (s *Service) VerifyTransaction(ctx context.Context, tenantID, transactionID id.ID) error {
	t, err := s.repo.GetByID(ctx, tenantID, transactionID)
	if err != nil {
		return err
	}
	return t.Verify()
}

// UpdateTransactionDetails edits notes, reference number and attributes.
// Lines, counterparty, total and status never change on this path.
func (s *Service) UpdateTransactionDetails(ctx context.Context, cmd UpdateDetailsCommand) (*Transaction, error) {
	if err := validator.Check(cmd); err != nil {
		return nil, err
	}

	var updated *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, cmd.TenantID, cmd.TransactionID)
		if err != nil {
			return err
		}
		if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != t.Version {
			return apperror.NewConcurrentModification("transaction", t.ID.String()).
				WithDetail("expected_version", *cmd.ExpectedVersion).
				WithDetail("actual_version", t.Version)
		}

		before := detailsSnapshot(t)
		if cmd.Notes != nil {
			t.Notes = cmd.Notes
		}
		if cmd.ReferenceNumber != nil {
			t.ReferenceNumber = *cmd.ReferenceNumber
		}
		if cmd.Attributes != nil {
			t.Attributes = t.Attributes.Merge(cmd.Attributes)
		}
		if err := t.Validate(ctx); err != nil {
			return err
		}

		t.Touch(s.now())
		if err := s.repo.UpdateHeader(ctx, t); err != nil {
			return err
		}

		if err := s.record(ctx, t, audit.ActionUpdate, before, detailsSnapshot(t)); err != nil {
			return err
		}

		if err := s.publisher.Publish(ctx, events.New(t.TenantID, events.AggregateTransaction, t.ID,
			events.TransactionUpdated, eventPayload(t))); err != nil {
			return fmt.Errorf("publish %s: %w", events.TransactionUpdated, err)
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction details updated", "transaction_id", updated.ID, "version", updated.Version)
	return updated, nil
}

func (s *Service) origin(ctx context.Context, t *Transaction, source stock.Source) stock.Origin {
	txID := t.ID
	o := stock.Origin{Source: source, TransactionID: &txID}
	if uid := appctx.GetUserID(ctx); !id.IsNil(uid) {
		o.UserID = &uid
	} else if !id.IsNil(t.CreatedBy) {
		creator := t.CreatedBy
		o.UserID = &creator
	}
	return o
}

func (s *Service) record(ctx context.Context, t *Transaction, action audit.Action, before, after any) error {
	entry := audit.Entry{
		TenantID:   t.TenantID,
		EntityType: events.AggregateTransaction,
		EntityID:   t.ID,
		Action:     action,
		Before:     before,
		After:      after,
	}
	audit.Fill(ctx, &entry)
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func eventPayload(t *Transaction) map[string]any {
	lines := make([]map[string]any, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = map[string]any{
			"productId": l.ProductID,
			"quantity":  l.Quantity,
			"unitPrice": l.UnitPrice.StringFixed(types.MoneyScale),
			"subtotal":  l.Subtotal.StringFixed(types.MoneyScale),
		}
	}
	return map[string]any{
		"transactionId":   t.ID,
		"type":            t.Type,
		"status":          t.Status,
		"counterpartyId":  t.CounterpartyID(),
		"referenceNumber": t.ReferenceNumber,
		"totalAmount":     t.TotalAmount.StringFixed(types.MoneyScale),
		"transactionDate": t.Date,
		"lines":           lines,
	}
}

func detailsSnapshot(t *Transaction) map[string]any {
	return map[string]any{
		"notes":           t.Notes,
		"referenceNumber": t.ReferenceNumber,
		"attributes":      t.Attributes.Clone(),
		"version":         t.Version,
	}
}
