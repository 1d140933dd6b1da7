package memory

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/transaction"
)

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct{ s *Store }

// Transactions returns the transaction repository of s.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.transactions[t.ID]; ok {
			return apperror.NewDuplicate("transaction", "id", t.ID.String())
		}
		r.s.transactions[t.ID] = copyTransaction(t)
		return nil
	})
}

func (r *TransactionRepo) GetByID(ctx context.Context, tenantID, transactionID id.ID) (*transaction.Transaction, error) {
	var (
		out *transaction.Transaction
		err error
	)
	r.s.read(ctx, func() {
		t, ok := r.s.transactions[transactionID]
		if !ok || t.TenantID != tenantID {
			err = apperror.NewNotFound("transaction", transactionID.String())
			return
		}
		out = copyTransaction(t)
	})
	return out, err
}

// GetForUpdate is GetByID; the transaction already holds the store lock.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, tenantID, transactionID id.ID) (*transaction.Transaction, error) {
	return r.GetByID(ctx, tenantID, transactionID)
}

func (r *TransactionRepo) UpdateHeader(ctx context.Context, t *transaction.Transaction) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.transactions[t.ID]
		if !ok || cur.TenantID != t.TenantID {
			return apperror.NewNotFound("transaction", t.ID.String())
		}
		if cur.Version != t.Version {
			return apperror.NewConcurrentModification("transaction", t.ID.String())
		}
		next := copyTransaction(cur)
		next.Status = t.Status
		next.ReferenceNumber = t.ReferenceNumber
		next.Notes = copyString(t.Notes)
		next.Attributes = t.Attributes.Clone()
		next.UpdatedAt = t.UpdatedAt
		next.Version = cur.Version + 1
		r.s.transactions[t.ID] = next

		t.Version = next.Version
		return nil
	})
}

func copyTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	c.Attributes = t.Attributes.Clone()
	c.Notes = copyString(t.Notes)
	if t.ClientID != nil {
		v := *t.ClientID
		c.ClientID = &v
	}
	if t.ProviderID != nil {
		v := *t.ProviderID
		c.ProviderID = &v
	}
	c.Lines = make([]transaction.Line, len(t.Lines))
	for i, l := range t.Lines {
		l.Attributes = l.Attributes.Clone()
		c.Lines[i] = l
	}
	return &c
}
