// Package memory is an in-process implementation of every ledger repository.
// A transaction holds the store-wide lock and restores a snapshot on error,
// so writers are fully serialized. Used by tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/idempotency"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/domain/audit"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/domain/transaction"
)

// Store holds all tables.
type Store struct {
	mu sync.Mutex

	products     map[id.ID]*product.Product
	clients      map[id.ID]*counterparty.Client
	providers    map[id.ID]*counterparty.Provider
	transactions map[id.ID]*transaction.Transaction
	movements    []stock.Movement
	sequences    map[string]int64
	outbox       []events.Event
	auditLog     []audit.Entry
	idempotency  map[string]*idempotencyRecord

	retry tx.RetryPolicy
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products:     make(map[id.ID]*product.Product),
		clients:      make(map[id.ID]*counterparty.Client),
		providers:    make(map[id.ID]*counterparty.Provider),
		transactions: make(map[id.ID]*transaction.Transaction),
		sequences:    make(map[string]int64),
		idempotency:  make(map[string]*idempotencyRecord),
		retry:        tx.DefaultRetryPolicy(),
		now:          time.Now,
	}
}

type txKey struct{}

// inTx reports whether ctx already holds this store's lock.
func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// read runs fn under the lock unless ctx is inside a transaction of s.
func (s *Store) read(ctx context.Context, fn func()) {
	if s.inTx(ctx) {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// write is read for single-statement writes outside a transaction.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// RunInTransaction implements tx.Manager. Nested calls reuse the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	return tx.Retry(ctx, s.retry, apperror.IsConcurrentModification, nil, func(ctx context.Context) error {
		return s.runOnce(ctx, fn)
	})
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// Stored values are never mutated in place, so copying the maps is a full snapshot.
type snapshot struct {
	products     map[id.ID]*product.Product
	clients      map[id.ID]*counterparty.Client
	providers    map[id.ID]*counterparty.Provider
	transactions map[id.ID]*transaction.Transaction
	movements    int
	sequences    map[string]int64
	outbox       int
	auditLog     int
	idempotency  map[string]*idempotencyRecord
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		products:     cloneMap(s.products),
		clients:      cloneMap(s.clients),
		providers:    cloneMap(s.providers),
		transactions: cloneMap(s.transactions),
		movements:    len(s.movements),
		sequences:    cloneMap(s.sequences),
		outbox:       len(s.outbox),
		auditLog:     len(s.auditLog),
		idempotency:  cloneMap(s.idempotency),
	}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.clients = snap.clients
	s.providers = snap.providers
	s.transactions = snap.transactions
	s.movements = s.movements[:snap.movements]
	s.sequences = snap.sequences
	s.outbox = s.outbox[:snap.outbox]
	s.auditLog = s.auditLog[:snap.auditLog]
	s.idempotency = snap.idempotency
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// Events returns a copy of the outbox.
func (s *Store) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.outbox...)
}

// AuditEntries returns a copy of the audit log.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.auditLog...)
}

var (
	_ tx.ReadOnlyManager              = (*Store)(nil)
	_ idempotency.Store               = (*IdempotencyStore)(nil)
	_ events.Publisher                = (*Outbox)(nil)
	_ audit.Recorder                  = (*AuditLog)(nil)
	_ product.Repository              = (*ProductRepo)(nil)
	_ stock.Repository                = (*StockRepo)(nil)
	_ transaction.Repository          = (*TransactionRepo)(nil)
	_ counterparty.ClientRepository   = (*ClientRepo)(nil)
	_ counterparty.ProviderRepository = (*ProviderRepo)(nil)
)
