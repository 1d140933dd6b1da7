// Package storage opens the configured storage backend and exposes its
// repositories behind the domain interfaces.
package storage

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/config"
	"ledgercore/internal/core/idempotency"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/domain/audit"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/domain/transaction"
	"ledgercore/internal/infrastructure/storage/codec"
	"ledgercore/internal/infrastructure/storage/postgres"
	"ledgercore/internal/infrastructure/storage/postgres/catalog_repo"
	"ledgercore/internal/infrastructure/storage/postgres/document_repo"
	"ledgercore/internal/infrastructure/storage/postgres/register_repo"
	"ledgercore/internal/infrastructure/storage/sqlite"
	pgnumerator "ledgercore/pkg/numerator"
)

// IdempotencyStore is an idempotency.Store that can purge expired keys.
type IdempotencyStore interface {
	idempotency.Store
	CleanupExpired(ctx context.Context) (int64, error)
}

// Backend is an opened storage engine.
type Backend struct {
	Driver string

	TxManager    tx.Manager
	Products     product.Repository
	Clients      counterparty.ClientRepository
	Providers    counterparty.ProviderRepository
	Stock        stock.Repository
	Transactions transaction.Repository
	Numerator    numerator.Generator
	Publisher    events.Publisher
	Audit        audit.Recorder
	Idempotency  IdempotencyStore

	ping  func(ctx context.Context) error
	relay func(batchSize int, handler events.Handler) events.Relay
	close func()
}

// Open connects to the database named by cfg and makes sure its schema exists.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	auditCodec, err := codec.New(codec.DefaultThreshold)
	if err != nil {
		return nil, fmt.Errorf("audit codec: %w", err)
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, auditCodec)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg, auditCodec)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, auditCodec *codec.Codec) (*Backend, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	postgres.LogPoolStats(ctx, pool)

	opts := postgres.DefaultTxOptions()
	opts.StatementTimeout = cfg.Database.StatementTimeout
	txm := postgres.NewTxManager(pool).WithOptions(opts).WithRetryPolicy(cfg.Retry)

	return &Backend{
		Driver:       config.DriverPostgres,
		TxManager:    txm,
		Products:     catalog_repo.NewProductRepo(txm),
		Clients:      catalog_repo.NewClientRepo(txm),
		Providers:    catalog_repo.NewProviderRepo(txm),
		Stock:        register_repo.NewStockRepo(txm),
		Transactions: document_repo.NewTransactionRepo(txm),
		Numerator: pgnumerator.NewFromContext(func(ctx context.Context) pgnumerator.Querier {
			return txm.GetQuerier(ctx)
		}),
		Publisher:   postgres.NewOutboxPublisher(txm),
		Audit:       postgres.NewAuditLog(txm, auditCodec),
		Idempotency: postgres.NewIdempotencyStore(txm, idempotency.DefaultTTL),

		ping: pool.Ping,
		relay: func(batchSize int, handler events.Handler) events.Relay {
			return postgres.NewOutboxRelay(txm, batchSize, handler)
		},
		close: pool.Close,
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, auditCodec *codec.Codec) (*Backend, error) {
	store, err := sqlite.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	store = store.WithRetryPolicy(cfg.Retry)

	return &Backend{
		Driver:       config.DriverSQLite,
		TxManager:    store,
		Products:     store.Products(),
		Clients:      store.Clients(),
		Providers:    store.Providers(),
		Stock:        store.Stock(),
		Transactions: store.Transactions(),
		Numerator:    store.Numerator(),
		Publisher:    store.Outbox(),
		Audit:        store.Audit(auditCodec),
		Idempotency:  store.Idempotency(idempotency.DefaultTTL),

		ping: store.Ping,
		relay: func(batchSize int, handler events.Handler) events.Relay {
			return store.Relay(batchSize, handler)
		},
		close: func() { _ = store.Close() },
	}, nil
}

// Ping checks the database connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Relay returns an outbox relay delivering batches of batchSize to handler.
func (b *Backend) Relay(batchSize int, handler events.Handler) events.Relay {
	return b.relay(batchSize, handler)
}

// Close releases the database.
func (b *Backend) Close() {
	b.close()
}

// RunCleanup purges expired idempotency keys every interval until ctx ends.
func (b *Backend) RunCleanup(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.Idempotency.CleanupExpired(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
