package stock_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/infrastructure/storage/memory"
)

type fixture struct {
	store  *memory.Store
	ledger *stock.Ledger
	tenant id.ID
}

func newFixture(t *testing.T, policy stock.Policy) *fixture {
	t.Helper()
	store := memory.New()
	return &fixture{
		store:  store,
		ledger: stock.NewLedger(store.Stock(), policy),
		tenant: id.New(),
	}
}

func (f *fixture) product(t *testing.T, tenant id.ID, qty int64) id.ID {
	t.Helper()
	p := product.NewProduct(tenant, "widget")
	p.Stock = qty
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p.ID
}

func (f *fixture) stockOf(t *testing.T, pid id.ID) int64 {
	t.Helper()
	lvl, err := f.store.Stock().GetLevel(context.Background(), f.tenant, pid)
	require.NoError(t, err)
	return lvl.Stock
}

func (f *fixture) apply(deltas ...stock.Delta) (map[id.ID]int64, error) {
	var out map[id.ID]int64
	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		out, err = f.ledger.ApplyDeltas(ctx, f.tenant, deltas, stock.Origin{Source: stock.SourceAdjustment})
		return err
	})
	return out, err
}

func TestApplyDeltas_AppliesBatch(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 10)
	b := f.product(t, f.tenant, 0)

	levels, err := f.apply(stock.Delta{ProductID: a, Quantity: -3}, stock.Delta{ProductID: b, Quantity: 5})

	require.NoError(t, err)
	assert.Equal(t, int64(7), levels[a])
	assert.Equal(t, int64(5), levels[b])
	assert.Equal(t, int64(7), f.stockOf(t, a))
	assert.Equal(t, int64(5), f.stockOf(t, b))
}

func TestApplyDeltas_AllOrNothing(t *testing.T) {
	// GIVEN one product with enough stock and one without
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 10)
	b := f.product(t, f.tenant, 1)

	// WHEN a batch needs more of b than exists
	_, err := f.apply(stock.Delta{ProductID: a, Quantity: -3}, stock.Delta{ProductID: b, Quantity: -2})

	// THEN nothing moves and the error names b
	require.Error(t, err)
	assert.Equal(t, apperror.KindIntegrity, apperror.KindOf(err))
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, b.String(), appErr.Details["product_id"])

	assert.Equal(t, int64(10), f.stockOf(t, a))
	assert.Equal(t, int64(1), f.stockOf(t, b))

	movements, err := f.store.Stock().ListMovements(context.Background(), f.tenant, a, 10)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestApplyDeltas_MissingAndForeignProductsAreNotFound(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	own := f.product(t, f.tenant, 5)
	foreign := f.product(t, id.New(), 5)
	unknown := id.New()

	_, err := f.apply(
		stock.Delta{ProductID: own, Quantity: 1},
		stock.Delta{ProductID: foreign, Quantity: 1},
		stock.Delta{ProductID: unknown, Quantity: 1},
	)

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	appErr, _ := apperror.AsAppError(err)
	assert.ElementsMatch(t, []string{foreign.String(), unknown.String()}, appErr.Details["missing_product_ids"])
	assert.Equal(t, int64(5), f.stockOf(t, own))
}

func TestApplyDeltas_RejectsZeroDelta(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 5)

	_, err := f.apply(stock.Delta{ProductID: a, Quantity: 0})

	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
}

func TestApplyDeltas_RejectsOverflow(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 5)

	_, err := f.apply(stock.Delta{ProductID: a, Quantity: math.MaxInt64})

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, int64(5), f.stockOf(t, a))
}

func TestApplyDeltas_RejectsOverflowingBatchSum(t *testing.T) {
	f := newFixture(t, stock.Policy{Guard: stock.AllowOversell()})
	a := f.product(t, f.tenant, 0)

	_, err := f.apply(
		stock.Delta{ProductID: a, Quantity: math.MinInt64},
		stock.Delta{ProductID: a, Quantity: -1},
	)

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, int64(0), f.stockOf(t, a))
}

func TestApplyDeltas_ShortageOfMinInt64(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 0)

	_, err := f.apply(stock.Delta{ProductID: a, Quantity: math.MinInt64})

	require.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, int64(math.MaxInt64), appErr.Details["requested"])
}

func TestApplyDeltas_InactiveProduct(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 5)
	require.NoError(t, f.store.Products().SetActive(context.Background(), f.tenant, a, false))

	_, err := f.apply(stock.Delta{ProductID: a, Quantity: -1})
	assert.True(t, apperror.HasCode(err, apperror.CodeInactiveProduct))

	// Reversals always go through.
	err = f.store.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, err := f.ledger.ApplyDelta(ctx, f.tenant, a, 1, stock.Origin{Source: stock.SourceCancellation})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), f.stockOf(t, a))
}

func TestApplyDeltas_AllowOversell(t *testing.T) {
	f := newFixture(t, stock.Policy{Guard: stock.AllowOversell()})
	a := f.product(t, f.tenant, 1)

	levels, err := f.apply(stock.Delta{ProductID: a, Quantity: -3})

	require.NoError(t, err)
	assert.Equal(t, int64(-2), levels[a])
}

func TestApplyDeltas_JournalsMovements(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 10)

	_, err := f.apply(stock.Delta{ProductID: a, Quantity: -4})
	require.NoError(t, err)
	_, err = f.apply(stock.Delta{ProductID: a, Quantity: 2})
	require.NoError(t, err)

	movements, err := f.store.Stock().ListMovements(context.Background(), f.tenant, a, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, int64(2), movements[0].Delta)
	assert.Equal(t, int64(8), movements[0].StockAfter)
	assert.Equal(t, int64(-4), movements[1].Delta)
	assert.Equal(t, int64(6), movements[1].StockAfter)
	assert.Equal(t, stock.SourceAdjustment, movements[1].Source)
}

func TestApplyDeltas_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	a := f.product(t, f.tenant, 1)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.apply(stock.Delta{ProductID: a, Quantity: -1}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(0), f.stockOf(t, a))
}
