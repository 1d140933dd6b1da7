package transaction_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/counterparty"
	"ledgercore/internal/domain/catalogs/product"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/domain/stock"
	"ledgercore/internal/domain/transaction"
	"ledgercore/internal/infrastructure/storage/memory"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

type env struct {
	store    *memory.Store
	svc      *transaction.Service
	tenant   id.ID
	user     id.ID
	client   id.ID
	provider id.ID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	ledger := stock.NewLedger(store.Stock(), stock.DefaultPolicy())

	svc := transaction.NewService(transaction.Deps{
		Repo:      store.Transactions(),
		Products:  store.Products(),
		Clients:   store.Clients(),
		Providers: store.Providers(),
		Ledger:    ledger,
		TxManager: store,
		Numerator: store.Numerator(),
		Publisher: store.Outbox(),
		Audit:     store.Audit(),
	}).WithClock(func() time.Time { return fixedNow })

	e := &env{store: store, svc: svc, tenant: id.New(), user: id.New()}

	c := counterparty.NewClient(e.tenant, "ACME Retail")
	require.NoError(t, store.Clients().Create(context.Background(), c))
	e.client = c.ID

	p := counterparty.NewProvider(e.tenant, "Wholesale Co")
	require.NoError(t, store.Providers().Create(context.Background(), p))
	e.provider = p.ID

	return e
}

func (e *env) product(t *testing.T, tenant id.ID, qty int64, salePrice string) id.ID {
	t.Helper()
	p := product.NewProduct(tenant, "item")
	p.Stock = qty
	p.SalePrice = types.MustMoney(salePrice)
	p.PurchasePrice = types.MustMoney("1.00")
	require.NoError(t, e.store.Products().Create(context.Background(), p))
	return p.ID
}

func (e *env) stockOf(t *testing.T, pid id.ID) int64 {
	t.Helper()
	p, err := e.store.Products().GetByID(context.Background(), e.tenant, pid)
	require.NoError(t, err)
	return p.Stock
}

func (e *env) sale(lines ...transaction.LineInput) transaction.CreateCommand {
	return transaction.CreateCommand{
		TenantID:       e.tenant,
		CreatorUserID:  e.user,
		Type:           transaction.TypeSale,
		CounterpartyID: e.client,
		Lines:          lines,
	}
}

func (e *env) purchase(lines ...transaction.LineInput) transaction.CreateCommand {
	return transaction.CreateCommand{
		TenantID:       e.tenant,
		CreatorUserID:  e.user,
		Type:           transaction.TypePurchase,
		CounterpartyID: e.provider,
		Lines:          lines,
	}
}

func line(pid id.ID, qty int64, price string) transaction.LineInput {
	m := types.MustMoney(price)
	return transaction.LineInput{ProductID: pid, Quantity: qty, UnitPrice: &m}
}

func TestSaleThenCancelRestoresStock(t *testing.T) {
	// GIVEN product P with stock 10
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, e.tenant, 10, "25.00")

	// WHEN selling 3 at 25.00
	tr, err := e.svc.CreateTransaction(ctx, e.sale(line(p, 3, "25.00")))

	// THEN total is 75.00 and stock 7
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, tr.Status)
	assert.True(t, types.MustMoney("75.00").Equal(tr.TotalAmount))
	require.Len(t, tr.Lines, 1)
	assert.True(t, types.MustMoney("75.00").Equal(tr.Lines[0].Subtotal))
	assert.Equal(t, int64(7), e.stockOf(t, p))

	// WHEN cancelling
	cancelled, err := e.svc.ChangeTransactionStatus(ctx, e.tenant, tr.ID, transaction.StatusCancelled)

	// THEN stock is back to 10
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(10), e.stockOf(t, p))

	// AND a second cancel is rejected without touching stock
	_, err = e.svc.ChangeTransactionStatus(ctx, e.tenant, tr.ID, transaction.StatusCancelled)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
	assert.Equal(t, int64(10), e.stockOf(t, p))

	assert.Equal(t, []string{events.TransactionCreated, events.TransactionStatusChanged}, eventTypes(e.store.Events()))
}

func TestPurchaseIncreasesStock(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, e.tenant, 0, "5.00")
	b := e.product(t, e.tenant, 2, "5.00")

	tr, err := e.svc.CreateTransaction(context.Background(), e.purchase(line(a, 4, "2.50"), line(b, 1, "3.10")))

	require.NoError(t, err)
	assert.Equal(t, int64(4), e.stockOf(t, a))
	assert.Equal(t, int64(3), e.stockOf(t, b))
	assert.True(t, types.MustMoney("13.10").Equal(tr.TotalAmount))
	require.NotNil(t, tr.ProviderID)
	assert.Nil(t, tr.ClientID)
	assert.Equal(t, []int{1, 2}, []int{tr.Lines[0].LineNo, tr.Lines[1].LineNo})
}

func TestDuplicateLineProductMovesNothing(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 10, "10.00")

	_, err := e.svc.CreateTransaction(context.Background(), e.sale(line(p, 2, "10.00"), line(p, 1, "10.00")))

	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateLineProduct))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, int64(10), e.stockOf(t, p))
	assert.Empty(t, e.store.Events())
}

func TestValidationOrder(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 10, "10.00")
	missing := id.New()

	inactive := counterparty.NewClient(e.tenant, "Gone Ltd")
	inactive.IsActive = false
	require.NoError(t, e.store.Clients().Create(context.Background(), inactive))

	withCounterparty := func(cmd transaction.CreateCommand, cp id.ID) transaction.CreateCommand {
		cmd.CounterpartyID = cp
		return cmd
	}

	tests := []struct {
		name string
		cmd  transaction.CreateCommand
		code string
	}{
		{
			name: "empty wins over unknown counterparty",
			cmd:  withCounterparty(e.sale(), id.New()),
			code: apperror.CodeEmptyTransaction,
		},
		{
			name: "duplicate wins over unknown counterparty",
			cmd:  withCounterparty(e.sale(line(p, 1, "1"), line(p, 1, "1")), id.New()),
			code: apperror.CodeDuplicateLineProduct,
		},
		{
			name: "counterparty wins over missing product",
			cmd:  withCounterparty(e.sale(line(missing, 1, "1")), id.New()),
			code: apperror.CodeCounterpartyNotFound,
		},
		{
			name: "inactive counterparty",
			cmd:  withCounterparty(e.sale(line(p, 1, "1")), inactive.ID),
			code: apperror.CodeInactiveCounterparty,
		},
		{
			name: "sale cannot reference a provider",
			cmd:  withCounterparty(e.sale(line(p, 1, "1")), e.provider),
			code: apperror.CodeCounterpartyNotFound,
		},
		{
			name: "missing product wins over bad quantity",
			cmd:  e.sale(line(missing, 0, "1")),
			code: apperror.CodeProductNotFound,
		},
		{
			name: "quantity wins over price",
			cmd:  e.sale(line(p, 0, "-1")),
			code: apperror.CodeInvalidQuantity,
		},
		{
			name: "negative quantity",
			cmd:  e.sale(line(p, -2, "1")),
			code: apperror.CodeInvalidQuantity,
		},
		{
			name: "negative price",
			cmd:  e.sale(line(p, 1, "-0.01")),
			code: apperror.CodeInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CreateTransaction(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Equal(t, int64(10), e.stockOf(t, p))
}

func TestProductNotFoundListsEveryMissingID(t *testing.T) {
	e := newEnv(t)
	own := e.product(t, e.tenant, 10, "1.00")
	foreign := e.product(t, id.New(), 10, "1.00")
	unknown := id.New()

	_, err := e.svc.CreateTransaction(context.Background(),
		e.sale(line(own, 1, "1"), line(foreign, 1, "1"), line(unknown, 1, "1")))

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, []string{foreign.String(), unknown.String()}, appErr.Details["missing_product_ids"])
	assert.Equal(t, int64(10), e.stockOf(t, own))
}

func TestInsufficientStockPersistsNothing(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, e.tenant, 5, "1.00")
	b := e.product(t, e.tenant, 1, "1.00")

	_, err := e.svc.CreateTransaction(context.Background(), e.sale(line(a, 2, "1"), line(b, 2, "1")))

	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, int64(5), e.stockOf(t, a))
	assert.Equal(t, int64(1), e.stockOf(t, b))
	assert.Empty(t, e.store.Events())

	// The reference sequence was rolled back with the failed transaction.
	tr, err := e.svc.CreateTransaction(context.Background(), e.sale(line(a, 1, "1")))
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-00001", tr.ReferenceNumber)
}

func TestPendingLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, e.tenant, 10, "2.00")

	cmd := e.sale(line(p, 4, "2.00"))
	cmd.Status = transaction.StatusPending
	tr, err := e.svc.CreateTransaction(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, tr.Status)
	assert.Equal(t, int64(10), e.stockOf(t, p), "pending moves no stock")

	_, err = e.svc.ChangeTransactionStatus(ctx, e.tenant, tr.ID, transaction.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(6), e.stockOf(t, p))

	_, err = e.svc.ChangeTransactionStatus(ctx, e.tenant, tr.ID, transaction.StatusPending)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	_, err = e.svc.ChangeTransactionStatus(ctx, e.tenant, tr.ID, transaction.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(10), e.stockOf(t, p))

	movements, err := e.store.Stock().ListMovements(ctx, e.tenant, p, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, stock.SourceCancellation, movements[0].Source)
	assert.Equal(t, stock.SourceCompletion, movements[1].Source)
	assert.Equal(t, &tr.ID, movements[1].TransactionID)
}

func TestCancelPendingNeverMovesStock(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 1, "2.00")

	cmd := e.sale(line(p, 5, "2.00"))
	cmd.Status = transaction.StatusPending
	tr, err := e.svc.CreateTransaction(context.Background(), cmd)
	require.NoError(t, err)

	_, err = e.svc.ChangeTransactionStatus(context.Background(), e.tenant, tr.ID, transaction.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.stockOf(t, p))
}

func TestCompletingPendingChecksStockAtCompletion(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 1, "2.00")

	cmd := e.sale(line(p, 5, "2.00"))
	cmd.Status = transaction.StatusPending
	tr, err := e.svc.CreateTransaction(context.Background(), cmd)
	require.NoError(t, err)

	_, err = e.svc.ChangeTransactionStatus(context.Background(), e.tenant, tr.ID, transaction.StatusCompleted)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	got, err := e.svc.GetTransaction(context.Background(), e.tenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, got.Status)
}

func TestCancelPurchaseAfterStockWasSold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, e.tenant, 0, "2.00")

	in, err := e.svc.CreateTransaction(ctx, e.purchase(line(p, 3, "1.00")))
	require.NoError(t, err)
	_, err = e.svc.CreateTransaction(ctx, e.sale(line(p, 2, "2.00")))
	require.NoError(t, err)

	_, err = e.svc.ChangeTransactionStatus(ctx, e.tenant, in.ID, transaction.StatusCancelled)

	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, int64(1), e.stockOf(t, p))
}

func TestConcurrentSalesOfLastUnit(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 1, "9.99")

	const buyers = 6
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.CreateTransaction(context.Background(), e.sale(line(p, 1, "9.99")))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			losses = append(losses, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range losses {
		assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	}
	assert.Equal(t, int64(0), e.stockOf(t, p))
}

func TestConcurrentCancelsReverseOnce(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 10, "1.00")
	tr, err := e.svc.CreateTransaction(context.Background(), e.sale(line(p, 4, "1.00")))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.svc.ChangeTransactionStatus(context.Background(), e.tenant, tr.ID, transaction.StatusCancelled)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), e.stockOf(t, p))
}

func TestDefaults(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, e.tenant, 10, "4.20")

	// No unit price: the product's sale price is captured.
	first, err := e.svc.CreateTransaction(ctx, e.sale(transaction.LineInput{ProductID: p, Quantity: 2}))
	require.NoError(t, err)
	assert.True(t, types.MustMoney("4.20").Equal(first.Lines[0].UnitPrice))
	assert.True(t, types.MustMoney("8.40").Equal(first.TotalAmount))
	assert.Equal(t, fixedNow, first.Date)
	assert.Equal(t, transaction.StatusCompleted, first.Status)
	assert.Equal(t, "SAL-2026-00001", first.ReferenceNumber)

	second, err := e.svc.CreateTransaction(ctx, e.sale(line(p, 1, "1")))
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-00002", second.ReferenceNumber)

	purchase, err := e.svc.CreateTransaction(ctx, e.purchase(line(p, 1, "1")))
	require.NoError(t, err)
	assert.Equal(t, "PUR-2026-00001", purchase.ReferenceNumber)

	explicit := e.sale(line(p, 1, "1"))
	explicit.ReferenceNumber = "INV-77"
	date := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	explicit.Date = &date
	third, err := e.svc.CreateTransaction(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, "INV-77", third.ReferenceNumber)
	assert.Equal(t, date, third.Date)
}

func TestTotalsRoundPerLine(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, e.tenant, 0, "1")
	b := e.product(t, e.tenant, 0, "1")
	c := e.product(t, e.tenant, 0, "1")

	tr, err := e.svc.CreateTransaction(context.Background(),
		e.purchase(line(a, 1, "0.125"), line(b, 3, "0.333"), line(c, 7, "19.99")))

	require.NoError(t, err)
	assert.Equal(t, "0.13", tr.Lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "1.00", tr.Lines[1].Subtotal.StringFixed(2))
	assert.Equal(t, "139.93", tr.Lines[2].Subtotal.StringFixed(2))
	assert.Equal(t, "141.06", tr.TotalAmount.StringFixed(2))
	assert.NoError(t, tr.Verify())
}

func TestVerify_DetectsTamperedTotals(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, e.tenant, 0, "1")
	b := e.product(t, e.tenant, 0, "1")

	tr, err := e.svc.CreateTransaction(context.Background(),
		e.purchase(line(a, 2, "1.50"), line(b, 1, "0.25")))
	require.NoError(t, err)
	require.NoError(t, tr.Verify())

	tr.TotalAmount = types.MustMoney("3.24")
	err = tr.Verify()
	require.True(t, apperror.HasCode(err, apperror.CodeInconsistentTotal))

	tr.TotalAmount = types.MustMoney("3.25")
	tr.Lines[1].Subtotal = types.MustMoney("0.26")
	err = tr.Verify()
	require.True(t, apperror.HasCode(err, apperror.CodeInconsistentTotal))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, tr.Lines[1].LineNo, appErr.Details["line_no"])
}

func TestGetTransaction_OtherTenantIsNotFound(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, e.tenant, 10, "1.00")
	tr, err := e.svc.CreateTransaction(context.Background(), e.sale(line(p, 1, "1")))
	require.NoError(t, err)

	_, err = e.svc.GetTransaction(context.Background(), id.New(), tr.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = e.svc.ChangeTransactionStatus(context.Background(), id.New(), tr.ID, transaction.StatusCancelled)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, int64(9), e.stockOf(t, p))

	got, err := e.svc.GetTransaction(context.Background(), e.tenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ReferenceNumber, got.ReferenceNumber)
	assert.Len(t, got.Lines, 1)
}

func TestUpdateTransactionDetails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, e.tenant, 10, "1.00")
	cmd := e.sale(line(p, 1, "1"))
	cmd.Attributes = entity.Attributes{"channel": "web", "promo": "SPRING"}
	tr, err := e.svc.CreateTransaction(ctx, cmd)
	require.NoError(t, err)

	notes := "delivered to back door"
	ref := "ORDER-991"
	updated, err := e.svc.UpdateTransactionDetails(ctx, transaction.UpdateDetailsCommand{
		TenantID:        e.tenant,
		TransactionID:   tr.ID,
		ExpectedVersion: &tr.Version,
		Notes:           &notes,
		ReferenceNumber: &ref,
		Attributes:      entity.Attributes{"promo": nil, "gift": true},
	})
	require.NoError(t, err)
	assert.Equal(t, notes, *updated.Notes)
	assert.Equal(t, ref, updated.ReferenceNumber)
	assert.Equal(t, entity.Attributes{"channel": "web", "gift": true}, updated.Attributes)
	assert.Equal(t, tr.Version+1, updated.Version)
	assert.True(t, tr.TotalAmount.Equal(updated.TotalAmount))

	stale := tr.Version
	_, err = e.svc.UpdateTransactionDetails(ctx, transaction.UpdateDetailsCommand{
		TenantID:        e.tenant,
		TransactionID:   tr.ID,
		ExpectedVersion: &stale,
		Notes:           &notes,
	})
	assert.True(t, apperror.IsConcurrentModification(err))

	entries := e.store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, tr.ID, entries[0].EntityID)
}

func TestVerifyTransaction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.product(t, e.tenant, 10, "1.00")

	good, err := e.svc.CreateTransaction(ctx, e.sale(line(p, 2, "3.00")))
	require.NoError(t, err)
	assert.NoError(t, e.svc.VerifyTransaction(ctx, e.tenant, good.ID))

	// A record written around the service with a wrong total.
	bad := *good
	bad.ID = id.New()
	bad.TotalAmount = types.MustMoney("7.00")
	bad.Lines = append([]transaction.Line(nil), good.Lines...)
	require.NoError(t, e.store.Transactions().Create(ctx, &bad))

	err = e.svc.VerifyTransaction(ctx, e.tenant, bad.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInconsistentTotal))

	// GetTransaction still returns it.
	got, err := e.svc.GetTransaction(ctx, e.tenant, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, "7.00", got.TotalAmount.StringFixed(2))
}

func eventTypes(evs []events.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
