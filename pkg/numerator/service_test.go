package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/id"
	corenumerator "ledgercore/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences keyed by (tenant_id, key).
type mockQuerier struct {
	mu   sync.Mutex
	vals map[string]int64
	err  error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{vals: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}

	k := args[0].(id.ID).String() + "|" + args[1].(string)
	if sql == setSQL {
		m.vals[k] = args[2].(int64)
	} else {
		m.vals[k]++
	}
	return &mockRow{val: m.vals[k]}
}

var period = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

func TestNext_Sequential(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()
	tenant := id.New()
	cfg := corenumerator.DefaultConfig("SAL")

	num, err := svc.Next(ctx, tenant, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-00001", num)

	num, err = svc.Next(ctx, tenant, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-00002", num)
}

func TestNext_SeparatesTenantsPrefixesAndYears(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()
	a, b := id.New(), id.New()
	sal := corenumerator.DefaultConfig("SAL")
	pur := corenumerator.DefaultConfig("PUR")

	_, err := svc.Next(ctx, a, sal, period)
	require.NoError(t, err)

	num, err := svc.Next(ctx, b, sal, period)
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-00001", num)

	num, err = svc.Next(ctx, a, pur, period)
	require.NoError(t, err)
	assert.Equal(t, "PUR-2026-00001", num)

	num, err = svc.Next(ctx, a, sal, period.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "SAL-2027-00001", num)
}

func TestSetLast(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()
	tenant := id.New()
	cfg := corenumerator.DefaultConfig("PUR")

	require.NoError(t, svc.SetLast(ctx, tenant, cfg, period, 41))

	num, err := svc.Next(ctx, tenant, cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "PUR-2026-00042", num)

	assert.Error(t, svc.SetLast(ctx, tenant, cfg, period, -1))
}

func TestNext_PropagatesQueryError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := NewFromContext(func(context.Context) Querier { return q })

	_, err := svc.Next(context.Background(), id.New(), corenumerator.DefaultConfig("SAL"), period)
	require.Error(t, err)
	assert.ErrorIs(t, err, q.err)
}

func TestNilService(t *testing.T) {
	var svc *Service
	_, err := svc.Next(context.Background(), id.New(), corenumerator.DefaultConfig("SAL"), period)
	assert.Error(t, err)
}
