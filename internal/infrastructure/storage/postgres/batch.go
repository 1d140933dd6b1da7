package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol. Cheaper than
// individual INSERTs once a statement carries more than a handful of rows.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice inserts rows into table. Each row holds values in column order.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// Rows converts items to COPY rows using the "db" tags of T, in the order of columns.
func Rows[T any](items []T, columns []string) [][]any {
	out := make([][]any, len(items))
	for i := range items {
		m := StructToMap(&items[i])
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = m[col]
		}
		out[i] = row
	}
	return out
}
