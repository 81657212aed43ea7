package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DBTxKey is the context key under which an open transaction is stored.
const DBTxKey contextKey = "db_tx"

// WithTx begins a transaction on the tenant-scoped connection and returns a
// derived context carrying it. Repositories pick the transaction up via
// TxFromContext so that multi-step operations commit or roll back together.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, fmt.Errorf("no tenant connection in context")
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}

	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// TxFromContext retrieves the open transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}
