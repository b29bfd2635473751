package ports

import "context"

// Tx is an opaque transaction handle. The storage adapter decides the
// concrete type (*gorm.DB for SQLite).
type Tx interface{}

// UnitOfWork runs fn in one transaction: an error rolls back, nil commits.
// Repository calls made with the ctx handed to fn join the transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the handle stored by WithTxContext, or nil.
func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
