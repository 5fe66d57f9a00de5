package services

import "context"

// Transactor runs fn atomically. Implementations nest calls as savepoints.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// directRunner runs fn without a transaction.
type directRunner struct{}

func (directRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func transactorOrDirect(tx Transactor) (Transactor, bool) {
	if tx == nil {
		return directRunner{}, false
	}
	return tx, true
}
