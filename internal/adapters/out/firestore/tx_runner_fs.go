// internal/adapters/out/firestore/tx_runner_fs.go
package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	uc "storefront/internal/application/usecase"
)

type txKey struct{}

// TxRunnerFS runs fn inside a Firestore transaction.
// Repositories of this package pick the transaction up from ctx.
//
// Firestore requires reads before writes in a transaction; the offer commit only writes.
type TxRunnerFS struct {
	Client *firestore.Client
}

func NewTxRunnerFS(client *firestore.Client) *TxRunnerFS {
	return &TxRunnerFS{Client: client}
}

var _ uc.TxRunner = (*TxRunnerFS)(nil)

func (r *TxRunnerFS) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.Client == nil {
		return errors.New("tx_runner_fs: firestore client is nil")
	}
	if txFromCtx(ctx) != nil {
		return fn(ctx)
	}
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func txFromCtx(ctx context.Context) *firestore.Transaction {
	if v := ctx.Value(txKey{}); v != nil {
		if tx, ok := v.(*firestore.Transaction); ok {
			return tx
		}
	}
	return nil
}
