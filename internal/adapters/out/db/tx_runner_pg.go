// internal/adapters/out/db/tx_runner_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"

	dbcommon "storefront/internal/adapters/out/db/common"
	uc "storefront/internal/application/usecase"
)

// TxRunnerPG puts a *sql.Tx into ctx for the repositories of this package.
type TxRunnerPG struct {
	DB *sql.DB
}

func NewTxRunnerPG(db *sql.DB) *TxRunnerPG {
	return &TxRunnerPG{DB: db}
}

var _ uc.TxRunner = (*TxRunnerPG)(nil)

func (r *TxRunnerPG) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.DB == nil {
		return errors.New("tx_runner_pg: db is nil")
	}
	return dbcommon.WithTx(ctx, r.DB, fn)
}
