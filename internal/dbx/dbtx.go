// Package dbx holds the small database plumbing shared by the repositories:
// DBTX, the query subset satisfied by both *sql.DB and *sql.Tx, and WithTx,
// the transaction wrapper the services use to compose repository calls
// atomically (e.g. payment insert + premium extension).
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is what repositories query against. The repomanager binds a repository
// either to the pooled connection or to an open transaction; the repository
// code is identical in both cases.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil, rollback
// when it returns an error or panics. Panics are rethrown after rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := repos.Payments(tx).SetExpiresAt(ctx, chargeID, expiresAt); err != nil {
//	        return err
//	    }
//	    return nil
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
