package repomanager

import (
	"context"
	"database/sql"

	"github.com/luvhive/backend/internal/dbx"
	"github.com/luvhive/backend/internal/server/repositories/accounts"
	"github.com/luvhive/backend/internal/server/repositories/payments"
)

// RepositoryManager hands out repositories bound to a plain connection or to
// a transaction handle, so services can compose repo calls atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Payments(db dbx.DBTX) payments.Repository
}
