package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/dbx"
	"github.com/luvhive/backend/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// TryInsert relies on the unique index on charge_id: ON CONFLICT DO NOTHING
// returns no row for a duplicate, which callers treat as "already processed".
func (r *PostgresRepository) TryInsert(ctx context.Context, record *models.PaymentRecord) (bool, error) {

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO payments (id, charge_id, user_id, amount, currency, product_type, duration_days, status)
	     VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (charge_id) DO NOTHING
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		record.ID, record.ChargeID, record.UserID, record.Amount, record.Currency,
		record.ProductType, record.DurationDays, string(record.Status)).Scan(&record.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return true, nil
}

func (r *PostgresRepository) GetByChargeID(ctx context.Context, chargeID string) (*models.PaymentRecord, error) {
	query :=
		`SELECT id, charge_id, user_id, amount, currency, product_type, duration_days, status, expires_at, created_at
		 FROM payments
		 WHERE charge_id = $1
		 `

	record := &models.PaymentRecord{}
	var status string
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, chargeID).Scan(
		&record.ID, &record.ChargeID, &record.UserID, &record.Amount, &record.Currency,
		&record.ProductType, &record.DurationDays, &status, &expiresAt, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	record.Status = models.PaymentStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		record.ExpiresAt = &t
	}

	return record, nil
}

func (r *PostgresRepository) SetExpiresAt(ctx context.Context, chargeID string, expiresAt time.Time) error {
	query := `UPDATE payments SET expires_at = $2 WHERE charge_id = $1`

	res, err := r.db.ExecContext(ctx, query, chargeID, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
