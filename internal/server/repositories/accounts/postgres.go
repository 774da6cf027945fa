package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/dbx"
	"github.com/luvhive/backend/internal/server/models"
)

const uniqueViolationCode = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, external_auth_id, email, password_hash, display_name, username, photo_url,
	       created_at, last_seen_at, is_premium, premium_until`

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var externalID sql.NullInt64
	var passwordHash sql.NullString
	var premiumUntil sql.NullTime

	err := row.Scan(&a.ID, &externalID, &a.Email, &passwordHash, &a.DisplayName, &a.Username,
		&a.PhotoURL, &a.CreatedAt, &a.LastSeenAt, &a.IsPremium, &premiumUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if externalID.Valid {
		a.ExternalAuthID = &externalID.Int64
	}
	if passwordHash.Valid {
		a.PasswordHash = passwordHash.String
	}
	if premiumUntil.Valid {
		t := premiumUntil.Time
		a.PremiumUntil = &t
	}

	return a, nil
}

// Create inserts a new account. A unique-key violation on external_auth_id or
// email is reported as common.ErrorAlreadyExists so concurrent first logins
// can reload the winning row instead of failing.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (external_auth_id, email, password_hash, display_name, username, photo_url)
	     VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, last_seen_at
		 `

	var externalID sql.NullInt64
	if account.ExternalAuthID != nil {
		externalID = sql.NullInt64{Int64: *account.ExternalAuthID, Valid: true}
	}
	var passwordHash sql.NullString
	if account.PasswordHash != "" {
		passwordHash = sql.NullString{String: account.PasswordHash, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		externalID, account.Email, passwordHash, account.DisplayName, account.Username, account.PhotoURL).
		Scan(&account.ID, &account.CreatedAt, &account.LastSeenAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_auth_id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, externalID))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// TouchLastSeen refreshes the profile fields carried by the login claim and
// bumps last_seen_at. Profile fields are only overwritten with non-empty values.
func (r *PostgresRepository) TouchLastSeen(ctx context.Context, id string, displayName, username, photoURL string) error {
	query :=
		`UPDATE accounts
		 SET last_seen_at = now(),
		     display_name = COALESCE(NULLIF($2, ''), display_name),
		     username = COALESCE(NULLIF($3, ''), username),
		     photo_url = COALESCE(NULLIF($4, ''), photo_url)
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, displayName, username, photoURL)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ExtendPremium stacks days on top of the remaining premium time: the new
// expiry is max(premium_until, now) + days, computed atomically in SQL.
func (r *PostgresRepository) ExtendPremium(ctx context.Context, id string, days int) (time.Time, error) {
	query :=
		`UPDATE accounts
		 SET is_premium = true,
		     premium_until = GREATEST(COALESCE(premium_until, now()), now()) + make_interval(days => $2)
		 WHERE id = $1
		 RETURNING premium_until
		 `

	var until time.Time
	err := r.db.QueryRowContext(ctx, query, id, days).Scan(&until)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}

	return until, nil
}
