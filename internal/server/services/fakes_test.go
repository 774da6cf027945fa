package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/dbx"
	"github.com/luvhive/backend/internal/logging"
	"github.com/luvhive/backend/internal/server/models"
	"github.com/luvhive/backend/internal/server/profiles"
	accountsrepo "github.com/luvhive/backend/internal/server/repositories/accounts"
	paymentsrepo "github.com/luvhive/backend/internal/server/repositories/payments"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeAccountsRepo keeps one account in memory and implements the stacking
// semantics of ExtendPremium the way the SQL does.
type fakeAccountsRepo struct {
	account *models.Account

	createErr  error
	getErr     error
	extendErr  error
	touchCalls int

	// getNotFoundOnce makes the first lookup miss, simulating a lost create race
	getNotFoundOnce bool
}

func (f *fakeAccountsRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = "acc-1"
	a.CreatedAt = time.Now()
	a.LastSeenAt = a.CreatedAt
	f.account = a
	return a, nil
}

func (f *fakeAccountsRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if f.account == nil || f.account.ID != id {
		return nil, common.ErrorNotFound
	}
	return f.account, nil
}

func (f *fakeAccountsRepo) GetByExternalID(ctx context.Context, externalID int64) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getNotFoundOnce {
		f.getNotFoundOnce = false
		return nil, common.ErrorNotFound
	}
	if f.account == nil || f.account.ExternalAuthID == nil || *f.account.ExternalAuthID != externalID {
		return nil, common.ErrorNotFound
	}
	return f.account, nil
}

func (f *fakeAccountsRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if f.account == nil || f.account.Email != email {
		return nil, common.ErrorNotFound
	}
	return f.account, nil
}

func (f *fakeAccountsRepo) TouchLastSeen(ctx context.Context, id string, displayName, username, photoURL string) error {
	f.touchCalls++
	return nil
}

func (f *fakeAccountsRepo) ExtendPremium(ctx context.Context, id string, days int) (time.Time, error) {
	if f.extendErr != nil {
		return time.Time{}, f.extendErr
	}
	if f.account == nil || f.account.ID != id {
		return time.Time{}, common.ErrorNotFound
	}
	base := time.Now()
	if f.account.PremiumUntil != nil && f.account.PremiumUntil.After(base) {
		base = *f.account.PremiumUntil
	}
	until := base.AddDate(0, 0, days)
	f.account.IsPremium = true
	f.account.PremiumUntil = &until
	return until, nil
}

// fakePaymentsRepo is an in-memory append-only charge table.
type fakePaymentsRepo struct {
	records map[string]*models.PaymentRecord

	insertErr error
	getErr    error

	// getNotFoundOnce makes the first lookup miss, simulating a charge that
	// lands between the idempotency pre-check and the insert
	getNotFoundOnce bool
}

func newFakePaymentsRepo() *fakePaymentsRepo {
	return &fakePaymentsRepo{records: map[string]*models.PaymentRecord{}}
}

func (f *fakePaymentsRepo) TryInsert(ctx context.Context, record *models.PaymentRecord) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.records[record.ChargeID]; ok {
		return false, nil
	}
	record.ID = "pay-" + record.ChargeID
	record.CreatedAt = time.Now()
	f.records[record.ChargeID] = record
	return true, nil
}

func (f *fakePaymentsRepo) GetByChargeID(ctx context.Context, chargeID string) (*models.PaymentRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getNotFoundOnce {
		f.getNotFoundOnce = false
		return nil, common.ErrorNotFound
	}
	record, ok := f.records[chargeID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return record, nil
}

func (f *fakePaymentsRepo) SetExpiresAt(ctx context.Context, chargeID string, expiresAt time.Time) error {
	record, ok := f.records[chargeID]
	if !ok {
		return common.ErrorNotFound
	}
	record.ExpiresAt = &expiresAt
	return nil
}

type fakeRepoManager struct {
	a *fakeAccountsRepo
	p *fakePaymentsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository { return m.a }
func (m *fakeRepoManager) Payments(db dbx.DBTX) paymentsrepo.Repository { return m.p }

// fakeProfileStore records calls and optionally fails.
type fakeProfileStore struct {
	upserts      []*profiles.Document
	premiumFlags map[int64]bool

	upsertErr error
	setErr    error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{premiumFlags: map[int64]bool{}}
}

func (f *fakeProfileStore) Upsert(ctx context.Context, doc *profiles.Document) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, doc)
	return nil
}

func (f *fakeProfileStore) SetPremiumFlag(ctx context.Context, externalID int64, premium bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.premiumFlags[externalID] = premium
	return nil
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
