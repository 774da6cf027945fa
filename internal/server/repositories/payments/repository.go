package payments

import (
	"context"
	"time"

	"github.com/luvhive/backend/internal/server/models"
)

type Repository interface {
	// TryInsert inserts the record and reports whether a row was actually
	// written. false means a record with the same charge id already exists.
	TryInsert(ctx context.Context, record *models.PaymentRecord) (bool, error)
	GetByChargeID(ctx context.Context, chargeID string) (*models.PaymentRecord, error)
	SetExpiresAt(ctx context.Context, chargeID string, expiresAt time.Time) error
}
