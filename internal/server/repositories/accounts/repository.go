package accounts

import (
	"context"
	"time"

	"github.com/luvhive/backend/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	TouchLastSeen(ctx context.Context, id string, displayName, username, photoURL string) error
	ExtendPremium(ctx context.Context, id string, days int) (time.Time, error)
}
