package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/dbx"
	"github.com/luvhive/backend/internal/logging"
	"github.com/luvhive/backend/internal/server/config"
	"github.com/luvhive/backend/internal/server/models"
	"github.com/luvhive/backend/internal/server/profiles"
	"github.com/luvhive/backend/internal/server/repositories/repomanager"
)

// payloadPrefix marks premium products in invoice payloads ("premium_week").
const payloadPrefix = "premium_"

// errDuplicateCharge aborts the activation transaction when another
// notification for the same charge already won the insert race.
var errDuplicateCharge = errors.New("duplicate charge")

// ActivationResult reports the outcome of one payment notification.
// Activated is false when the charge had already been applied; ExpiresAt then
// carries the expiry computed by the original activation.
type ActivationResult struct {
	Activated    bool
	DurationDays int
	ExpiresAt    time.Time
}

// Activation describes one successful payment notification.
type Activation struct {
	UserID     string
	ExternalID int64 // Telegram id keying the secondary profile store; 0 skips the sync
	ChargeID   string
	Amount     int64
	Currency   string
	Payload    string // raw invoice payload, e.g. "premium_6months"
}

// PremiumService reconciles successful payment notifications into premium
// status across the relational store (authoritative) and the profile document
// store (best-effort, repaired by an external reconciliation sweep).
type PremiumService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	profiles    profiles.Store
	logger      logging.Logger
	config      *config.Config
}

func NewPremiumService(db *sql.DB, m repomanager.RepositoryManager, profileStore profiles.Store,
	logger logging.Logger, cfg *config.Config) *PremiumService {
	return &PremiumService{
		db:          db,
		repomanager: m,
		profiles:    profileStore,
		logger:      logger.With("module", "premium"),
		config:      cfg,
	}
}

// Activate durably marks the user premium for the purchased duration.
//
// The call is idempotent per charge id: replays return the original expiry
// with Activated=false. The payment record insert and the premium extension
// happen in one transaction; the unique index on charge_id arbitrates
// concurrent notifications for the same charge. The secondary profile sync
// runs only after the primary commit and never fails the activation.
func (s *PremiumService) Activate(ctx context.Context, a Activation) (*ActivationResult, error) {

	// fast path for replayed notifications
	existing, err := s.repomanager.Payments(s.db).GetByChargeID(ctx, a.ChargeID)
	if err == nil && existing.Status == models.PaymentStatusCompleted {
		return resultFromRecord(existing), nil
	}
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking charge: %w", err)
	}

	plan, days := s.resolveDuration(ctx, a)

	productType := "unknown"
	if plan != nil {
		productType = plan.Token
	}

	var expiresAt time.Time
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		paymentsTx := s.repomanager.Payments(tx)

		inserted, err := paymentsTx.TryInsert(ctx, &models.PaymentRecord{
			ChargeID:     a.ChargeID,
			UserID:       a.UserID,
			Amount:       a.Amount,
			Currency:     a.Currency,
			ProductType:  productType,
			DurationDays: days,
			Status:       models.PaymentStatusCompleted,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errDuplicateCharge
		}

		expiresAt, err = s.repomanager.Accounts(tx).ExtendPremium(ctx, a.UserID, days)
		if err != nil {
			return err
		}

		return paymentsTx.SetExpiresAt(ctx, a.ChargeID, expiresAt)
	})

	if errors.Is(err, errDuplicateCharge) {
		record, err := s.repomanager.Payments(s.db).GetByChargeID(ctx, a.ChargeID)
		if err != nil {
			return nil, fmt.Errorf("error reloading charge: %w", err)
		}
		return resultFromRecord(record), nil
	}
	if err != nil {
		// primary store failure: nothing was committed, safe to retry
		return nil, fmt.Errorf("premium activation failed: %w", err)
	}

	s.logger.Info(ctx, "premium activated",
		"charge_id", a.ChargeID, "user_id", a.UserID, "days", days, "expires_at", expiresAt)

	s.syncSecondary(ctx, a)

	return &ActivationResult{Activated: true, DurationDays: days, ExpiresAt: expiresAt}, nil
}

// resolveDuration derives the premium duration, in order of precedence:
// the payload token, the Stars amount, then the configured default. The
// default path is a data-quality signal — it means an unrecognized product.
func (s *PremiumService) resolveDuration(ctx context.Context, a Activation) (*config.PremiumPlan, int) {

	if token, ok := strings.CutPrefix(a.Payload, payloadPrefix); ok {
		if plan := s.config.PlanByToken(token); plan != nil {
			return plan, plan.Days
		}
	}

	if plan := s.config.PlanByAmount(a.Amount); plan != nil {
		return plan, plan.Days
	}

	s.logger.Warn(ctx, "unrecognized premium product, applying default duration",
		"charge_id", a.ChargeID, "payload", a.Payload, "amount", a.Amount,
		"default_days", s.config.DefaultPremiumDays)

	return nil, s.config.DefaultPremiumDays
}

// syncSecondary propagates the premium flag to the profile document store.
// Failure is logged and swallowed: the authoritative store has committed, and
// the reconciliation sweep repairs divergence.
func (s *PremiumService) syncSecondary(ctx context.Context, a Activation) {
	if a.ExternalID == 0 {
		return
	}

	if err := s.profiles.SetPremiumFlag(ctx, a.ExternalID, true); err != nil {
		s.logger.Warn(ctx, "secondary premium sync failed, divergence left for reconciliation",
			"telegram_id", a.ExternalID, "charge_id", a.ChargeID, "error", err)
	}
}

func resultFromRecord(record *models.PaymentRecord) *ActivationResult {
	result := &ActivationResult{Activated: false, DurationDays: record.DurationDays}
	if record.ExpiresAt != nil {
		result.ExpiresAt = *record.ExpiresAt
	}
	return result
}
