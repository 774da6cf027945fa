// Package services contains the backend business logic. This file implements
// IdentityService: Telegram login-widget authentication, password
// registration/login, and session token issuing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/cryptox"
	"github.com/luvhive/backend/internal/logging"
	"github.com/luvhive/backend/internal/server/auth"
	"github.com/luvhive/backend/internal/server/config"
	"github.com/luvhive/backend/internal/server/models"
	"github.com/luvhive/backend/internal/server/profiles"
	"github.com/luvhive/backend/internal/server/repositories/repomanager"
	"github.com/luvhive/backend/internal/telegram"
)

// LoginResult carries the minted session token, the account it belongs to,
// and whether this login created the account.
type LoginResult struct {
	Token   string
	Account *models.Account
	Created bool
}

type IdentityService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	verifier      *telegram.Verifier
	profiles      profiles.Store
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
	emailDomain   string
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, verifier *telegram.Verifier,
	profileStore profiles.Store, logger logging.Logger, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:            db,
		repomanager:   m,
		verifier:      verifier,
		profiles:      profileStore,
		logger:        logger.With("module", "identity"),
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.SessionTokenValidityDuration,
		emailDomain:   cfg.AccountEmailDomain,
	}
}

// LoginWithTelegram verifies a login-widget claim and returns a session for
// the matching account, creating it on first login. Verification errors
// (telegram.ErrMalformedClaim, ErrInvalidSignature, ErrStaleClaim) are
// terminal for the request; the caller must re-initiate login.
func (s *IdentityService) LoginWithTelegram(ctx context.Context, claim *telegram.LoginClaim) (*LoginResult, error) {

	if err := s.verifier.Verify(claim); err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(claim.FirstName + " " + claim.LastName)

	account, created, err := s.EnsureTelegramAccount(ctx, claim.ID, displayName, claim.Username, claim.PhotoURL)
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(account.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// best-effort secondary propagation; the relational row is authoritative
	if err := s.profiles.Upsert(ctx, &profiles.Document{
		TelegramID:  claim.ID,
		DisplayName: account.DisplayName,
		Username:    account.Username,
	}); err != nil {
		s.logger.Warn(ctx, "profile document sync failed", "telegram_id", claim.ID, "error", err)
	}

	return &LoginResult{Token: token, Account: account, Created: created}, nil
}

// EnsureTelegramAccount looks up the account for the external Telegram id,
// creating it on first contact. Creation is idempotent under concurrency: a
// unique-constraint violation means another request won the race, so the
// winning row is reloaded instead of failing.
func (s *IdentityService) EnsureTelegramAccount(ctx context.Context, externalID int64, displayName, username, photoURL string) (*models.Account, bool, error) {

	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByExternalID(ctx, externalID)
	if err == nil {
		if err := repo.TouchLastSeen(ctx, account.ID, displayName, username, photoURL); err != nil {
			return nil, false, fmt.Errorf("error updating last seen: %w", err)
		}
		return account, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, fmt.Errorf("error loading account: %w", err)
	}

	account = &models.Account{
		ExternalAuthID: &externalID,
		Email:          fmt.Sprintf("ext%d@%s", externalID, s.emailDomain),
		DisplayName:    displayName,
		Username:       username,
		PhotoURL:       photoURL,
	}

	created, err := repo.Create(ctx, account)
	if err == nil {
		s.logger.Info(ctx, "account created from telegram login", "telegram_id", externalID)
		return created, true, nil
	}
	if !errors.Is(err, common.ErrorAlreadyExists) {
		return nil, false, fmt.Errorf("error creating account: %w", err)
	}

	// lost the create race; the row exists now
	account, err = repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, fmt.Errorf("error reloading account: %w", err)
	}

	return account, false, nil
}

// RegisterWithPassword creates a password-authenticated account.
func (s *IdentityService) RegisterWithPassword(ctx context.Context, email, password, displayName string) (*LoginResult, error) {

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.Create(ctx, &models.Account{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, common.ErrorInternal
	}

	token, err := auth.GenerateToken(account.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &LoginResult{Token: token, Account: account, Created: true}, nil
}

// LoginWithPassword verifies the password for an email-registered account.
// Unknown emails and wrong passwords are both reported as ErrorUnauthorized.
func (s *IdentityService) LoginWithPassword(ctx context.Context, email, password string) (*LoginResult, error) {

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if account.PasswordHash == "" {
		// externally-authenticated account, no password to check
		return nil, common.ErrorUnauthorized
	}

	ok, err := cryptox.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		return nil, common.ErrorUnauthorized
	}

	if err := repo.TouchLastSeen(ctx, account.ID, "", "", ""); err != nil {
		s.logger.Warn(ctx, "last seen update failed", "account_id", account.ID, "error", err)
	}

	token, err := auth.GenerateToken(account.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &LoginResult{Token: token, Account: account}, nil
}

// GetAccount loads an account by its internal id.
func (s *IdentityService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}
