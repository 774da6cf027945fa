// Package profiles maintains the secondary profile documents read by the
// Telegram-facing surfaces. Documents are keyed by the external Telegram id,
// not the internal account id, and live in an S3-compatible bucket.
//
// Writes here are best-effort by contract: the relational store stays the
// source of truth, and a periodic reconciliation sweep repairs divergence.
package profiles

import (
	"context"
	"time"
)

// Document is the profile snapshot stored per Telegram user.
type Document struct {
	TelegramID  int64     `json:"telegram_id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username"`
	IsPremium   bool      `json:"is_premium"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Store interface {
	// Upsert writes the document, preserving the stored premium flag when the
	// incoming document does not carry one.
	Upsert(ctx context.Context, doc *Document) error

	// SetPremiumFlag flips the premium flag on the stored document, creating
	// a minimal document if none exists yet.
	SetPremiumFlag(ctx context.Context, externalID int64, premium bool) error
}
