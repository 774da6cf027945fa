package models

import "time"

// Account is a LuvHive user record. An account is created either from a
// verified Telegram login (ExternalAuthID set, synthesized email) or from a
// password registration (PasswordHash set); never ambiguously both.
type Account struct {
	ID             string
	ExternalAuthID *int64
	Email          string
	PasswordHash   string
	DisplayName    string
	Username       string
	PhotoURL       string
	CreatedAt      time.Time
	LastSeenAt     time.Time
	IsPremium      bool
	PremiumUntil   *time.Time
}
