package models

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRecord is an append-only row describing one premium purchase.
// ChargeID is the provider's charge identifier and the natural idempotency
// key: a duplicated notification for the same charge must not apply twice.
type PaymentRecord struct {
	ID           string
	ChargeID     string
	UserID       string
	Amount       int64
	Currency     string
	ProductType  string
	DurationDays int
	Status       PaymentStatus
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}
