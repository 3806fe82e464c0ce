package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the local view of a checkout attempt's lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// CanAdvance reports whether the transition from one status to another is
// allowed by the lattice: pending may move to any terminal state, terminal
// states absorb. Re-asserting the current status is permitted so repeated
// reconciliation stays idempotent.
func CanAdvance(from, to Status) bool {
	if from == to {
		return true
	}
	return from == StatusPending && to.IsTerminal()
}

// PaymentRecord is the single source of truth for "did this person pay".
// One row per checkout attempt, keyed by the provider-issued session id.
type PaymentRecord struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	SessionID       string            `json:"session_id" gorm:"type:text;not null;uniqueIndex"`
	PaymentIntentID *string           `json:"payment_intent_id" gorm:"type:text;index"`
	UserEmail       string            `json:"user_email" gorm:"type:text;not null"`
	Amount          int64             `json:"amount" gorm:"not null"`
	Currency        string            `json:"currency" gorm:"type:text;not null"`
	Status          Status            `json:"status" gorm:"type:text;not null"`
	Metadata        datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;not null"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null"`
}

func (PaymentRecord) TableName() string { return "payments" }

// PlaceholderEmail marks records created by the deferred-email checkout
// variant until the processor reports the real address.
const PlaceholderEmail = "pending@checkout.stripe"

// CheckoutSession is the provider-issued session handle returned to callers.
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
}

// SessionState is the provider's authoritative view of a checkout session.
type SessionState struct {
	SessionID       string
	PaymentIntentID string
	PaymentStatus   string // paid | unpaid | no_payment_required
	SessionStatus   string // open | complete | expired
	CustomerEmail   string
}

// StatusFromSessionState maps the provider's session view onto the local
// status. Anything unrecognized stays pending.
func StatusFromSessionState(state SessionState) Status {
	switch {
	case state.PaymentStatus == "paid":
		return StatusSucceeded
	case state.PaymentStatus == "unpaid":
		return StatusPending
	case state.SessionStatus == "expired":
		return StatusCanceled
	default:
		return StatusPending
	}
}
