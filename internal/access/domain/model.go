package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccessDenied = errors.New("access_denied")
	ErrInvalidToken = errors.New("invalid_access_token")
	ErrTokenExpired = errors.New("access_token_expired")
)

// Claim is the signed statement handed to a verified member. It binds the
// payer's address to the payment that granted access and carries its own
// expiry, so possession of an old token does not outlive the grant window.
type Claim struct {
	Email         string    `json:"email"`
	TransactionID string    `json:"transaction_id"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Grant is the result of a successful verification.
type Grant struct {
	Email         string
	TransactionID string
	Token         string
	ExpiresAt     time.Time
}

// Service answers "has this person paid" without leaking which part of the
// check failed.
type Service interface {
	// Verify checks for a succeeded payment matching both the email and the
	// session id, and mints a time-bound token when one exists. Any failure
	// mode returns ErrAccessDenied.
	Verify(ctx context.Context, email, sessionID string) (*Grant, error)

	// CheckToken validates a previously minted token's signature and expiry.
	CheckToken(ctx context.Context, token string) (*Claim, error)
}
