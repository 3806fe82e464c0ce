package domain

import (
	"context"

	"gorm.io/gorm"
)

// Advance carries one conditional status transition. The update only lands
// when the row's current status is in FromAllowed; there is no blind status
// write path, which is what keeps terminal states from regressing when the
// reconciler and the webhook processor race.
type Advance struct {
	Key   CorrelationKey
	Value string

	FromAllowed []Status
	To          Status

	// Optional field corrections applied together with the transition.
	PaymentIntentID *string
	UserEmail       *string

	// Metadata entries merged into the record's diagnostic bag.
	Metadata map[string]any
}

// Repository is the persistence boundary for payment records.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *PaymentRecord) error
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*PaymentRecord, error)
	FindByPaymentIntentID(ctx context.Context, db *gorm.DB, intentID string) (*PaymentRecord, error)
	FindSucceeded(ctx context.Context, db *gorm.DB, email, sessionID string) (*PaymentRecord, error)

	// AdvanceStatus applies the conditional transition and reports how many
	// rows matched the correlation key regardless of the status guard, and
	// how many were updated. (matched=0, updated=0) means no such record;
	// (matched=1, updated=0) means the guard rejected a stale transition.
	AdvanceStatus(ctx context.Context, db *gorm.DB, adv Advance) (matched int64, updated int64, err error)
}
