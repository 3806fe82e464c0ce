package repository

import (
	"context"
	"strings"
	"time"

	"github.com/stonebridge/membergate/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, session_id, payment_intent_id, user_email, amount, currency,
			status, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SessionID,
		record.PaymentIntentID,
		record.UserEmail,
		record.Amount,
		record.Currency,
		record.Status,
		record.Metadata,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.PaymentRecord, error) {
	return r.findOne(ctx, db, "session_id = ?", sessionID)
}

func (r *repo) FindByPaymentIntentID(ctx context.Context, db *gorm.DB, intentID string) (*domain.PaymentRecord, error) {
	return r.findOne(ctx, db, "payment_intent_id = ?", intentID)
}

func (r *repo) FindSucceeded(ctx context.Context, db *gorm.DB, email, sessionID string) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, payment_intent_id, user_email, amount, currency,
			status, metadata, created_at, updated_at
		 FROM payments
		 WHERE user_email = ? AND session_id = ? AND status = ?
		 LIMIT 1`,
		email,
		sessionID,
		domain.StatusSucceeded,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, cond string, value string) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, payment_intent_id, user_email, amount, currency,
			status, metadata, created_at, updated_at
		 FROM payments
		 WHERE `+cond+`
		 LIMIT 1`,
		value,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// AdvanceStatus performs the guarded transition as a single conditional
// UPDATE so concurrent writers cannot move a terminal row backward. Metadata
// is merged in Go after re-reading the row inside a transaction; the status
// guard itself stays in the WHERE clause.
func (r *repo) AdvanceStatus(ctx context.Context, db *gorm.DB, adv domain.Advance) (int64, int64, error) {
	column, err := correlationColumn(adv.Key)
	if err != nil {
		return 0, 0, err
	}

	var matched, updated int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the row so concurrent writers cannot interleave the metadata
		// read-modify-write; sqlite has a single writer and no FOR UPDATE.
		lock := " FOR UPDATE"
		if tx.Dialector.Name() == "sqlite" {
			lock = ""
		}

		var current domain.PaymentRecord
		if err := tx.Raw(
			`SELECT id, session_id, payment_intent_id, user_email, amount, currency,
				status, metadata, created_at, updated_at
			 FROM payments
			 WHERE `+column+` = ?
			 LIMIT 1`+lock,
			adv.Value,
		).Scan(&current).Error; err != nil {
			return err
		}
		if current.ID == 0 {
			return nil
		}
		matched = 1

		merged := current.Metadata
		if merged == nil {
			merged = datatypes.JSONMap{}
		}
		for key, value := range adv.Metadata {
			merged[key] = value
		}

		intentID := current.PaymentIntentID
		if adv.PaymentIntentID != nil && strings.TrimSpace(*adv.PaymentIntentID) != "" {
			intentID = adv.PaymentIntentID
		}
		// A succeeded row must stay reachable by intent id or later failure
		// events cannot correlate to it.
		if adv.To == domain.StatusSucceeded &&
			(intentID == nil || strings.TrimSpace(*intentID) == "") {
			return domain.ErrMissingIntentID
		}
		// Provider-reported addresses only ever fill in the deferred-email
		// placeholder; a caller-supplied address is never clobbered.
		email := current.UserEmail
		if adv.UserEmail != nil && strings.TrimSpace(*adv.UserEmail) != "" &&
			current.UserEmail == domain.PlaceholderEmail {
			email = *adv.UserEmail
		}

		res := tx.Exec(
			`UPDATE payments
			 SET status = ?, payment_intent_id = ?, user_email = ?, metadata = ?, updated_at = ?
			 WHERE `+column+` = ? AND status IN ?`,
			adv.To,
			intentID,
			email,
			merged,
			time.Now().UTC(),
			adv.Value,
			statusValues(adv.FromAllowed),
		)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return matched, updated, nil
}

func correlationColumn(key domain.CorrelationKey) (string, error) {
	switch key {
	case domain.CorrelateBySessionID:
		return "session_id", nil
	case domain.CorrelateByIntentID:
		return "payment_intent_id", nil
	default:
		return "", domain.ErrInvalidEvent
	}
}

func statusValues(statuses []domain.Status) []string {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return values
}
