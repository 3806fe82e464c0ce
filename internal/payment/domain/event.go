package domain

import "time"

// Event kinds emitted by the checkout provider that this service acts on.
const (
	EventTypeCheckoutCompleted = "checkout_completed"
	EventTypeCheckoutExpired   = "checkout_expired"
	EventTypePaymentFailed     = "payment_failed"
)

// CorrelationKey names the record field an event kind is matched on.
type CorrelationKey string

const (
	CorrelateBySessionID CorrelationKey = "session_id"
	CorrelateByIntentID  CorrelationKey = "payment_intent_id"
)

// EventRoute describes how one event kind is applied to the record store.
type EventRoute struct {
	Key    CorrelationKey
	Target Status
}

// EventRoutes is the dispatch table for the webhook processor. Failure events
// carry only the payment-intent id, so they correlate on that key; everything
// else correlates on the session id.
var EventRoutes = map[string]EventRoute{
	EventTypeCheckoutCompleted: {Key: CorrelateBySessionID, Target: StatusSucceeded},
	EventTypeCheckoutExpired:   {Key: CorrelateBySessionID, Target: StatusCanceled},
	EventTypePaymentFailed:     {Key: CorrelateByIntentID, Target: StatusFailed},
}

// WebhookEvent is the canonical provider event parsed by adapters.
type WebhookEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	SessionID       string
	PaymentIntentID string
	CustomerEmail   string
	FailureReason   string
	OccurredAt      time.Time
	RawPayload      []byte
}
