package domain

import "errors"

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidSessionID = errors.New("invalid_session_id")
	ErrRecordNotFound   = errors.New("payment_record_not_found")
	ErrMissingIntentID  = errors.New("missing_payment_intent_id")
	ErrStaleTransition  = errors.New("stale_status_transition")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_provider_config")
	ErrUpstream         = errors.New("upstream_request_failed")
)
