package domain

import (
	"context"
	"net/http"
)

// Service creates checkout sessions and reconciles their state.
type Service interface {
	// StartCheckout creates a provider-hosted checkout session for the given
	// payer email and records the attempt as pending.
	StartCheckout(ctx context.Context, email string) (*CheckoutSession, error)

	// StartDeferredCheckout does the same without a known email; the record
	// carries the placeholder address until the provider reports one.
	StartDeferredCheckout(ctx context.Context) (*CheckoutSession, error)

	// SyncStatus fetches the session's authoritative state from the provider
	// and advances the local record. Safe to call repeatedly.
	SyncStatus(ctx context.Context, sessionID string) (*PaymentRecord, error)
}

// WebhookService applies provider-pushed events to the record store.
type WebhookService interface {
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

// ProviderClient is the outbound API surface of the checkout provider.
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, req CreateSessionRequest) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*SessionState, error)
}

// CreateSessionRequest parameterizes session creation. Email is empty for the
// deferred variant; the provider collects it in that case.
type CreateSessionRequest struct {
	Email      string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Adapter verifies and parses provider webhook deliveries.
type Adapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*WebhookEvent, error)
}
