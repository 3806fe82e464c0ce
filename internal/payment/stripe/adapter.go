package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stonebridge/membergate/internal/payment/domain"
)

// ProviderName is the route segment and metrics label for this provider.
const ProviderName = "stripe"

func NewAdapter(webhookSecret string) (*Adapter, error) {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return nil, domain.ErrInvalidConfig
	}
	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload, domain.EventTypeCheckoutCompleted)
	case "checkout.session.expired":
		return a.parseCheckoutSession(event, payload, domain.EventTypeCheckoutExpired)
	case "payment_intent.payment_failed":
		return a.parsePaymentIntentFailed(event, payload)
	default:
		return nil, domain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID              string                `json:"id"`
	PaymentIntent   string                `json:"payment_intent"`
	PaymentStatus   string                `json:"payment_status"`
	Status          string                `json:"status"`
	Created         int64                 `json:"created"`
	CustomerDetails stripeCustomerDetails `json:"customer_details"`
}

type stripeCustomerDetails struct {
	Email string `json:"email"`
}

type stripeFailedIntent struct {
	ID               string              `json:"id"`
	Created          int64               `json:"created"`
	LastPaymentError *stripePaymentError `json:"last_payment_error"`
}

type stripePaymentError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte, eventType string) (*domain.WebhookEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.WebhookEvent{
		Provider:        ProviderName,
		ProviderEventID: event.ID,
		Type:            eventType,
		SessionID:       session.ID,
		PaymentIntentID: strings.TrimSpace(session.PaymentIntent),
		CustomerEmail:   strings.TrimSpace(strings.ToLower(session.CustomerDetails.Email)),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parsePaymentIntentFailed(event stripeEvent, payload []byte) (*domain.WebhookEvent, error) {
	var intent stripeFailedIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	var reason string
	if intent.LastPaymentError != nil {
		reason = strings.TrimSpace(intent.LastPaymentError.Message)
		if reason == "" {
			reason = strings.TrimSpace(intent.LastPaymentError.Code)
		}
	}

	return &domain.WebhookEvent{
		Provider:        ProviderName,
		ProviderEventID: event.ID,
		Type:            domain.EventTypePaymentFailed,
		PaymentIntentID: intent.ID,
		FailureReason:   reason,
		OccurredAt:      timestamp(intent.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
