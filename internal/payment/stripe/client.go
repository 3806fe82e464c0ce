package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stonebridge/membergate/internal/payment/domain"
	"go.uber.org/zap"
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(apiKey string, logger *zap.Logger) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, domain.ErrInvalidConfig
	}
	return &Client{
		apiKey:  key,
		baseURL: "https://api.stripe.com",
		client:  &http.Client{Timeout: 12 * time.Second},
		logger:  logger,
	}, nil
}

type stripeSessionResponse struct {
	ID              string                `json:"id"`
	URL             string                `json:"url"`
	PaymentIntent   string                `json:"payment_intent"`
	PaymentStatus   string                `json:"payment_status"`
	Status          string                `json:"status"`
	CustomerDetails stripeCustomerDetails `json:"customer_details"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("line_items[0][price]", req.PriceID)
	values.Set("line_items[0][quantity]", "1")
	values.Set("success_url", req.SuccessURL)
	values.Set("cancel_url", req.CancelURL)
	if req.Email != "" {
		values.Set("customer_email", req.Email)
	}
	for key, value := range req.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	// Stripe replays the stored response for a reused key. Every call here
	// is a distinct checkout, so the key must be fresh per request; repeated
	// checkouts by the same email are independent sessions.
	idempotencyKey := "checkout:" + uuid.NewString()

	session, err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &domain.CheckoutSession{
		SessionID:   session.ID,
		RedirectURL: session.URL,
	}, nil
}

func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	session, err := c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, "")
	if err != nil {
		return nil, err
	}
	return &domain.SessionState{
		SessionID:       session.ID,
		PaymentIntentID: strings.TrimSpace(session.PaymentIntent),
		PaymentStatus:   session.PaymentStatus,
		SessionStatus:   session.Status,
		CustomerEmail:   strings.TrimSpace(strings.ToLower(session.CustomerDetails.Email)),
	}, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
) (stripeSessionResponse, error) {
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return stripeSessionResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return stripeSessionResponse{}, domain.ErrUpstream
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&stripeErr); decodeErr == nil {
			if message := strings.TrimSpace(stripeErr.Error.Message); message != "" && c.logger != nil {
				c.logger.Warn("stripe request rejected",
					zap.String("path", path),
					zap.Int("status_code", resp.StatusCode),
					zap.String("stripe_message", message),
				)
			}
		}
		return stripeSessionResponse{}, domain.ErrUpstream
	}

	var session stripeSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return stripeSessionResponse{}, domain.ErrUpstream
	}
	if session.ID == "" {
		return stripeSessionResponse{}, domain.ErrUpstream
	}
	return session, nil
}

// WithBaseURL redirects API calls, used by tests that stand in for the
// provider with a local httptest server.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}
