package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	"go.uber.org/zap"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotAuth, gotMode, gotPrice, gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotAuth = r.Header.Get("Authorization")
		gotMode = r.PostForm.Get("mode")
		gotPrice = r.PostForm.Get("line_items[0][price]")
		gotEmail = r.PostForm.Get("customer_email")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_9","url":"https://checkout.example/cs_test_9"}`))
	}))
	defer srv.Close()

	client, err := NewClient("sk_test_key", zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithBaseURL(srv.URL)

	session, err := client.CreateCheckoutSession(context.Background(), paymentdomain.CreateSessionRequest{
		Email:      "buyer@example.com",
		PriceID:    "price_123",
		SuccessURL: "https://site.example/checkout/success",
		CancelURL:  "https://site.example/checkout/canceled",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.SessionID != "cs_test_9" {
		t.Fatalf("session id = %q", session.SessionID)
	}
	if session.RedirectURL != "https://checkout.example/cs_test_9" {
		t.Fatalf("redirect url = %q", session.RedirectURL)
	}
	if gotAuth != "Bearer sk_test_key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotMode != "payment" || gotPrice != "price_123" || gotEmail != "buyer@example.com" {
		t.Fatalf("form values: mode=%q price=%q email=%q", gotMode, gotPrice, gotEmail)
	}
}

func TestCreateCheckoutSessionIdempotencyKeyFreshPerRequest(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fmt.Sprintf(`{"id":"cs_test_%d","url":"https://checkout.example/x"}`, len(keys))))
	}))
	defer srv.Close()

	client, err := NewClient("sk_test_key", zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithBaseURL(srv.URL)

	// Same buyer twice in quick succession: each call must carry its own
	// key, otherwise Stripe replays the first session for the second call.
	req := paymentdomain.CreateSessionRequest{
		Email:      "buyer@example.com",
		PriceID:    "price_123",
		SuccessURL: "https://site.example/checkout/success",
		CancelURL:  "https://site.example/checkout/canceled",
		Metadata:   map[string]string{"email": "buyer@example.com"},
	}
	first, err := client.CreateCheckoutSession(context.Background(), req)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	second, err := client.CreateCheckoutSession(context.Background(), req)
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}

	if len(keys) != 2 || keys[0] == "" || keys[1] == "" {
		t.Fatalf("idempotency keys missing: %v", keys)
	}
	if keys[0] == keys[1] {
		t.Fatalf("idempotency key reused across requests: %q", keys[0])
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("both checkouts resolved to session %q", first.SessionID)
	}
}

func TestRetrieveCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/checkout/sessions/cs_test_9" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"cs_test_9",
			"payment_intent":"pi_9",
			"payment_status":"paid",
			"status":"complete",
			"customer_details":{"email":"Buyer@Example.com"}
		}`))
	}))
	defer srv.Close()

	client, err := NewClient("sk_test_key", zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithBaseURL(srv.URL)

	state, err := client.RetrieveCheckoutSession(context.Background(), "cs_test_9")
	if err != nil {
		t.Fatalf("retrieve session: %v", err)
	}
	if state.PaymentIntentID != "pi_9" {
		t.Fatalf("intent id = %q", state.PaymentIntentID)
	}
	if state.PaymentStatus != "paid" || state.SessionStatus != "complete" {
		t.Fatalf("state = %+v", state)
	}
	if state.CustomerEmail != "buyer@example.com" {
		t.Fatalf("email = %q", state.CustomerEmail)
	}
}

func TestUpstreamErrorsSurfaceAsErrUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"No such price"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("sk_test_key", zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithBaseURL(srv.URL)

	_, err = client.CreateCheckoutSession(context.Background(), paymentdomain.CreateSessionRequest{
		PriceID:    "price_missing",
		SuccessURL: "https://site.example/s",
		CancelURL:  "https://site.example/c",
	})
	if !errors.Is(err, paymentdomain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
