package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accessdomain "github.com/stonebridge/membergate/internal/access/domain"
	"github.com/stonebridge/membergate/internal/config"
	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	videodomain "github.com/stonebridge/membergate/internal/videocontent/domain"
)

type fakePaymentService struct {
	startCalls    int
	deferredCalls int
	syncCalls     int
	lastEmail     string
	lastSessionID string

	session *paymentdomain.CheckoutSession
	record  *paymentdomain.PaymentRecord
	err     error
}

func (f *fakePaymentService) StartCheckout(ctx context.Context, email string) (*paymentdomain.CheckoutSession, error) {
	f.startCalls++
	f.lastEmail = email
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakePaymentService) StartDeferredCheckout(ctx context.Context) (*paymentdomain.CheckoutSession, error) {
	f.deferredCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakePaymentService) SyncStatus(ctx context.Context, sessionID string) (*paymentdomain.PaymentRecord, error) {
	f.syncCalls++
	f.lastSessionID = sessionID
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeWebhookService struct {
	calls        int
	lastProvider string
	lastPayload  []byte
	err          error
}

func (f *fakeWebhookService) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	f.calls++
	f.lastProvider = provider
	f.lastPayload = payload
	return f.err
}

type fakeAccessService struct {
	grant *accessdomain.Grant
	err   error
}

func (f *fakeAccessService) Verify(ctx context.Context, email, sessionID string) (*accessdomain.Grant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grant, nil
}

func (f *fakeAccessService) CheckToken(ctx context.Context, token string) (*accessdomain.Claim, error) {
	return nil, accessdomain.ErrInvalidToken
}

type fakeVideoService struct {
	items []videodomain.VideoContent
	err   error
}

func (f *fakeVideoService) List(ctx context.Context, publishedOnly bool) ([]videodomain.VideoContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeVideoService) Upsert(ctx context.Context, input videodomain.UpsertInput) (*videodomain.VideoContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &videodomain.VideoContent{
		Slug:        input.Slug,
		Title:       input.Title,
		VideoURL:    input.VideoURL,
		IsPublished: input.IsPublished,
	}, nil
}

type testServices struct {
	payment *fakePaymentService
	webhook *fakeWebhookService
	access  *fakeAccessService
	video   *fakeVideoService
}

func newTestServer(t *testing.T, svcs testServices) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	if svcs.payment == nil {
		svcs.payment = &fakePaymentService{}
	}
	if svcs.webhook == nil {
		svcs.webhook = &fakeWebhookService{}
	}
	if svcs.access == nil {
		svcs.access = &fakeAccessService{}
	}
	if svcs.video == nil {
		svcs.video = &fakeVideoService{}
	}

	return NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{},
		PaymentSvc: svcs.payment,
		WebhookSvc: svcs.webhook,
		AccessSvc:  svcs.access,
		VideoSvc:   svcs.video,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestCreateCheckoutSessionHandler(t *testing.T) {
	payment := &fakePaymentService{
		session: &paymentdomain.CheckoutSession{
			SessionID:   "cs_1",
			RedirectURL: "https://checkout.example/cs_1",
		},
	}
	s := newTestServer(t, testServices{payment: payment})

	rec := doJSON(t, s, http.MethodPost, "/checkout/session", map[string]string{"email": "buyer@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["sessionId"] != "cs_1" || resp["redirectUrl"] != "https://checkout.example/cs_1" {
		t.Fatalf("response = %v", resp)
	}
	if payment.lastEmail != "buyer@example.com" {
		t.Fatalf("email passed = %q", payment.lastEmail)
	}
}

func TestCreateCheckoutSessionRejectsInvalidEmail(t *testing.T) {
	payment := &fakePaymentService{err: paymentdomain.ErrInvalidEmail}
	s := newTestServer(t, testServices{payment: payment})

	rec := doJSON(t, s, http.MethodPost, "/checkout/session", map[string]string{"email": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Type != "validation_error" {
		t.Fatalf("error type = %q", resp.Error.Type)
	}
}

func TestDeferredCheckoutSessionHandler(t *testing.T) {
	payment := &fakePaymentService{
		session: &paymentdomain.CheckoutSession{
			SessionID:   "cs_d",
			RedirectURL: "https://checkout.example/cs_d",
		},
	}
	s := newTestServer(t, testServices{payment: payment})

	rec := doJSON(t, s, http.MethodPost, "/checkout/session-deferred", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payment.deferredCalls != 1 {
		t.Fatalf("deferred calls = %d", payment.deferredCalls)
	}
}

func TestSyncPaymentStatusHandler(t *testing.T) {
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	record := &paymentdomain.PaymentRecord{
		ID:        node.Generate(),
		SessionID: "cs_sync",
		UserEmail: "buyer@example.com",
		Status:    paymentdomain.StatusSucceeded,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	payment := &fakePaymentService{record: record}
	s := newTestServer(t, testServices{payment: payment})

	rec := doJSON(t, s, http.MethodPost, "/payments/sync", map[string]string{"sessionId": "cs_sync"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp syncPaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Payment.Status != "succeeded" || resp.Payment.Email != "buyer@example.com" {
		t.Fatalf("response = %+v", resp)
	}
	if payment.lastSessionID != "cs_sync" {
		t.Fatalf("session id passed = %q", payment.lastSessionID)
	}
}

func TestSyncPaymentStatusNotFound(t *testing.T) {
	payment := &fakePaymentService{err: paymentdomain.ErrRecordNotFound}
	s := newTestServer(t, testServices{payment: payment})

	rec := doJSON(t, s, http.MethodPost, "/payments/sync", map[string]string{"sessionId": "cs_missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestVerifyAccessHandler(t *testing.T) {
	access := &fakeAccessService{
		grant: &accessdomain.Grant{
			Email:         "buyer@example.com",
			TransactionID: "cs_paid",
			Token:         "signed-token",
			ExpiresAt:     time.Now().Add(24 * time.Hour),
		},
	}
	s := newTestServer(t, testServices{access: access})

	rec := doJSON(t, s, http.MethodPost, "/access/verify", map[string]string{
		"email":         "buyer@example.com",
		"transactionId": "cs_paid",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp verifyAccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionToken != "signed-token" || resp.User.TransactionID != "cs_paid" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestVerifyAccessDeniedIsGeneric401(t *testing.T) {
	access := &fakeAccessService{err: accessdomain.ErrAccessDenied}
	s := newTestServer(t, testServices{access: access})

	rec := doJSON(t, s, http.MethodPost, "/access/verify", map[string]string{
		"email":         "other@example.com",
		"transactionId": "cs_paid",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Type != "unauthorized" || resp.Error.Message != "unauthorized" {
		t.Fatalf("denial leaks detail: %+v", resp.Error)
	}
}

func TestWebhookHandlerAcksAndForwardsRawBody(t *testing.T) {
	webhook := &fakeWebhookService{}
	s := newTestServer(t, testServices{webhook: webhook})

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if webhook.lastProvider != "stripe" {
		t.Fatalf("provider = %q", webhook.lastProvider)
	}
	if !bytes.Equal(webhook.lastPayload, payload) {
		t.Fatalf("payload altered before verification")
	}

	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["received"] {
		t.Fatalf("response = %v", resp)
	}
}

func TestWebhookHandlerBadSignatureIs400(t *testing.T) {
	webhook := &fakeWebhookService{err: paymentdomain.ErrInvalidSignature}
	s := newTestServer(t, testServices{webhook: webhook})

	rec := doJSON(t, s, http.MethodPost, "/webhooks/stripe", map[string]string{"id": "evt_1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListVideosHandler(t *testing.T) {
	video := &fakeVideoService{
		items: []videodomain.VideoContent{
			{Slug: "intro", Title: "Intro", VideoURL: "https://cdn.example/intro.mp4", IsPublished: true},
		},
	}
	s := newTestServer(t, testServices{video: video})

	req := httptest.NewRequest(http.MethodGet, "/content/videos", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Videos []videoView `json:"videos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Videos) != 1 || resp.Videos[0].Slug != "intro" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestUpsertVideoHandler(t *testing.T) {
	s := newTestServer(t, testServices{})

	rec := doJSON(t, s, http.MethodPut, "/admin/videos/intro", map[string]any{
		"title":       "Intro",
		"videoUrl":    "https://cdn.example/intro.mp4",
		"isPublished": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp videoView
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Slug != "intro" || !resp.IsPublished {
		t.Fatalf("response = %+v", resp)
	}
}

func TestUpstreamFailureIs502(t *testing.T) {
	payment := &fakePaymentService{err: paymentdomain.ErrUpstream}
	s := newTestServer(t, testServices{payment: payment})

	rec := doJSON(t, s, http.MethodPost, "/checkout/session", map[string]string{"email": "buyer@example.com"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
