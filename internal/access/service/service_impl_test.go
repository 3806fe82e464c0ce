package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accessdomain "github.com/stonebridge/membergate/internal/access/domain"
	accessservice "github.com/stonebridge/membergate/internal/access/service"
	"github.com/stonebridge/membergate/internal/access/token"
	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	paymentrepo "github.com/stonebridge/membergate/internal/payment/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE payments (
		id BIGINT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		payment_intent_id TEXT,
		user_email TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		metadata TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newAccessService(t *testing.T, db *gorm.DB) (accessdomain.Service, *token.Signer) {
	t.Helper()

	signer, err := token.NewSigner("access-secret", 24*time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	svc := accessservice.NewService(accessservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Repo:   paymentrepo.Provide(),
		Signer: signer,
	})
	return svc, signer
}

var testNode, testNodeErr = snowflake.NewNode(5)

func seedPayment(t *testing.T, db *gorm.DB, sessionID, email string, status paymentdomain.Status) {
	t.Helper()

	if testNodeErr != nil {
		t.Fatalf("new node: %v", testNodeErr)
	}
	node := testNode
	now := time.Now().UTC()
	record := &paymentdomain.PaymentRecord{
		ID:        node.Generate(),
		SessionID: sessionID,
		UserEmail: email,
		Amount:    200,
		Currency:  "usd",
		Status:    status,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := paymentrepo.Provide().Insert(context.Background(), db, record); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func TestVerifyGrantsAccessForSucceededPayment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, signer := newAccessService(t, db)

	seedPayment(t, db, "cs_paid", "buyer@example.com", paymentdomain.StatusSucceeded)

	grant, err := svc.Verify(ctx, "  Buyer@Example.COM ", "cs_paid")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if grant.Email != "buyer@example.com" {
		t.Fatalf("email = %q", grant.Email)
	}
	if grant.TransactionID != "cs_paid" {
		t.Fatalf("transaction id = %q", grant.TransactionID)
	}

	claim, err := signer.Check(grant.Token)
	if err != nil {
		t.Fatalf("minted token must validate: %v", err)
	}
	if claim.Email != "buyer@example.com" || claim.TransactionID != "cs_paid" {
		t.Fatalf("claim = %+v", claim)
	}
}

func TestVerifyDeniesWithoutDistinguishingCause(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newAccessService(t, db)

	seedPayment(t, db, "cs_pending", "buyer@example.com", paymentdomain.StatusPending)
	seedPayment(t, db, "cs_paid", "buyer@example.com", paymentdomain.StatusSucceeded)

	cases := []struct {
		name      string
		email     string
		sessionID string
	}{
		{"payment not succeeded", "buyer@example.com", "cs_pending"},
		{"wrong email", "other@example.com", "cs_paid"},
		{"unknown session", "buyer@example.com", "cs_missing"},
		{"malformed email", "not-an-email", "cs_paid"},
		{"empty session", "buyer@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(ctx, tc.email, tc.sessionID)
			if !errors.Is(err, accessdomain.ErrAccessDenied) {
				t.Fatalf("expected ErrAccessDenied, got %v", err)
			}
		})
	}
}

func TestCheckTokenRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newAccessService(t, db)

	foreign, err := token.NewSigner("other-secret", 24*time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signed, _, err := foreign.Mint("buyer@example.com", "cs_paid")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := svc.CheckToken(ctx, signed); !errors.Is(err, accessdomain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
