package service

import (
	"context"
	"net/mail"
	"strings"

	accessdomain "github.com/stonebridge/membergate/internal/access/domain"
	"github.com/stonebridge/membergate/internal/access/token"
	obsmetrics "github.com/stonebridge/membergate/internal/observability/metrics"
	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       paymentdomain.Repository
	Signer     *token.Signer
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       paymentdomain.Repository
	signer     *token.Signer
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) accessdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("access.service"),
		repo:       p.Repo,
		signer:     p.Signer,
		obsMetrics: p.ObsMetrics,
	}
}

// Verify grants access only when a succeeded payment exists for both the
// email and the session id. Every refusal collapses to ErrAccessDenied; the
// distinction between "no such session", "wrong email" and "payment still
// pending" is logged server-side, never surfaced to the caller.
func (s *Service) Verify(ctx context.Context, email, sessionID string) (*accessdomain.Grant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	sessionID = strings.TrimSpace(sessionID)

	if _, err := mail.ParseAddress(email); err != nil {
		s.record(ctx, "invalid_input")
		return nil, accessdomain.ErrAccessDenied
	}
	if sessionID == "" {
		s.record(ctx, "invalid_input")
		return nil, accessdomain.ErrAccessDenied
	}

	record, err := s.repo.FindSucceeded(ctx, s.db, email, sessionID)
	if err != nil {
		s.log.Error("access lookup failed", zap.Error(err))
		s.record(ctx, "store_error")
		return nil, accessdomain.ErrAccessDenied
	}
	if record == nil {
		s.record(ctx, "denied")
		return nil, accessdomain.ErrAccessDenied
	}

	signed, claim, err := s.signer.Mint(email, record.SessionID)
	if err != nil {
		s.log.Error("token mint failed", zap.Error(err))
		s.record(ctx, "token_error")
		return nil, accessdomain.ErrAccessDenied
	}

	s.record(ctx, "granted")
	return &accessdomain.Grant{
		Email:         email,
		TransactionID: claim.TransactionID,
		Token:         signed,
		ExpiresAt:     claim.ExpiresAt,
	}, nil
}

func (s *Service) CheckToken(ctx context.Context, signed string) (*accessdomain.Claim, error) {
	claim, err := s.signer.Check(signed)
	if err != nil {
		s.record(ctx, "token_rejected")
		return nil, err
	}
	s.record(ctx, "token_accepted")
	return claim, nil
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordAccessVerification(ctx, outcome)
}
