package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stonebridge/membergate/internal/config"
	obsmetrics "github.com/stonebridge/membergate/internal/observability/metrics"
	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	Repo       paymentdomain.Repository
	Client     paymentdomain.ProviderClient
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	repo       paymentdomain.Repository
	client     paymentdomain.ProviderClient
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		cfg:        p.Config,
		repo:       p.Repo,
		client:     p.Client,
		obsMetrics: p.ObsMetrics,
	}
}

var _ paymentdomain.Service = (*Service)(nil)

func (s *Service) StartCheckout(ctx context.Context, email string) (*paymentdomain.CheckoutSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, paymentdomain.ErrInvalidEmail
	}
	return s.createSession(ctx, email, "standard")
}

func (s *Service) StartDeferredCheckout(ctx context.Context) (*paymentdomain.CheckoutSession, error) {
	return s.createSession(ctx, "", "deferred")
}

func (s *Service) createSession(ctx context.Context, email, variant string) (*paymentdomain.CheckoutSession, error) {
	req := paymentdomain.CreateSessionRequest{
		Email:      email,
		PriceID:    s.cfg.MembershipPriceID,
		SuccessURL: s.cfg.SiteOrigin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.SiteOrigin + "/checkout/canceled",
		Metadata:   map[string]string{"variant": variant},
	}
	if email != "" {
		req.Metadata["email"] = email
	}
	// Deferred checkouts originate from the banner call to action.
	if variant == "deferred" {
		req.Metadata["source"] = "banner_cta"
	}

	session, err := s.client.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.recordSession(ctx, variant, "upstream_error")
		return nil, err
	}

	recordEmail := email
	if recordEmail == "" {
		recordEmail = paymentdomain.PlaceholderEmail
	}

	recordMeta := datatypes.JSONMap{"variant": variant}
	if variant == "deferred" {
		recordMeta["source"] = "banner_cta"
	}

	now := time.Now().UTC()
	record := &paymentdomain.PaymentRecord{
		ID:        s.genID.Generate(),
		SessionID: session.SessionID,
		UserEmail: recordEmail,
		Amount:    s.cfg.MembershipAmount,
		Currency:  s.cfg.MembershipCurrency,
		Status:    paymentdomain.StatusPending,
		Metadata:  recordMeta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// Provider session exists without a local row; a later sync or
		// webhook cannot match it, so the caller must retry checkout.
		s.log.Error("persist pending payment failed",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
		s.recordSession(ctx, variant, "store_error")
		return nil, err
	}

	s.log.Info("checkout session created",
		zap.String("session_id", session.SessionID),
		zap.String("variant", variant),
	)
	s.recordSession(ctx, variant, "created")
	return session, nil
}

// SyncStatus pulls the provider's authoritative session state and advances
// the local record. The transition is guarded, so syncing after a webhook
// already settled the record is a no-op rather than a regression.
func (s *Service) SyncStatus(ctx context.Context, sessionID string) (*paymentdomain.PaymentRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, paymentdomain.ErrInvalidSessionID
	}

	existing, err := s.repo.FindBySessionID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, paymentdomain.ErrRecordNotFound
	}
	if existing.Status.IsTerminal() {
		s.recordSync(ctx, string(existing.Status), "already_terminal")
		return existing, nil
	}

	state, err := s.client.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		s.recordSync(ctx, string(existing.Status), "upstream_error")
		return nil, err
	}

	target := paymentdomain.StatusFromSessionState(*state)
	if target == existing.Status {
		s.recordSync(ctx, string(existing.Status), "unchanged")
		return existing, nil
	}

	adv := paymentdomain.Advance{
		Key:         paymentdomain.CorrelateBySessionID,
		Value:       sessionID,
		FromAllowed: []paymentdomain.Status{paymentdomain.StatusPending},
		To:          target,
		Metadata:    map[string]any{"last_sync_at": time.Now().UTC().Format(time.RFC3339)},
	}
	if state.PaymentIntentID != "" {
		adv.PaymentIntentID = &state.PaymentIntentID
	}
	if state.CustomerEmail != "" && existing.UserEmail == paymentdomain.PlaceholderEmail {
		adv.UserEmail = &state.CustomerEmail
	}

	matched, updated, err := s.repo.AdvanceStatus(ctx, s.db, adv)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, paymentdomain.ErrRecordNotFound
	}
	if updated == 0 {
		// Another writer settled the record between our read and the
		// guarded update. Re-read and report what won.
		refreshed, err := s.repo.FindBySessionID(ctx, s.db, sessionID)
		if err != nil {
			return nil, err
		}
		if refreshed == nil {
			return nil, paymentdomain.ErrRecordNotFound
		}
		s.recordSync(ctx, string(refreshed.Status), "lost_race")
		return refreshed, nil
	}

	refreshed, err := s.repo.FindBySessionID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if refreshed == nil {
		return nil, paymentdomain.ErrRecordNotFound
	}

	s.log.Info("payment status synced",
		zap.String("session_id", sessionID),
		zap.String("status", string(refreshed.Status)),
	)
	s.recordSync(ctx, string(refreshed.Status), "advanced")
	return refreshed, nil
}

func (s *Service) recordSession(ctx context.Context, variant, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordCheckoutSession(ctx, variant, outcome)
}

func (s *Service) recordSync(ctx context.Context, status, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordStatusSync(ctx, status, outcome)
}
