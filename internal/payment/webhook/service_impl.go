package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stonebridge/membergate/internal/config"
	obsmetrics "github.com/stonebridge/membergate/internal/observability/metrics"
	paymentdomain "github.com/stonebridge/membergate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry maps provider route segments to their webhook adapters.
type Registry struct {
	adapters map[string]paymentdomain.Adapter
}

func NewRegistry(entries map[string]paymentdomain.Adapter) *Registry {
	adapters := make(map[string]paymentdomain.Adapter, len(entries))
	for name, adapter := range entries {
		adapters[strings.ToLower(strings.TrimSpace(name))] = adapter
	}
	return &Registry{adapters: adapters}
}

func (r *Registry) Lookup(provider string) (paymentdomain.Adapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[provider]
	return adapter, ok
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Repo       paymentdomain.Repository
	Adapters   *Registry
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        paymentdomain.Repository
	adapters    *Registry
	strictMatch bool
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.webhook"),
		repo:        p.Repo,
		adapters:    p.Adapters,
		strictMatch: p.Cfg.WebhookStrictMatch,
		obsMetrics:  p.ObsMetrics,
	}
}

// Ingest verifies, parses and applies one provider delivery. Events the
// dispatch table does not know are acknowledged without side effects so the
// provider stops retrying them.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrProviderNotFound
	}
	adapter, ok := s.adapters.Lookup(provider)
	if !ok {
		return paymentdomain.ErrProviderNotFound
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.record(ctx, provider, "unknown", "signature_rejected")
		return err
	}
	if !json.Valid(payload) {
		s.record(ctx, provider, "unknown", "invalid_payload")
		return paymentdomain.ErrInvalidPayload
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.record(ctx, provider, "unknown", "ignored")
			return nil
		}
		s.record(ctx, provider, "unknown", "invalid_payload")
		return err
	}

	route, ok := paymentdomain.EventRoutes[event.Type]
	if !ok {
		s.record(ctx, provider, event.Type, "ignored")
		return nil
	}

	return s.apply(ctx, provider, event, route)
}

func (s *Service) apply(ctx context.Context, provider string, event *paymentdomain.WebhookEvent, route paymentdomain.EventRoute) error {
	value := event.SessionID
	if route.Key == paymentdomain.CorrelateByIntentID {
		value = event.PaymentIntentID
	}
	if strings.TrimSpace(value) == "" {
		s.record(ctx, provider, event.Type, "invalid_payload")
		return paymentdomain.ErrInvalidEvent
	}

	adv := paymentdomain.Advance{
		Key:         route.Key,
		Value:       value,
		FromAllowed: []paymentdomain.Status{paymentdomain.StatusPending},
		To:          route.Target,
		Metadata: map[string]any{
			"last_event_id":   event.ProviderEventID,
			"last_event_type": event.Type,
			"last_event_at":   event.OccurredAt.UTC().Format(time.RFC3339),
		},
	}
	if event.FailureReason != "" {
		adv.Metadata["failure_reason"] = event.FailureReason
	}
	if event.PaymentIntentID != "" && route.Key == paymentdomain.CorrelateBySessionID {
		adv.PaymentIntentID = &event.PaymentIntentID
	}
	if event.CustomerEmail != "" {
		adv.UserEmail = &event.CustomerEmail
	}

	matched, updated, err := s.repo.AdvanceStatus(ctx, s.db, adv)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrMissingIntentID) {
			s.record(ctx, provider, event.Type, "invalid_payload")
		}
		return err
	}

	switch {
	case matched == 0:
		s.log.Warn("webhook event matched no payment record",
			zap.String("provider", provider),
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ProviderEventID),
			zap.String(string(route.Key), value),
		)
		s.record(ctx, provider, event.Type, "no_match")
		if s.strictMatch {
			return paymentdomain.ErrRecordNotFound
		}
		return nil
	case updated == 0:
		// Terminal row absorbed the event; deliveries are at-least-once
		// and may arrive out of order.
		s.record(ctx, provider, event.Type, "stale")
		return nil
	default:
		s.log.Info("webhook event applied",
			zap.String("provider", provider),
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ProviderEventID),
			zap.String("status", string(route.Target)),
		)
		s.record(ctx, provider, event.Type, "applied")
		return nil
	}
}

func (s *Service) record(ctx context.Context, provider, eventType, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordWebhookEvent(ctx, provider, eventType, outcome)
}
