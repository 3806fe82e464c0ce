package payment

import (
	"github.com/stonebridge/membergate/internal/config"
	"github.com/stonebridge/membergate/internal/payment/domain"
	"github.com/stonebridge/membergate/internal/payment/repository"
	paymentservice "github.com/stonebridge/membergate/internal/payment/service"
	"github.com/stonebridge/membergate/internal/payment/stripe"
	"github.com/stonebridge/membergate/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, log *zap.Logger) (domain.ProviderClient, error) {
		return stripe.NewClient(cfg.StripeAPIKey, log.Named("payment.stripe"))
	}),
	fx.Provide(func(cfg config.Config) (*webhook.Registry, error) {
		adapter, err := stripe.NewAdapter(cfg.StripeWebhookSecret)
		if err != nil {
			return nil, err
		}
		return webhook.NewRegistry(map[string]domain.Adapter{
			stripe.ProviderName: adapter,
		}), nil
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(func(svc *paymentservice.Service) domain.Service { return svc }),
	fx.Provide(webhook.NewService),
)
