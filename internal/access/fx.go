package access

import (
	"github.com/stonebridge/membergate/internal/access/service"
	"github.com/stonebridge/membergate/internal/access/token"
	"github.com/stonebridge/membergate/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("access",
	fx.Provide(func(cfg config.Config) (*token.Signer, error) {
		return token.NewSigner(cfg.AccessTokenSecret, cfg.AccessTokenTTL)
	}),
	fx.Provide(service.NewService),
)
