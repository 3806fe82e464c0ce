package videocontent

import (
	"github.com/stonebridge/membergate/internal/videocontent/repository"
	"github.com/stonebridge/membergate/internal/videocontent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("videocontent",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
