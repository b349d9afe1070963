package usage

import (
	"github.com/naijatax/taxguide/internal/usage/repository"
	"github.com/naijatax/taxguide/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
