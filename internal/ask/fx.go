package ask

import (
	"github.com/naijatax/taxguide/internal/ask/repository"
	"github.com/naijatax/taxguide/internal/ask/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ask.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
