package translation

import (
	"github.com/naijatax/taxguide/internal/translation/repository"
	"github.com/naijatax/taxguide/internal/translation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("translation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
