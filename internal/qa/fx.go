package qa

import (
	"github.com/naijatax/taxguide/internal/qa/repository"
	"github.com/naijatax/taxguide/internal/qa/service"
	"go.uber.org/fx"
)

var Module = fx.Module("qa.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
