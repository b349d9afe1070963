package credit

import (
	"github.com/naijatax/taxguide/internal/credit/repository"
	"github.com/naijatax/taxguide/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
