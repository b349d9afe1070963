package subscription

import (
	"github.com/naijatax/taxguide/internal/subscription/repository"
	"github.com/naijatax/taxguide/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
