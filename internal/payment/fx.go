package payment

import (
	"github.com/naijatax/taxguide/internal/config"
	"github.com/naijatax/taxguide/internal/payment/adapters/paystack"
	"github.com/naijatax/taxguide/internal/payment/repository"
	"github.com/naijatax/taxguide/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(func(cfg config.Config) *paystack.Adapter {
		return paystack.NewAdapter(cfg.PaystackSecretKey)
	}),
	fx.Provide(paystack.NewClient),
	fx.Provide(func(c *paystack.Client) paystack.Verifier { return c }),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
