package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/clock"
	"github.com/naijatax/taxguide/internal/config"
	"github.com/naijatax/taxguide/internal/credit"
	"github.com/naijatax/taxguide/internal/observability"
	"github.com/naijatax/taxguide/internal/providers/ai"
	"github.com/naijatax/taxguide/internal/qa"
	"github.com/naijatax/taxguide/internal/ratelimit"
	"github.com/naijatax/taxguide/internal/scheduler"
	"github.com/naijatax/taxguide/internal/subscription"
	"github.com/naijatax/taxguide/internal/translation"
	"github.com/naijatax/taxguide/pkg/db"
	"github.com/naijatax/taxguide/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Services the sweeps drive.
		ai.Module,
		qa.Module,
		credit.Module,
		subscription.Module,
		translation.Module,
		ratelimit.Module,

		scheduler.Module,

		// No server module.
		fx.Invoke(scheduler.StartScheduler),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
