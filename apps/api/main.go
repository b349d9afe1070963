package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/naijatax/taxguide/internal/migration"
	"github.com/naijatax/taxguide/internal/server"
	"github.com/naijatax/taxguide/pkg/db"
	"github.com/naijatax/taxguide/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(RegisterSnowflake),
		db.Module,
		telemetry.Module,
		migration.Module,

		server.Module,
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
