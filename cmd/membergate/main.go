package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stonebridge/membergate/internal/config"
	"github.com/stonebridge/membergate/internal/migration"
	"github.com/stonebridge/membergate/internal/observability"
	"github.com/stonebridge/membergate/internal/server"
	"github.com/stonebridge/membergate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
