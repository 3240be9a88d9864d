package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/config"
	"github.com/harborline/catalog/internal/migration"
	"github.com/harborline/catalog/internal/observability"
	"github.com/harborline/catalog/internal/server"
	"github.com/harborline/catalog/internal/sweeper"
	"github.com/harborline/catalog/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		sweeper.Module,
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
