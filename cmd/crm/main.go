package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/salestext/dtax-crm/internal/clock"
	"github.com/salestext/dtax-crm/internal/config"
	"github.com/salestext/dtax-crm/internal/logger"
	"github.com/salestext/dtax-crm/internal/migration"
	"github.com/salestext/dtax-crm/internal/scheduler"
	"github.com/salestext/dtax-crm/internal/server"
	"github.com/salestext/dtax-crm/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
