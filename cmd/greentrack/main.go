package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greentrack/internal/activity"
	"github.com/smallbiznis/greentrack/internal/aggregation"
	"github.com/smallbiznis/greentrack/internal/audit"
	"github.com/smallbiznis/greentrack/internal/clock"
	"github.com/smallbiznis/greentrack/internal/config"
	"github.com/smallbiznis/greentrack/internal/emissionfactor"
	"github.com/smallbiznis/greentrack/internal/forecast"
	"github.com/smallbiznis/greentrack/internal/migration"
	"github.com/smallbiznis/greentrack/internal/observability"
	"github.com/smallbiznis/greentrack/internal/program"
	"github.com/smallbiznis/greentrack/internal/scheduler"
	"github.com/smallbiznis/greentrack/internal/server"
	"github.com/smallbiznis/greentrack/internal/tracker"
	"github.com/smallbiznis/greentrack/pkg/db"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		activity.Module,
		program.Module,
		audit.Module,
		emissionfactor.Module,
		aggregation.Module,
		forecast.Module,
		tracker.Module,
		scheduler.Module,

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
