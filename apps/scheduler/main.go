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
	"github.com/smallbiznis/greentrack/internal/observability"
	"github.com/smallbiznis/greentrack/internal/program"
	"github.com/smallbiznis/greentrack/internal/scheduler"
	"github.com/smallbiznis/greentrack/internal/tracker"
	"github.com/smallbiznis/greentrack/pkg/db"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.uber.org/fx"
)

// Standalone goal sweeper. Run next to API replicas started with
// SCHEDULER_ENABLED=false so only one process sweeps.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the sweeper
		activity.Module,
		program.Module,
		audit.Module,
		emissionfactor.Module,
		aggregation.Module,
		forecast.Module,
		tracker.Module,

		// No server module!
		scheduler.Module,
		fx.Decorate(func(cfg scheduler.Config) scheduler.Config {
			cfg.Enabled = true
			return cfg
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	// node 1 belongs to the API process
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
