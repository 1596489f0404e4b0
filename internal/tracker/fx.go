package tracker

import (
	"github.com/smallbiznis/greentrack/internal/tracker/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tracker.service",
	fx.Provide(service.New),
)
