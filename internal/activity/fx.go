package activity

import (
	"github.com/smallbiznis/greentrack/internal/activity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.repository",
	fx.Provide(repository.Provide),
)
