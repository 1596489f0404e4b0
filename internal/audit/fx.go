package audit

import (
	auditdomain "github.com/smallbiznis/greentrack/internal/audit/domain"
	"github.com/smallbiznis/greentrack/internal/audit/repository"
	"github.com/smallbiznis/greentrack/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) auditdomain.Service { return s }),
	fx.Provide(func(s *service.Service) auditdomain.Notifier { return s }),
)
