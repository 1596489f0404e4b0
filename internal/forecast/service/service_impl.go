package service

import (
	"context"

	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"github.com/smallbiznis/greentrack/internal/clock"
	"github.com/smallbiznis/greentrack/internal/config"
	forecastdomain "github.com/smallbiznis/greentrack/internal/forecast/domain"
	"github.com/smallbiznis/greentrack/internal/forecast/engine"
	obsmetrics "github.com/smallbiznis/greentrack/internal/observability/metrics"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Engine       *config.EngineConfigHolder
	ActivityRepo activitydomain.Repository
	ProgramRepo  programdomain.Repository
	Metrics      *obsmetrics.Metrics `optional:"true"`
	Counters     *telemetry.Metrics  `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	engine       *config.EngineConfigHolder
	activityRepo activitydomain.Repository
	programRepo  programdomain.Repository
	metrics      *obsmetrics.Metrics
	counters     *telemetry.Metrics
}

func New(p Params) forecastdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("forecast.service"),
		clock:        p.Clock,
		engine:       p.Engine,
		activityRepo: p.ActivityRepo,
		programRepo:  p.ProgramRepo,
		metrics:      p.Metrics,
		counters:     p.Counters,
	}
}

// RequestForecast reads raw activities for the scope and never touches
// stored aggregates.
func (s *Service) RequestForecast(ctx context.Context, req forecastdomain.Request) (*forecastdomain.Forecast, error) {
	cfg := s.engine.Get()
	if req.HorizonMonths < 1 || req.HorizonMonths > cfg.MaxHorizonMonths {
		return nil, forecastdomain.ErrInvalidHorizon
	}
	if req.WindowMonths < 0 || req.WindowMonths > cfg.MaxWindowMonths {
		return nil, forecastdomain.ErrInvalidWindow
	}
	window := req.WindowMonths
	if window == 0 {
		window = cfg.WindowMonths
	}

	if req.Scope.ProgramID != nil {
		program, err := s.programRepo.FindProgramByID(ctx, s.db, *req.Scope.ProgramID)
		if err != nil {
			return nil, err
		}
		if program == nil {
			return nil, forecastdomain.ErrInvalidScope
		}
	}

	asOf := s.clock.Now()
	from, to := engine.Window(asOf, window)
	intent := activitydomain.IntentReduction
	activities, err := s.activityRepo.FindActivities(ctx, s.db, activitydomain.Filter{
		ProgramID: req.Scope.ProgramID,
		Range:     &activitydomain.DateRange{From: from, To: to},
		Intent:    &intent,
	})
	if err != nil {
		return nil, err
	}

	forecast := engine.Compute(engine.Input{
		Scope:         req.Scope.String(),
		Activities:    activities,
		AsOf:          asOf,
		HorizonMonths: req.HorizonMonths,
		WindowMonths:  window,
	}, cfg)
	forecast.GeneratedAt = asOf.UTC()

	s.metrics.RecordForecast(ctx, string(forecast.Status))
	s.counters.ObserveForecast(string(forecast.Status))
	s.log.Debug("forecast computed",
		zap.String("scope", forecast.Scope),
		zap.String("status", string(forecast.Status)),
		zap.Int("months_with_data", forecast.MonthsWithData),
	)
	return &forecast, nil
}
