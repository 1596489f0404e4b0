package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/greentrack/internal/audit/domain"
	"github.com/smallbiznis/greentrack/internal/config"
	"github.com/smallbiznis/greentrack/internal/observability"
	obslogger "github.com/smallbiznis/greentrack/internal/observability/logger"
	obstracing "github.com/smallbiznis/greentrack/internal/observability/tracing"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	trackerdomain "github.com/smallbiznis/greentrack/internal/tracker/domain"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsConfig observability.Config
	Metrics   *telemetry.Metrics `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           p.ObsConfig.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(APIMetrics(p.Metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine   *gin.Engine
	Log      *zap.Logger
	Tracker  trackerdomain.Service
	Programs programdomain.Service
	Audit    auditdomain.Service `optional:"true"`
}

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	tracker  trackerdomain.Service
	programs programdomain.Service
	audit    auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:   p.Engine,
		log:      p.Log.Named("http.server"),
		tracker:  p.Tracker,
		programs: p.Programs,
		audit:    p.Audit,
	}
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/v1")

	api.POST("/activities", s.RecordActivity)
	api.PATCH("/activities/:id", s.UpdateActivity)
	api.DELETE("/activities/:id", s.DeleteActivity)

	api.POST("/programs", s.CreateProgram)
	api.GET("/programs/:id", s.GetProgram)
	api.PATCH("/programs/:id", s.UpdateProgram)
	api.GET("/programs/:id/goals", s.ListGoals)
	api.POST("/programs/:id/goals", s.CreateGoal)
	api.POST("/programs/:id/recompute", s.RecomputeProgram)

	api.GET("/forecasts", s.GetForecast)

	if s.audit != nil {
		api.GET("/audit-logs", s.ListAuditLogs)
	}
}
