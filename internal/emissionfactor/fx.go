package emissionfactor

import (
	"net/http"
	"strings"

	"github.com/smallbiznis/greentrack/internal/cache"
	"github.com/smallbiznis/greentrack/internal/config"
	obsmetrics "github.com/smallbiznis/greentrack/internal/observability/metrics"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("emissionfactor",
	fx.Provide(NewProvider),
	fx.Provide(NewFromConfig),
)

// NewProvider returns the HTTP provider, or nil when no URL is configured.
func NewProvider(cfg config.Config) (Provider, error) {
	if strings.TrimSpace(cfg.Factor.ProviderURL) == "" {
		return nil, nil
	}
	provider, err := NewHTTPProvider(cfg.Factor.ProviderURL, &http.Client{Timeout: cfg.Factor.Timeout * 2})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

type Params struct {
	fx.In

	Config   config.Config
	Provider Provider
	Engine   *config.EngineConfigHolder
	Log      *zap.Logger
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Counters *telemetry.Metrics  `optional:"true"`
}

func NewFromConfig(p Params) *Resolver {
	return NewResolver(ResolverOptions{
		Provider: p.Provider,
		Region:   p.Config.Factor.Region,
		Timeout:  p.Config.Factor.Timeout,
		Cache:    cache.NewFactorCache(p.Config.Factor.CacheTTL),
		Engine:   p.Engine,
		Log:      p.Log,
		Metrics:  p.Metrics,
		Counters: p.Counters,
	})
}
