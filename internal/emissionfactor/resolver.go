package emissionfactor

import (
	"context"
	"errors"
	"time"

	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"github.com/smallbiznis/greentrack/internal/cache"
	"github.com/smallbiznis/greentrack/internal/config"
	obsmetrics "github.com/smallbiznis/greentrack/internal/observability/metrics"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	fallbackReasonUnconfigured = "unconfigured"
	fallbackReasonTimeout      = "timeout"
	fallbackReasonError        = "error"
)

// Resolution is a factor together with where it came from.
type Resolution struct {
	Factor float64
	Source activitydomain.FactorSource
}

// Resolver bounds a Provider with a timeout and falls back to the
// configured static table. Lookups for known categories never fail.
type Resolver struct {
	provider Provider
	region   string
	timeout  time.Duration
	cache    cache.FactorCache
	group    singleflight.Group
	engine   *config.EngineConfigHolder
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
	counters *telemetry.Metrics
}

type ResolverOptions struct {
	Provider Provider
	Region   string
	Timeout  time.Duration
	Cache    cache.FactorCache
	Engine   *config.EngineConfigHolder
	Log      *zap.Logger
	Metrics  *obsmetrics.Metrics
	Counters *telemetry.Metrics
}

func NewResolver(opts ResolverOptions) *Resolver {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	engine := opts.Engine
	if engine == nil {
		engine = config.NewStaticEngineConfigHolder(config.DefaultEngineConfig())
	}
	factorCache := opts.Cache
	if factorCache == nil {
		factorCache = cache.NewFactorCache(0)
	}
	return &Resolver{
		provider: opts.Provider,
		region:   opts.Region,
		timeout:  timeout,
		cache:    factorCache,
		engine:   engine,
		log:      log.Named("emissionfactor.resolver"),
		metrics:  opts.Metrics,
		counters: opts.Counters,
	}
}

// Resolve returns the factor for category. Provider errors and timeouts
// are logged and served from the fallback table.
func (r *Resolver) Resolve(ctx context.Context, category activitydomain.Category) (Resolution, error) {
	if !category.Valid() {
		return Resolution{}, activitydomain.ErrInvalidCategory
	}

	if r.provider == nil {
		return r.fallback(ctx, category, fallbackReasonUnconfigured, nil), nil
	}

	if factor, ok := r.cache.GetFactor(string(category), r.region); ok {
		r.observe(category, activitydomain.FactorSourceProvider)
		return Resolution{Factor: factor, Source: activitydomain.FactorSourceProvider}, nil
	}

	key := string(category) + "|" + r.region
	ch := r.group.DoChan(key, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		start := time.Now()
		factor, err := r.provider.ResolveFactor(lookupCtx, category, r.region)
		if r.counters != nil {
			r.counters.ObserveFactorLatency(time.Since(start))
		}
		if err != nil {
			if errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
				return 0.0, context.DeadlineExceeded
			}
			return 0.0, err
		}
		if factor < 0 {
			return 0.0, ErrInvalidResponse
		}
		r.cache.SetFactor(string(category), r.region, factor)
		return factor, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return r.fallback(ctx, category, fallbackReasonTimeout, ctx.Err()), nil
	}

	if res.Err != nil {
		reason := fallbackReasonError
		if errors.Is(res.Err, context.DeadlineExceeded) {
			reason = fallbackReasonTimeout
		}
		return r.fallback(ctx, category, reason, res.Err), nil
	}

	r.observe(category, activitydomain.FactorSourceProvider)
	return Resolution{Factor: res.Val.(float64), Source: activitydomain.FactorSourceProvider}, nil
}

func (r *Resolver) fallback(ctx context.Context, category activitydomain.Category, reason string, cause error) Resolution {
	factor, ok := r.engine.Get().FallbackFactors[string(category)]
	if !ok {
		factor = config.DefaultEngineConfig().FallbackFactors[string(category)]
	}

	if cause != nil {
		r.log.Warn("emission factor provider failed, using fallback",
			zap.String("category", string(category)),
			zap.String("reason", reason),
			zap.Float64("factor", factor),
			zap.Error(cause),
		)
	}
	r.metrics.RecordFactorFallback(ctx, string(category), reason)
	r.observe(category, activitydomain.FactorSourceFallback)

	return Resolution{Factor: factor, Source: activitydomain.FactorSourceFallback}
}

func (r *Resolver) observe(category activitydomain.Category, source activitydomain.FactorSource) {
	if r.counters == nil {
		return
	}
	r.counters.ObserveFactorLookup(string(category), string(source))
}
