package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"github.com/smallbiznis/greentrack/internal/aggregation"
	auditdomain "github.com/smallbiznis/greentrack/internal/audit/domain"
	"github.com/smallbiznis/greentrack/internal/clock"
	"github.com/smallbiznis/greentrack/internal/emissionfactor"
	forecastdomain "github.com/smallbiznis/greentrack/internal/forecast/domain"
	obscontext "github.com/smallbiznis/greentrack/internal/observability/context"
	"github.com/smallbiznis/greentrack/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/greentrack/internal/observability/metrics"
	"github.com/smallbiznis/greentrack/internal/observability/tracing"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	trackerdomain "github.com/smallbiznis/greentrack/internal/tracker/domain"
	"github.com/smallbiznis/greentrack/pkg/db"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const staleGoalBatchSize = 100

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	ActivityRepo activitydomain.Repository
	ProgramRepo  programdomain.Repository
	Engine       *aggregation.Engine
	Resolver     *emissionfactor.Resolver
	Forecasts    forecastdomain.Service
	Notifier     auditdomain.Notifier `optional:"true"`
	Metrics      *obsmetrics.Metrics  `optional:"true"`
	Counters     *telemetry.Metrics   `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	activityRepo activitydomain.Repository
	programRepo  programdomain.Repository
	engine       *aggregation.Engine
	resolver     *emissionfactor.Resolver
	forecasts    forecastdomain.Service
	notifier     auditdomain.Notifier
	metrics      *obsmetrics.Metrics
	counters     *telemetry.Metrics
	tracer       trace.Tracer
}

func New(p Params) trackerdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("tracker.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		activityRepo: p.ActivityRepo,
		programRepo:  p.ProgramRepo,
		engine:       p.Engine,
		resolver:     p.Resolver,
		forecasts:    p.Forecasts,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
		counters:     p.Counters,
		tracer:       otel.Tracer("greentrack/tracker"),
	}
}

// IsValidationError reports whether err rejects caller input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		activitydomain.ErrInvalidQuantity,
		activitydomain.ErrInvalidCategory,
		activitydomain.ErrInvalidIntent,
		activitydomain.ErrInvalidDate,
		activitydomain.ErrInvalidFactor,
		activitydomain.ErrInvalidUnit,
		activitydomain.ErrInvalidSource,
		activitydomain.ErrInvalidID,
		programdomain.ErrInvalidName,
		programdomain.ErrInvalidTarget,
		programdomain.ErrInvalidDates,
		programdomain.ErrInvalidCategory,
		programdomain.ErrInvalidStatus,
		programdomain.ErrInvalidRewardPoints,
		programdomain.ErrInvalidID,
		programdomain.ErrProgramNotFound,
		programdomain.ErrGoalNotFound,
		forecastdomain.ErrInvalidScope,
		forecastdomain.ErrInvalidHorizon,
		forecastdomain.ErrInvalidWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Service) RecordActivity(ctx context.Context, req trackerdomain.RecordActivityRequest) (_ *activitydomain.Activity, err error) {
	ctx, span := s.tracer.Start(ctx, "tracker.record_activity")
	defer func() { endSpan(span, err) }()

	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	intent, err := parseIntent(req.Intent)
	if err != nil {
		return nil, err
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, activitydomain.ErrInvalidDate
	}
	unit, err := parseUnit(req.Unit, category)
	if err != nil {
		return nil, err
	}
	source := activitydomain.SourceManual
	if raw := strings.TrimSpace(req.Source); raw != "" {
		source = activitydomain.Source(strings.ToLower(raw))
		if !source.Valid() {
			return nil, activitydomain.ErrInvalidSource
		}
	}
	if req.EmissionFactor != nil {
		if err := validateFactor(*req.EmissionFactor); err != nil {
			return nil, err
		}
	}
	if err := checkUnit(category, unit, req.EmissionFactor != nil); err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("category", string(category)),
		attribute.String("intent", string(intent)),
	)...)

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.activityRepo.FindByIdempotencyKey(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	programID, err := s.resolveProgram(ctx, req.ProgramID)
	if err != nil {
		return nil, err
	}

	factor, factorSource, err := s.factorFor(ctx, category, req.EmissionFactor)
	if err != nil {
		return nil, err
	}

	date := activitydomain.CalendarDay(req.Date)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = activitydomain.Describe(category, req.Quantity, unit, date)
	}
	_, actorID := obscontext.ActorFromContext(ctx)

	now := s.clock.Now().UTC()
	activity := &activitydomain.Activity{
		ID:             s.genID.Generate(),
		Name:           name,
		Category:       category,
		Intent:         intent,
		Quantity:       req.Quantity,
		Unit:           unit,
		Date:           date,
		EmissionFactor: factor,
		CO2Amount:      req.Quantity * factor,
		FactorSource:   factorSource,
		ProgramID:      programID,
		ActorID:        actorID,
		Source:         source,
		Notes:          strings.TrimSpace(req.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if key != "" {
		activity.IdempotencyKey = &key
	}

	_, err = s.engine.Apply(ctx, aggregation.ActivityChange{
		ActivityID:   activity.ID,
		NewProgramID: programID,
	}, func(tx *gorm.DB) error {
		return s.activityRepo.Save(ctx, tx, activity)
	})
	if err != nil {
		if key != "" && db.IsDuplicateKeyErr(err) {
			existing, findErr := s.activityRepo.FindByIdempotencyKey(ctx, s.db, key)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.metrics.RecordActivity(ctx, string(category), string(intent))
	s.counters.ObserveActivity("record", string(category), activity.CO2Saved())
	s.notify(ctx, auditdomain.ActionActivityRecorded, activity, nil)
	logger.WithContext(ctx, s.log).Info("activity recorded",
		zap.String("activity_id", activity.ID.String()),
		zap.String("category", string(category)),
		zap.String("factor_source", string(factorSource)),
		zap.Float64("co2_amount", activity.CO2Amount),
	)
	return activity, nil
}

func (s *Service) UpdateActivity(ctx context.Context, req trackerdomain.UpdateActivityRequest) (_ *activitydomain.Activity, err error) {
	ctx, span := s.tracer.Start(ctx, "tracker.update_activity")
	defer func() { endSpan(span, err) }()

	id, err := activitydomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, err
	}
	current, err := s.activityRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, activitydomain.ErrNotFound
	}

	next := *current
	autoName := current.Name == activitydomain.Describe(current.Category, current.Quantity, current.Unit, current.Date)

	if req.Category != nil {
		if next.Category, err = parseCategory(*req.Category); err != nil {
			return nil, err
		}
	}
	if req.Intent != nil {
		if next.Intent, err = parseIntent(*req.Intent); err != nil {
			return nil, err
		}
	}
	if req.Quantity != nil {
		if err := validateQuantity(*req.Quantity); err != nil {
			return nil, err
		}
		next.Quantity = *req.Quantity
	}
	if req.Date != nil {
		if req.Date.IsZero() {
			return nil, activitydomain.ErrInvalidDate
		}
		next.Date = activitydomain.CalendarDay(*req.Date)
	}
	switch {
	case req.Unit != nil:
		if next.Unit, err = parseUnit(*req.Unit, next.Category); err != nil {
			return nil, err
		}
	case next.Category != current.Category:
		next.Unit = next.Category.DefaultUnit()
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.ProgramID != nil {
		if next.ProgramID, err = s.resolveProgram(ctx, *req.ProgramID); err != nil {
			return nil, err
		}
	}

	switch {
	case req.EmissionFactor != nil:
		if err := validateFactor(*req.EmissionFactor); err != nil {
			return nil, err
		}
		next.EmissionFactor = *req.EmissionFactor
		next.FactorSource = activitydomain.FactorSourceExplicit
	case next.Category != current.Category:
		if next.EmissionFactor, next.FactorSource, err = s.factorFor(ctx, next.Category, nil); err != nil {
			return nil, err
		}
	}
	if err := checkUnit(next.Category, next.Unit, next.FactorSource == activitydomain.FactorSourceExplicit); err != nil {
		return nil, err
	}
	next.CO2Amount = next.Quantity * next.EmissionFactor
	if autoName {
		next.Name = activitydomain.Describe(next.Category, next.Quantity, next.Unit, next.Date)
	}
	next.UpdatedAt = s.clock.Now().UTC()

	_, err = s.engine.Apply(ctx, aggregation.ActivityChange{
		ActivityID:   id,
		OldProgramID: current.ProgramID,
		NewProgramID: next.ProgramID,
	}, func(tx *gorm.DB) error {
		// the owner was read before the program locks were taken
		stored, err := s.activityRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if stored == nil {
			return activitydomain.ErrNotFound
		}
		if !sameProgram(stored.ProgramID, current.ProgramID) {
			return fmt.Errorf("%w: %w", aggregation.ErrAggregationFailed, trackerdomain.ErrConcurrentUpdate)
		}
		return s.activityRepo.Update(ctx, tx, &next)
	})
	if err != nil {
		return nil, err
	}

	s.counters.ObserveActivity("update", string(next.Category), next.CO2Saved())
	s.notify(ctx, auditdomain.ActionActivityUpdated, &next, map[string]any{
		"previous_program_id": programIDString(current.ProgramID),
		"previous_co2_amount": current.CO2Amount,
	})
	return &next, nil
}

func (s *Service) DeleteActivity(ctx context.Context, rawID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "tracker.delete_activity")
	defer func() { endSpan(span, err) }()

	id, err := activitydomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return err
	}
	current, err := s.activityRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if current == nil {
		return activitydomain.ErrNotFound
	}

	_, err = s.engine.Apply(ctx, aggregation.ActivityChange{
		ActivityID:   id,
		OldProgramID: current.ProgramID,
	}, func(tx *gorm.DB) error {
		stored, err := s.activityRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if stored == nil {
			return activitydomain.ErrNotFound
		}
		if !sameProgram(stored.ProgramID, current.ProgramID) {
			return fmt.Errorf("%w: %w", aggregation.ErrAggregationFailed, trackerdomain.ErrConcurrentUpdate)
		}
		return s.activityRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.counters.ObserveActivity("delete", string(current.Category), 0)
	s.notify(ctx, auditdomain.ActionActivityDeleted, current, nil)
	return nil
}

func (s *Service) RequestForecast(ctx context.Context, req forecastdomain.Request) (_ *forecastdomain.Forecast, err error) {
	ctx, span := s.tracer.Start(ctx, "tracker.request_forecast")
	defer func() { endSpan(span, err) }()

	span.SetAttributes(attribute.String("scope", req.Scope.String()), attribute.Int("horizon", req.HorizonMonths))
	return s.forecasts.RequestForecast(ctx, req)
}

// RefreshGoalStates recomputes programs whose open goals passed their
// target date. It returns the number of programs recomputed.
func (s *Service) RefreshGoalStates(ctx context.Context) (int, error) {
	today := clock.Today(s.clock)
	refreshed := 0
	for {
		ids, err := s.programRepo.ListProgramsWithStaleGoals(ctx, s.db, today, staleGoalBatchSize)
		if err != nil {
			return refreshed, err
		}
		if len(ids) == 0 {
			return refreshed, nil
		}
		if err := s.engine.Recompute(ctx, aggregation.TriggerSweep, ids...); err != nil {
			return refreshed, err
		}
		refreshed += len(ids)
		if len(ids) < staleGoalBatchSize {
			return refreshed, nil
		}
	}
}

func (s *Service) RecomputeProgram(ctx context.Context, rawID string) (*trackerdomain.ProgramSummary, error) {
	id, err := programdomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	if err := s.engine.RecomputeProgram(ctx, id); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionProgramRecomputed,
			TargetType: auditdomain.TargetProgram,
			TargetID:   id.String(),
		})
	}
	return s.summary(ctx, id)
}

func (s *Service) ProgramSummary(ctx context.Context, rawID string) (*trackerdomain.ProgramSummary, error) {
	id, err := programdomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, id)
}

func (s *Service) summary(ctx context.Context, id snowflake.ID) (*trackerdomain.ProgramSummary, error) {
	program, err := s.programRepo.FindProgramByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, programdomain.ErrProgramNotFound
	}
	goals, err := s.programRepo.FindGoals(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []programdomain.Goal{}
	}
	return &trackerdomain.ProgramSummary{Program: *program, Goals: goals}, nil
}

func (s *Service) resolveProgram(ctx context.Context, raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := programdomain.ParseID(raw)
	if err != nil {
		return nil, err
	}
	program, err := s.programRepo.FindProgramByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, programdomain.ErrProgramNotFound
	}
	return &id, nil
}

func (s *Service) factorFor(ctx context.Context, category activitydomain.Category, explicit *float64) (float64, activitydomain.FactorSource, error) {
	if explicit != nil {
		return *explicit, activitydomain.FactorSourceExplicit, nil
	}
	res, err := s.resolver.Resolve(ctx, category)
	if err != nil {
		return 0, "", err
	}
	return res.Factor, res.Source, nil
}

func (s *Service) notify(ctx context.Context, action string, a *activitydomain.Activity, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	metadata := map[string]any{
		"category":      string(a.Category),
		"intent":        string(a.Intent),
		"co2_amount":    a.CO2Amount,
		"factor_source": string(a.FactorSource),
		"program_id":    programIDString(a.ProgramID),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	s.notifier.Notify(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: auditdomain.TargetActivity,
		TargetID:   a.ID.String(),
		Metadata:   metadata,
	})
}

func parseCategory(raw string) (activitydomain.Category, error) {
	category := activitydomain.Category(strings.ToLower(strings.TrimSpace(raw)))
	if !category.Valid() {
		return "", activitydomain.ErrInvalidCategory
	}
	return category, nil
}

func parseIntent(raw string) (activitydomain.Intent, error) {
	intent := activitydomain.Intent(strings.ToLower(strings.TrimSpace(raw)))
	if !intent.Valid() {
		return "", activitydomain.ErrInvalidIntent
	}
	return intent, nil
}

func parseUnit(raw string, category activitydomain.Category) (activitydomain.Unit, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return category.DefaultUnit(), nil
	}
	unit := activitydomain.Unit(raw)
	if !unit.Valid() {
		return "", activitydomain.ErrInvalidUnit
	}
	return unit, nil
}

// checkUnit rejects units the per-unit factor table does not describe for
// the category. An explicit factor is taken to match its unit.
func checkUnit(category activitydomain.Category, unit activitydomain.Unit, explicitFactor bool) error {
	if explicitFactor || unit == category.DefaultUnit() {
		return nil
	}
	return fmt.Errorf("%w: %s is measured in %s", activitydomain.ErrInvalidUnit, category, category.DefaultUnit())
}

func validateQuantity(q float64) error {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return activitydomain.ErrInvalidQuantity
	}
	return nil
}

func validateFactor(f float64) error {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return activitydomain.ErrInvalidFactor
	}
	return nil
}

func sameProgram(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func programIDString(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "request failed")
	}
	span.End()
}
