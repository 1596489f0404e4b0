package aggregation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	auditdomain "github.com/smallbiznis/greentrack/internal/audit/domain"
	"github.com/smallbiznis/greentrack/internal/clock"
	"github.com/smallbiznis/greentrack/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/greentrack/internal/observability/metrics"
	"github.com/smallbiznis/greentrack/internal/observability/tracing"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrAggregationFailed = errors.New("aggregation_failed")

const (
	TriggerActivity = "activity"
	TriggerProgram  = "program"
	TriggerGoal     = "goal"
	TriggerRebuild  = "rebuild"
	TriggerSweep    = "sweep"
)

const rebuildConcurrency = 4

// ActivityChange describes a persisted activity write. Old and new owner
// differ when the activity moved between programs.
type ActivityChange struct {
	ActivityID   snowflake.ID
	OldProgramID *snowflake.ID
	NewProgramID *snowflake.ID
}

// AffectedPrograms returns the distinct owners touched by the change in
// ascending id order.
func (c ActivityChange) AffectedPrograms() []snowflake.ID {
	ids := make([]snowflake.ID, 0, 2)
	for _, id := range []*snowflake.ID{c.OldProgramID, c.NewProgramID} {
		if id == nil || *id == 0 || slices.Contains(ids, *id) {
			continue
		}
		ids = append(ids, *id)
	}
	slices.Sort(ids)
	return ids
}

type GoalTransition struct {
	GoalID    snowflake.ID
	ProgramID snowflake.ID
	From      programdomain.GoalState
	To        programdomain.GoalState
}

// Result is the outcome of recomputing one program.
type Result struct {
	Program     programdomain.ProgramAggregate
	Goals       []programdomain.GoalAggregate
	Transitions []GoalTransition
	Awarded     []programdomain.Goal
}

// WriteFunc persists a change inside the recompute transaction.
type WriteFunc func(tx *gorm.DB) error

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	ActivityRepo activitydomain.Repository
	ProgramRepo  programdomain.Repository
	Locker       Locker
	Metrics      *obsmetrics.Metrics  `optional:"true"`
	Counters     *telemetry.Metrics   `optional:"true"`
	Notifier     auditdomain.Notifier `optional:"true"`
}

// Engine keeps program and goal aggregates consistent with activities by
// recomputing them from the full source set.
type Engine struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	graph        *Graph
	steps        map[Attribute]step
	activityRepo activitydomain.Repository
	programRepo  programdomain.Repository
	locker       Locker
	metrics      *obsmetrics.Metrics
	counters     *telemetry.Metrics
	notifier     auditdomain.Notifier
}

func New(p Params) (*Engine, error) {
	locker := p.Locker
	if locker == nil {
		locker = NewMemoryLocker()
	}
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}

	e := &Engine{
		db:           p.DB,
		log:          p.Log.Named("aggregation.engine"),
		clock:        c,
		graph:        DefaultGraph(),
		steps:        defaultSteps(),
		activityRepo: p.ActivityRepo,
		programRepo:  p.ProgramRepo,
		locker:       locker,
		metrics:      p.Metrics,
		counters:     p.Counters,
		notifier:     p.Notifier,
	}
	for _, attr := range e.graph.Order() {
		if _, ok := e.steps[attr]; !ok {
			return nil, fmt.Errorf("no recompute step for %q", attr)
		}
	}
	return e, nil
}

func (e *Engine) Graph() *Graph {
	return e.graph
}

// RecomputeProgram rebuilds a program and all of its goals.
func (e *Engine) RecomputeProgram(ctx context.Context, programID snowflake.ID) error {
	_, err := e.run(ctx, TriggerProgram, []snowflake.ID{programID}, nil, nil)
	return err
}

// RecomputeGoal rebuilds a single goal from its program's activities.
func (e *Engine) RecomputeGoal(ctx context.Context, goalID snowflake.ID) error {
	goal, err := e.programRepo.FindGoalByID(ctx, e.db, goalID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAggregationFailed, err)
	}
	if goal == nil {
		return programdomain.ErrGoalNotFound
	}
	_, err = e.run(ctx, TriggerGoal, []snowflake.ID{goal.ProgramID}, &goalID, nil)
	return err
}

// OnActivityChanged recomputes every program the change touched.
func (e *Engine) OnActivityChanged(ctx context.Context, change ActivityChange) ([]Result, error) {
	return e.Apply(ctx, change, nil)
}

// Apply runs write and the cascade for change in one transaction while
// holding the locks of every affected program. A failed cascade rolls the
// write back.
func (e *Engine) Apply(ctx context.Context, change ActivityChange, write WriteFunc) ([]Result, error) {
	return e.run(ctx, TriggerActivity, change.AffectedPrograms(), nil, write)
}

// Recompute rebuilds each program in its own transaction.
func (e *Engine) Recompute(ctx context.Context, trigger string, programIDs ...snowflake.ID) error {
	var errs []error
	for _, id := range programIDs {
		if _, err := e.run(ctx, trigger, []snowflake.ID{id}, nil, nil); err != nil {
			errs = append(errs, fmt.Errorf("program %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// RecomputeAll rebuilds every program.
func (e *Engine) RecomputeAll(ctx context.Context) error {
	ids, err := e.programRepo.ListProgramIDs(ctx, e.db)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAggregationFailed, err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := e.Recompute(gctx, TriggerRebuild, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	e.log.Info("rebuilt program aggregates", zap.Int("programs", len(ids)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func (e *Engine) run(ctx context.Context, trigger string, programIDs []snowflake.ID, goalID *snowflake.ID, write WriteFunc) (results []Result, err error) {
	start := time.Now()
	ctx, span := otel.Tracer("greentrack/aggregation").Start(ctx, "aggregation.recompute")
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("trigger", trigger),
		attribute.Int("programs", len(programIDs)),
	)...)
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "recompute failed")
		}
		span.End()
		e.observe(ctx, trigger, err, time.Since(start))
	}()

	unlock, err := e.lockAll(ctx, programIDs)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var body bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if write != nil {
			if err := write(tx); err != nil {
				return err
			}
		}
		for _, id := range programIDs {
			res, err := e.recompute(ctx, tx, id, goalID)
			if err != nil {
				return err
			}
			results = append(results, *res)
		}
		body = true
		return nil
	})
	if err != nil {
		if body && !errors.Is(err, ErrAggregationFailed) {
			err = fmt.Errorf("%w: commit: %w", ErrAggregationFailed, err)
		}
		if errors.Is(err, ErrAggregationFailed) {
			logger.WithContext(ctx, e.log).Warn("recompute failed",
				zap.String("trigger", trigger),
				zap.Error(err),
			)
		}
		return nil, err
	}

	e.publish(ctx, results)
	return results, nil
}

func (e *Engine) lockAll(ctx context.Context, programIDs []snowflake.ID) (func(), error) {
	ids := slices.Clone(programIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	releases := make([]func(), 0, len(ids))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range ids {
		release, err := e.locker.Lock(ctx, strconv.FormatInt(id.Int64(), 10))
		if err != nil {
			unlock()
			return nil, fmt.Errorf("%w: lock program %s: %w", ErrAggregationFailed, id, err)
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

func (e *Engine) recompute(ctx context.Context, tx *gorm.DB, programID snowflake.ID, goalID *snowflake.ID) (*Result, error) {
	p := &pass{
		ctx:       ctx,
		tx:        tx,
		engine:    e,
		programID: programID,
		goalID:    goalID,
	}
	for _, attr := range e.graph.Order() {
		if err := e.steps[attr](p); err != nil {
			return nil, err
		}
	}

	now := e.clock.Now().UTC()
	res := &Result{}
	if goalID == nil {
		res.Program = programdomain.ProgramAggregate{
			ProgramID:          programID,
			ActualCO2Reduction: p.programActual,
			ProgressPercentage: p.programPercent,
			ActivityCount:      p.programCount,
			RecomputedAt:       now,
		}
		if err := e.programRepo.WriteProgramAggregate(ctx, tx, res.Program); err != nil {
			return nil, storageErr(err)
		}
	}

	for i, goal := range p.goals {
		agg := programdomain.GoalAggregate{
			GoalID:                goal.ID,
			ActualCO2Reduction:    p.goalActual[i],
			AchievementPercentage: p.goalPercent[i],
			State:                 p.goalState[i],
			PointsAwarded:         p.goalAwarded[i],
			RecomputedAt:          now,
		}
		if err := e.programRepo.WriteGoalAggregate(ctx, tx, agg); err != nil {
			return nil, storageErr(err)
		}
		res.Goals = append(res.Goals, agg)

		if goal.State != agg.State {
			res.Transitions = append(res.Transitions, GoalTransition{
				GoalID:    goal.ID,
				ProgramID: programID,
				From:      goal.State,
				To:        agg.State,
			})
		}
		if agg.PointsAwarded && !goal.PointsAwarded {
			awarded := goal
			awarded.ActualCO2Reduction = agg.ActualCO2Reduction
			awarded.AchievementPercentage = agg.AchievementPercentage
			awarded.State = agg.State
			awarded.PointsAwarded = true
			res.Awarded = append(res.Awarded, awarded)
		}
	}
	return res, nil
}

func (e *Engine) publish(ctx context.Context, results []Result) {
	for _, res := range results {
		for _, tr := range res.Transitions {
			e.metrics.RecordGoalTransition(ctx, string(tr.From), string(tr.To))
		}
		for _, goal := range res.Awarded {
			logger.WithProgram(e.log, goal.ProgramID.String()).Info("goal achieved",
				zap.String("goal_id", goal.ID.String()),
				zap.Int("reward_points", goal.RewardPoints),
			)
			if e.notifier == nil {
				continue
			}
			e.notifier.Notify(ctx, auditdomain.Entry{
				Action:     auditdomain.ActionGoalAchieved,
				TargetType: auditdomain.TargetGoal,
				TargetID:   goal.ID.String(),
				Metadata: map[string]any{
					"program_id":             goal.ProgramID.String(),
					"reward_points":          goal.RewardPoints,
					"achievement_percentage": goal.AchievementPercentage,
				},
			})
		}
	}
}

func (e *Engine) observe(ctx context.Context, trigger string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordRecompute(ctx, trigger, status)
	e.counters.ObserveRecompute(trigger, err, elapsed)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrAggregationFailed, err)
}
