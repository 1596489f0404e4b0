package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greentrack/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshGoalStates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newTestScheduler(t *testing.T, refresher GoalRefresher, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	sched, err := New(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
		Refresher: refresher,
		Config:    cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)

	cfg = Config{RunInterval: time.Minute, JobTimeout: time.Second}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, time.Second, cfg.JobTimeout)
}

func TestRunOnceCallsGoalSweep(t *testing.T) {
	refresher := &mockRefresher{}
	refresher.On("RefreshGoalStates", mock.Anything).Return(3, nil).Once()

	sched := newTestScheduler(t, refresher, Config{})
	require.NoError(t, sched.RunOnce(context.Background()))
	refresher.AssertExpectations(t)
}

func TestRunOnceWrapsJobError(t *testing.T) {
	boom := errors.New("boom")
	refresher := &mockRefresher{}
	refresher.On("RefreshGoalStates", mock.Anything).Return(1, boom).Once()

	sched := newTestScheduler(t, refresher, Config{})
	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), jobGoalSweep)
}

func TestRunOnceTreatsTimeoutAsSoft(t *testing.T) {
	refresher := &mockRefresher{}
	refresher.On("RefreshGoalStates", mock.Anything).Return(0, context.DeadlineExceeded).Once()

	sched := newTestScheduler(t, refresher, Config{})
	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestGoalSweepJobCountsProcessed(t *testing.T) {
	refresher := &mockRefresher{}
	refresher.On("RefreshGoalStates", mock.Anything).Return(4, nil).Once()

	sched := newTestScheduler(t, refresher, Config{})
	ctx, run, owner := sched.ensureJobRun(context.Background(), jobGoalSweep)
	require.True(t, owner)

	require.NoError(t, sched.GoalSweepJob(ctx))
	assert.Equal(t, 4, run.processedCount)

	_, nested, owner := sched.ensureJobRun(ctx, jobGoalSweep)
	assert.False(t, owner)
	assert.Same(t, run, nested)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	refresher := &mockRefresher{}
	refresher.On("RefreshGoalStates", mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(0, nil)

	sched := newTestScheduler(t, refresher, Config{RunInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not stop after cancel")
	}
}
