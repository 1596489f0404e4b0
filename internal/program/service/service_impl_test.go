package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"github.com/smallbiznis/greentrack/internal/program/repository"
	"github.com/smallbiznis/greentrack/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRecomputer struct {
	mock.Mock
}

func (m *mockRecomputer) RecomputeProgram(ctx context.Context, programID snowflake.ID) error {
	args := m.Called(ctx, programID)
	return args.Error(0)
}

func newTestService(t *testing.T) (programdomain.Service, *mockRecomputer) {
	t.Helper()
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&programdomain.Program{}, &programdomain.Goal{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	recomputer := &mockRecomputer{}
	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		Recomputer: recomputer,
	})
	return svc, recomputer
}

func validProgram() programdomain.CreateProgramRequest {
	return programdomain.CreateProgramRequest{
		Name:               "Office LED Retrofit",
		Category:           "energy",
		StartDate:          time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC),
		TargetCO2Reduction: 1000,
	}
}

func TestCreateProgram(t *testing.T) {
	svc, _ := newTestService(t)

	program, err := svc.CreateProgram(context.Background(), validProgram())
	require.NoError(t, err)
	assert.Equal(t, "office-led-retrofit", program.Slug)
	assert.Equal(t, programdomain.StatusDraft, program.Status)
	assert.True(t, program.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	got, err := svc.GetProgram(context.Background(), program.ID.String())
	require.NoError(t, err)
	assert.Equal(t, program.Name, got.Name)
}

func TestCreateProgramValidation(t *testing.T) {
	svc, _ := newTestService(t)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*programdomain.CreateProgramRequest)
		want   error
	}{
		{"blank_name", func(r *programdomain.CreateProgramRequest) { r.Name = "  " }, programdomain.ErrInvalidName},
		{"bad_category", func(r *programdomain.CreateProgramRequest) { r.Category = "mining" }, programdomain.ErrInvalidCategory},
		{"bad_status", func(r *programdomain.CreateProgramRequest) { r.Status = "paused" }, programdomain.ErrInvalidStatus},
		{"negative_target", func(r *programdomain.CreateProgramRequest) { r.TargetCO2Reduction = -1 }, programdomain.ErrInvalidTarget},
		{"missing_start", func(r *programdomain.CreateProgramRequest) { r.StartDate = time.Time{} }, programdomain.ErrInvalidDates},
		{"end_before_start", func(r *programdomain.CreateProgramRequest) { r.EndDate = &end }, programdomain.ErrInvalidDates},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validProgram()
			tc.mutate(&req)
			_, err := svc.CreateProgram(context.Background(), req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateProgramTargetTriggersRecompute(t *testing.T) {
	svc, recomputer := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, validProgram())
	require.NoError(t, err)

	recomputer.On("RecomputeProgram", mock.Anything, program.ID).Return(nil).Once()

	target := 2000.0
	updated, err := svc.UpdateProgram(ctx, programdomain.UpdateProgramRequest{
		ID:                 program.ID.String(),
		TargetCO2Reduction: &target,
	})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, updated.TargetCO2Reduction)

	// same target again is not a change
	_, err = svc.UpdateProgram(ctx, programdomain.UpdateProgramRequest{
		ID:                 program.ID.String(),
		TargetCO2Reduction: &target,
	})
	require.NoError(t, err)

	name := "Office LED Retrofit Phase 2"
	renamed, err := svc.UpdateProgram(ctx, programdomain.UpdateProgramRequest{ID: program.ID.String(), Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "office-led-retrofit-phase-2", renamed.Slug)

	recomputer.AssertExpectations(t)
}

func TestUpdateProgramNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.UpdateProgram(context.Background(), programdomain.UpdateProgramRequest{ID: "12345"})
	assert.ErrorIs(t, err, programdomain.ErrProgramNotFound)

	_, err = svc.GetProgram(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, programdomain.ErrInvalidID)
}

func TestCreateGoal(t *testing.T) {
	svc, recomputer := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, validProgram())
	require.NoError(t, err)
	recomputer.On("RecomputeProgram", mock.Anything, program.ID).Return(nil)

	goal, err := svc.CreateGoal(ctx, programdomain.CreateGoalRequest{
		ProgramID:          program.ID.String(),
		Name:               "Q2 milestone",
		TargetCO2Reduction: 250,
		TargetDate:         time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, goal.RewardPoints)
	assert.Equal(t, programdomain.GoalStatePending, goal.State)
	assert.True(t, goal.TargetDate.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)))

	goals, err := svc.ListGoals(ctx, program.ID.String())
	require.NoError(t, err)
	assert.Len(t, goals, 1)
	recomputer.AssertNumberOfCalls(t, "RecomputeProgram", 1)
}

func TestCreateGoalValidation(t *testing.T) {
	svc, recomputer := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, validProgram())
	require.NoError(t, err)

	negative := -5
	cases := []struct {
		name string
		req  programdomain.CreateGoalRequest
		want error
	}{
		{"zero_target", programdomain.CreateGoalRequest{ProgramID: program.ID.String(), Name: "g", TargetDate: time.Now()}, programdomain.ErrInvalidTarget},
		{"missing_date", programdomain.CreateGoalRequest{ProgramID: program.ID.String(), Name: "g", TargetCO2Reduction: 1}, programdomain.ErrInvalidDates},
		{"negative_points", programdomain.CreateGoalRequest{ProgramID: program.ID.String(), Name: "g", TargetCO2Reduction: 1, TargetDate: time.Now(), RewardPoints: &negative}, programdomain.ErrInvalidRewardPoints},
		{"unknown_program", programdomain.CreateGoalRequest{ProgramID: "999", Name: "g", TargetCO2Reduction: 1, TargetDate: time.Now()}, programdomain.ErrProgramNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateGoal(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	recomputer.AssertNotCalled(t, "RecomputeProgram", mock.Anything, mock.Anything)
}

func TestCreateGoalSurfacesRecomputeFailure(t *testing.T) {
	svc, recomputer := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, validProgram())
	require.NoError(t, err)
	boom := errors.New("boom")
	recomputer.On("RecomputeProgram", mock.Anything, program.ID).Return(boom)

	_, err = svc.CreateGoal(ctx, programdomain.CreateGoalRequest{
		ProgramID:          program.ID.String(),
		Name:               "g",
		TargetCO2Reduction: 10,
		TargetDate:         time.Now(),
	})
	assert.ErrorIs(t, err, boom)
}
