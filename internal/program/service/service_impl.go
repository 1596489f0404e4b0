package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/greentrack/internal/audit/domain"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRewardPoints = 100

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       programdomain.Repository
	Recomputer programdomain.Recomputer
	Notifier   auditdomain.Notifier `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       programdomain.Repository
	genID      *snowflake.Node
	recomputer programdomain.Recomputer
	notifier   auditdomain.Notifier
}

func New(p Params) programdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("program.service"),
		repo:       p.Repo,
		genID:      p.GenID,
		recomputer: p.Recomputer,
		notifier:   p.Notifier,
	}
}

func (s *Service) CreateProgram(ctx context.Context, req programdomain.CreateProgramRequest) (*programdomain.Program, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, programdomain.ErrInvalidName
	}

	category := programdomain.Category(strings.ToLower(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		return nil, programdomain.ErrInvalidCategory
	}

	status := programdomain.StatusDraft
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = programdomain.Status(strings.ToLower(raw))
		if !status.Valid() {
			return nil, programdomain.ErrInvalidStatus
		}
	}

	if req.TargetCO2Reduction < 0 {
		return nil, programdomain.ErrInvalidTarget
	}
	if req.StartDate.IsZero() {
		return nil, programdomain.ErrInvalidDates
	}
	start := calendarDay(req.StartDate)
	end, err := normalizeEnd(start, req.EndDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	program := &programdomain.Program{
		ID:                 s.genID.Generate(),
		Name:               name,
		Slug:               slug.Make(name),
		Description:        strings.TrimSpace(req.Description),
		Category:           category,
		Status:             status,
		StartDate:          start,
		EndDate:            end,
		TargetCO2Reduction: req.TargetCO2Reduction,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.InsertProgram(ctx, s.db, program); err != nil {
		return nil, err
	}

	s.log.Info("program created",
		zap.String("program_id", program.ID.String()),
		zap.String("slug", program.Slug),
	)
	s.notify(ctx, auditdomain.ActionProgramCreated, auditdomain.TargetProgram, program.ID, map[string]any{
		"category": string(program.Category),
		"target":   program.TargetCO2Reduction,
	})
	return program, nil
}

func (s *Service) UpdateProgram(ctx context.Context, req programdomain.UpdateProgramRequest) (*programdomain.Program, error) {
	programID, err := programdomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindProgramByID(ctx, s.db, programID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, programdomain.ErrProgramNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, programdomain.ErrInvalidName
		}
		item.Name = name
		item.Slug = slug.Make(name)
	}

	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}

	if req.Category != nil {
		category := programdomain.Category(strings.ToLower(strings.TrimSpace(*req.Category)))
		if !category.Valid() {
			return nil, programdomain.ErrInvalidCategory
		}
		item.Category = category
	}

	if req.Status != nil {
		status := programdomain.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			return nil, programdomain.ErrInvalidStatus
		}
		item.Status = status
	}

	if req.StartDate != nil {
		if req.StartDate.IsZero() {
			return nil, programdomain.ErrInvalidDates
		}
		item.StartDate = calendarDay(*req.StartDate)
	}
	end := item.EndDate
	if req.EndDate != nil {
		end = req.EndDate
	}
	if item.EndDate, err = normalizeEnd(item.StartDate, end); err != nil {
		return nil, err
	}

	targetChanged := false
	if req.TargetCO2Reduction != nil {
		if *req.TargetCO2Reduction < 0 {
			return nil, programdomain.ErrInvalidTarget
		}
		targetChanged = *req.TargetCO2Reduction != item.TargetCO2Reduction
		item.TargetCO2Reduction = *req.TargetCO2Reduction
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProgram(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.notify(ctx, auditdomain.ActionProgramUpdated, auditdomain.TargetProgram, item.ID, map[string]any{
		"target_changed": targetChanged,
	})

	if targetChanged {
		// progress depends on the target
		if err := s.recomputer.RecomputeProgram(ctx, item.ID); err != nil {
			return nil, err
		}
		return s.reload(ctx, item.ID)
	}

	return item, nil
}

func (s *Service) GetProgram(ctx context.Context, id string) (*programdomain.Program, error) {
	programID, err := programdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, programID)
}

func (s *Service) CreateGoal(ctx context.Context, req programdomain.CreateGoalRequest) (*programdomain.Goal, error) {
	programID, err := programdomain.ParseID(strings.TrimSpace(req.ProgramID))
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, programdomain.ErrInvalidName
	}
	if req.TargetCO2Reduction <= 0 {
		return nil, programdomain.ErrInvalidTarget
	}
	if req.TargetDate.IsZero() {
		return nil, programdomain.ErrInvalidDates
	}

	points := defaultRewardPoints
	if req.RewardPoints != nil {
		if *req.RewardPoints < 0 {
			return nil, programdomain.ErrInvalidRewardPoints
		}
		points = *req.RewardPoints
	}

	program, err := s.repo.FindProgramByID(ctx, s.db, programID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, programdomain.ErrProgramNotFound
	}

	now := time.Now().UTC()
	goal := &programdomain.Goal{
		ID:                 s.genID.Generate(),
		ProgramID:          programID,
		Name:               name,
		Description:        strings.TrimSpace(req.Description),
		TargetCO2Reduction: req.TargetCO2Reduction,
		TargetDate:         calendarDay(req.TargetDate),
		State:              programdomain.GoalStatePending,
		RewardPoints:       points,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.InsertGoal(ctx, s.db, goal); err != nil {
		return nil, err
	}
	s.notify(ctx, auditdomain.ActionGoalCreated, auditdomain.TargetGoal, goal.ID, map[string]any{
		"program_id":    programID.String(),
		"target":        goal.TargetCO2Reduction,
		"reward_points": goal.RewardPoints,
	})

	// existing activities may already count toward the new goal
	if err := s.recomputer.RecomputeProgram(ctx, programID); err != nil {
		return nil, err
	}

	stored, err := s.repo.FindGoalByID(ctx, s.db, goal.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("goal %s vanished after insert", goal.ID)
	}
	return stored, nil
}

func (s *Service) ListGoals(ctx context.Context, programID string) ([]programdomain.Goal, error) {
	id, err := programdomain.ParseID(strings.TrimSpace(programID))
	if err != nil {
		return nil, err
	}
	program, err := s.repo.FindProgramByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, programdomain.ErrProgramNotFound
	}
	return s.repo.FindGoals(ctx, s.db, id)
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (*programdomain.Program, error) {
	program, err := s.repo.FindProgramByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, programdomain.ErrProgramNotFound
	}
	return program, nil
}

func (s *Service) notify(ctx context.Context, action, targetType string, id snowflake.ID, metadata map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   id.String(),
		Metadata:   metadata,
	})
}

func normalizeEnd(start time.Time, end *time.Time) (*time.Time, error) {
	if end == nil || end.IsZero() {
		return nil, nil
	}
	day := calendarDay(*end)
	if day.Before(start) {
		return nil, programdomain.ErrInvalidDates
	}
	return &day, nil
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
