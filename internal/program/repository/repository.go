package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"gorm.io/gorm"
)

const programColumns = `id, name, slug, description, category, status, start_date, end_date,
	target_co2_reduction, actual_co2_reduction, progress_percentage, activity_count,
	recomputed_at, created_at, updated_at`

const goalColumns = `id, program_id, name, description, target_co2_reduction, target_date,
	actual_co2_reduction, achievement_percentage, state, reward_points, points_awarded,
	recomputed_at, created_at, updated_at`

type repo struct{}

func Provide() programdomain.Repository {
	return &repo{}
}

func (r *repo) InsertProgram(ctx context.Context, db *gorm.DB, p *programdomain.Program) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO programs (`+programColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.Status,
		p.StartDate,
		p.EndDate,
		p.TargetCO2Reduction,
		p.ActualCO2Reduction,
		p.ProgressPercentage,
		p.ActivityCount,
		p.RecomputedAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

// UpdateProgram writes owner-managed fields only; derived fields belong to
// WriteProgramAggregate.
func (r *repo) UpdateProgram(ctx context.Context, db *gorm.DB, p *programdomain.Program) error {
	return db.WithContext(ctx).Exec(
		`UPDATE programs
		 SET name = ?, slug = ?, description = ?, category = ?, status = ?, start_date = ?, end_date = ?,
		     target_co2_reduction = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.Status,
		p.StartDate,
		p.EndDate,
		p.TargetCO2Reduction,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) FindProgramByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*programdomain.Program, error) {
	var program programdomain.Program
	err := db.WithContext(ctx).Raw(
		`SELECT `+programColumns+` FROM programs WHERE id = ?`,
		id,
	).Scan(&program).Error
	if err != nil {
		return nil, err
	}
	if program.ID == 0 {
		return nil, nil
	}
	return &program, nil
}

func (r *repo) ListProgramIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(`SELECT id FROM programs ORDER BY id ASC`).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) WriteProgramAggregate(ctx context.Context, db *gorm.DB, agg programdomain.ProgramAggregate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE programs
		 SET actual_co2_reduction = ?, progress_percentage = ?, activity_count = ?, recomputed_at = ?
		 WHERE id = ?`,
		agg.ActualCO2Reduction,
		agg.ProgressPercentage,
		agg.ActivityCount,
		agg.RecomputedAt,
		agg.ProgramID,
	).Error
}

func (r *repo) InsertGoal(ctx context.Context, db *gorm.DB, g *programdomain.Goal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO goals (`+goalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID,
		g.ProgramID,
		g.Name,
		g.Description,
		g.TargetCO2Reduction,
		g.TargetDate,
		g.ActualCO2Reduction,
		g.AchievementPercentage,
		g.State,
		g.RewardPoints,
		g.PointsAwarded,
		g.RecomputedAt,
		g.CreatedAt,
		g.UpdatedAt,
	).Error
}

func (r *repo) FindGoalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*programdomain.Goal, error) {
	var goal programdomain.Goal
	err := db.WithContext(ctx).Raw(
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`,
		id,
	).Scan(&goal).Error
	if err != nil {
		return nil, err
	}
	if goal.ID == 0 {
		return nil, nil
	}
	return &goal, nil
}

func (r *repo) FindGoals(ctx context.Context, db *gorm.DB, programID snowflake.ID) ([]programdomain.Goal, error) {
	var goals []programdomain.Goal
	err := db.WithContext(ctx).Raw(
		`SELECT `+goalColumns+` FROM goals WHERE program_id = ? ORDER BY target_date ASC, id ASC`,
		programID,
	).Scan(&goals).Error
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repo) WriteGoalAggregate(ctx context.Context, db *gorm.DB, agg programdomain.GoalAggregate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE goals
		 SET actual_co2_reduction = ?, achievement_percentage = ?, state = ?, points_awarded = ?, recomputed_at = ?
		 WHERE id = ?`,
		agg.ActualCO2Reduction,
		agg.AchievementPercentage,
		agg.State,
		agg.PointsAwarded,
		agg.RecomputedAt,
		agg.GoalID,
	).Error
}

func (r *repo) ListProgramsWithStaleGoals(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT program_id FROM goals
		 WHERE state IN (?, ?) AND target_date < ?
		 ORDER BY program_id ASC
		 LIMIT ?`,
		programdomain.GoalStatePending,
		programdomain.GoalStateInProgress,
		asOf,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
