package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProgram(ctx context.Context, db *gorm.DB, program *Program) error
	UpdateProgram(ctx context.Context, db *gorm.DB, program *Program) error
	FindProgramByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Program, error)
	ListProgramIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
	WriteProgramAggregate(ctx context.Context, db *gorm.DB, agg ProgramAggregate) error

	InsertGoal(ctx context.Context, db *gorm.DB, goal *Goal) error
	FindGoalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Goal, error)
	FindGoals(ctx context.Context, db *gorm.DB, programID snowflake.ID) ([]Goal, error)
	WriteGoalAggregate(ctx context.Context, db *gorm.DB, agg GoalAggregate) error
	// ListProgramsWithStaleGoals returns programs owning an open goal whose
	// target date passed before asOf.
	ListProgramsWithStaleGoals(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]snowflake.ID, error)
}
