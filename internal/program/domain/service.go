package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateProgram(ctx context.Context, req CreateProgramRequest) (*Program, error)
	UpdateProgram(ctx context.Context, req UpdateProgramRequest) (*Program, error)
	GetProgram(ctx context.Context, id string) (*Program, error)
	CreateGoal(ctx context.Context, req CreateGoalRequest) (*Goal, error)
	ListGoals(ctx context.Context, programID string) ([]Goal, error)
}

type CreateProgramRequest struct {
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Status             string     `json:"status"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	TargetCO2Reduction float64    `json:"target_co2_reduction"`
}

type UpdateProgramRequest struct {
	ID                 string     `json:"id"`
	Name               *string    `json:"name,omitempty"`
	Description        *string    `json:"description,omitempty"`
	Category           *string    `json:"category,omitempty"`
	Status             *string    `json:"status,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	TargetCO2Reduction *float64   `json:"target_co2_reduction,omitempty"`
}

type CreateGoalRequest struct {
	ProgramID          string    `json:"program_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	TargetCO2Reduction float64   `json:"target_co2_reduction"`
	TargetDate         time.Time `json:"target_date"`
	RewardPoints       *int      `json:"reward_points,omitempty"`
}

// Recomputer rebuilds a program's derived fields from its activities.
type Recomputer interface {
	RecomputeProgram(ctx context.Context, programID snowflake.ID) error
}
