package domain

import (
	"context"
	"errors"
	"time"

	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	forecastdomain "github.com/smallbiznis/greentrack/internal/forecast/domain"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
)

// Service is the entry point for activity writes and forecasts.
type Service interface {
	RecordActivity(ctx context.Context, req RecordActivityRequest) (*activitydomain.Activity, error)
	UpdateActivity(ctx context.Context, req UpdateActivityRequest) (*activitydomain.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
	RequestForecast(ctx context.Context, req forecastdomain.Request) (*forecastdomain.Forecast, error)
	RefreshGoalStates(ctx context.Context) (int, error)
	RecomputeProgram(ctx context.Context, programID string) (*ProgramSummary, error)
	ProgramSummary(ctx context.Context, programID string) (*ProgramSummary, error)
}

type RecordActivityRequest struct {
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Intent         string    `json:"intent"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	Date           time.Time `json:"date"`
	EmissionFactor *float64  `json:"emission_factor,omitempty"`
	ProgramID      string    `json:"program_id"`
	Source         string    `json:"source"`
	Notes          string    `json:"notes"`
	IdempotencyKey string    `json:"-"`
}

// UpdateActivityRequest patches an activity. Nil fields are left as is; an
// empty ProgramID detaches the activity from its program.
type UpdateActivityRequest struct {
	ID             string     `json:"-"`
	Category       *string    `json:"category,omitempty"`
	Intent         *string    `json:"intent,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	EmissionFactor *float64   `json:"emission_factor,omitempty"`
	ProgramID      *string    `json:"program_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

type ProgramSummary struct {
	Program programdomain.Program `json:"program"`
	Goals   []programdomain.Goal  `json:"goals"`
}

var ErrConcurrentUpdate = errors.New("concurrent_activity_update")
