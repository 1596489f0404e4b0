package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

const ScopeGlobal = "global"

var (
	ErrInvalidScope   = errors.New("invalid_forecast_scope")
	ErrInvalidHorizon = errors.New("invalid_forecast_horizon")
	ErrInvalidWindow  = errors.New("invalid_forecast_window")
)

// Scope selects the activities a forecast reads. A nil ProgramID is the
// whole organization.
type Scope struct {
	ProgramID *snowflake.ID
}

func (s Scope) String() string {
	if s.ProgramID == nil {
		return ScopeGlobal
	}
	return s.ProgramID.String()
}

// ParseScope accepts "global", an empty string, or a program id.
func ParseScope(raw string) (Scope, error) {
	switch raw {
	case "", ScopeGlobal:
		return Scope{}, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return Scope{}, ErrInvalidScope
	}
	return Scope{ProgramID: &id}, nil
}

// MonthlyBucket is the total saved in one calendar month of the window.
type MonthlyBucket struct {
	Index         int       `json:"index"`
	Month         time.Time `json:"month"`
	TotalSaved    float64   `json:"total_saved"`
	ActivityCount int       `json:"activity_count"`
}

type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

type CategoryContribution struct {
	Category     activitydomain.Category `json:"category"`
	TotalSaved   float64                 `json:"total_saved"`
	LastActivity time.Time               `json:"last_activity"`
}

// Forecast is a read-only projection of future savings. Trend, Regression
// and projections are unset when Status is insufficient_data.
type Forecast struct {
	Scope           string                   `json:"scope"`
	Status          Status                   `json:"status"`
	WindowMonths    int                      `json:"window_months"`
	HorizonMonths   int                      `json:"horizon_months"`
	MonthsWithData  int                      `json:"months_with_data"`
	Buckets         []MonthlyBucket          `json:"buckets"`
	Regression      *Regression              `json:"regression,omitempty"`
	Trend           *Trend                   `json:"trend,omitempty"`
	NextMonth       *float64                 `json:"next_month,omitempty"`
	Projection      []float64                `json:"projection,omitempty"`
	ProjectedValue  *float64                 `json:"projected_value,omitempty"`
	Confidence      float64                  `json:"confidence"`
	TopCategory     *activitydomain.Category `json:"top_category,omitempty"`
	Categories      []CategoryContribution   `json:"categories"`
	Recommendations []string                 `json:"recommendations"`
	GeneratedAt     time.Time                `json:"generated_at"`
}

// Request asks for a forecast. A zero WindowMonths uses the configured window.
type Request struct {
	Scope         Scope
	HorizonMonths int
	WindowMonths  int
}

type Service interface {
	RequestForecast(ctx context.Context, req Request) (*Forecast, error)
}
