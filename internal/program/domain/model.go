package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Category string

const (
	CategoryEnergy    Category = "energy"
	CategoryWaste     Category = "waste"
	CategoryTransport Category = "transport"
	CategoryOffice    Category = "office"
	CategoryWater     Category = "water"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryEnergy, CategoryWaste, CategoryTransport, CategoryOffice, CategoryWater:
		return true
	}
	return false
}

// Status is managed by program owners; aggregation never changes it.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Program groups activities toward a reduction target.
type Program struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	Name               string       `json:"name" gorm:"type:text;not null"`
	Slug               string       `json:"slug" gorm:"type:varchar(191);not null;index"`
	Description        string       `json:"description,omitempty" gorm:"type:text"`
	Category           Category     `json:"category" gorm:"type:varchar(32);not null"`
	Status             Status       `json:"status" gorm:"type:varchar(16);not null;default:draft"`
	StartDate          time.Time    `json:"start_date" gorm:"not null"`
	EndDate            *time.Time   `json:"end_date,omitempty"`
	TargetCO2Reduction float64      `json:"target_co2_reduction" gorm:"column:target_co2_reduction;not null;default:0"`
	ActualCO2Reduction float64      `json:"actual_co2_reduction" gorm:"column:actual_co2_reduction;not null;default:0"`
	ProgressPercentage float64      `json:"progress_percentage" gorm:"not null;default:0"`
	ActivityCount      int          `json:"activity_count" gorm:"not null;default:0"`
	RecomputedAt       *time.Time   `json:"recomputed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Program) TableName() string { return "programs" }

// Goal is a dated milestone within a program.
type Goal struct {
	ID                    snowflake.ID `json:"id" gorm:"primaryKey"`
	ProgramID             snowflake.ID `json:"program_id" gorm:"column:program_id;not null;index"`
	Name                  string       `json:"name" gorm:"type:text;not null"`
	Description           string       `json:"description,omitempty" gorm:"type:text"`
	TargetCO2Reduction    float64      `json:"target_co2_reduction" gorm:"column:target_co2_reduction;not null"`
	TargetDate            time.Time    `json:"target_date" gorm:"not null;index"`
	ActualCO2Reduction    float64      `json:"actual_co2_reduction" gorm:"column:actual_co2_reduction;not null;default:0"`
	AchievementPercentage float64      `json:"achievement_percentage" gorm:"not null;default:0"`
	State                 GoalState    `json:"state" gorm:"type:varchar(16);not null;default:pending"`
	RewardPoints          int          `json:"reward_points" gorm:"not null;default:100"`
	PointsAwarded         bool         `json:"points_awarded" gorm:"not null;default:false"`
	RecomputedAt          *time.Time   `json:"recomputed_at,omitempty"`
	CreatedAt             time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Goal) TableName() string { return "goals" }

// ProgramAggregate holds the derived program fields written by a recompute.
type ProgramAggregate struct {
	ProgramID          snowflake.ID
	ActualCO2Reduction float64
	ProgressPercentage float64
	ActivityCount      int
	RecomputedAt       time.Time
}

// GoalAggregate holds the derived goal fields written by a recompute.
type GoalAggregate struct {
	GoalID                snowflake.ID
	ActualCO2Reduction    float64
	AchievementPercentage float64
	State                 GoalState
	PointsAwarded         bool
	RecomputedAt          time.Time
}

// Percentage returns actual/target*100, or 0 when no positive target is set.
func Percentage(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return actual / target * 100
}
