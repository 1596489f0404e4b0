package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionActivityRecorded  = "activity.recorded"
	ActionActivityUpdated   = "activity.updated"
	ActionActivityDeleted   = "activity.deleted"
	ActionProgramCreated    = "program.created"
	ActionProgramUpdated    = "program.updated"
	ActionProgramRecomputed = "program.recomputed"
	ActionGoalCreated       = "goal.created"
	ActionGoalAchieved      = "goal.achieved"
)

const (
	TargetActivity = "activity"
	TargetProgram  = "program"
	TargetGoal     = "goal"
)

// AuditLog is an append-only record of a completed mutation.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:varchar(16);not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:varchar(128)"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index"`
	TargetType string            `json:"target_type" gorm:"type:varchar(32);not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:varchar(64);index"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry describes a mutation to record.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}

// Notifier receives mutations after they commit. Implementations must not
// fail the caller.
type Notifier interface {
	Notify(ctx context.Context, entry Entry)
}

var ErrInvalidAction = errors.New("invalid_action")
