package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Filter narrows FindActivities. Nil fields match everything.
type Filter struct {
	ProgramID *snowflake.ID
	Range     *DateRange
	Intent    *Intent
}

type Repository interface {
	Save(ctx context.Context, db *gorm.DB, activity *Activity) error
	Update(ctx context.Context, db *gorm.DB, activity *Activity) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Activity, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Activity, error)
	// FindActivities returns matches ordered by date then id.
	FindActivities(ctx context.Context, db *gorm.DB, filter Filter) ([]Activity, error)
}
