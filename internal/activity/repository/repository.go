package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"gorm.io/gorm"
)

const activityColumns = `id, name, category, intent, quantity, unit, activity_date, emission_factor,
	co2_amount, factor_source, program_id, actor_id, source, notes, idempotency_key, created_at, updated_at`

type repo struct{}

func Provide() activitydomain.Repository {
	return &repo{}
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, a *activitydomain.Activity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activities (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Name,
		a.Category,
		a.Intent,
		a.Quantity,
		a.Unit,
		a.Date,
		a.EmissionFactor,
		a.CO2Amount,
		a.FactorSource,
		a.ProgramID,
		a.ActorID,
		a.Source,
		a.Notes,
		a.IdempotencyKey,
		a.CreatedAt,
		a.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, a *activitydomain.Activity) error {
	return db.WithContext(ctx).Exec(
		`UPDATE activities
		 SET name = ?, category = ?, intent = ?, quantity = ?, unit = ?, activity_date = ?,
		     emission_factor = ?, co2_amount = ?, factor_source = ?, program_id = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		a.Name,
		a.Category,
		a.Intent,
		a.Quantity,
		a.Unit,
		a.Date,
		a.EmissionFactor,
		a.CO2Amount,
		a.FactorSource,
		a.ProgramID,
		a.Notes,
		a.UpdatedAt,
		a.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM activities WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*activitydomain.Activity, error) {
	var activity activitydomain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`,
		id,
	).Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, nil
	}
	return &activity, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*activitydomain.Activity, error) {
	var activity activitydomain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT `+activityColumns+` FROM activities WHERE idempotency_key = ?`,
		key,
	).Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, nil
	}
	return &activity, nil
}

func (r *repo) FindActivities(ctx context.Context, db *gorm.DB, filter activitydomain.Filter) ([]activitydomain.Activity, error) {
	clauses := []string{}
	args := []any{}
	if filter.ProgramID != nil {
		clauses = append(clauses, "program_id = ?")
		args = append(args, *filter.ProgramID)
	}
	if filter.Intent != nil {
		clauses = append(clauses, "intent = ?")
		args = append(args, *filter.Intent)
	}
	if filter.Range != nil {
		if !filter.Range.From.IsZero() {
			clauses = append(clauses, "activity_date >= ?")
			args = append(args, activitydomain.CalendarDay(filter.Range.From))
		}
		if !filter.Range.To.IsZero() {
			clauses = append(clauses, "activity_date <= ?")
			args = append(args, activitydomain.CalendarDay(filter.Range.To))
		}
	}

	query := `SELECT ` + activityColumns + ` FROM activities`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY activity_date ASC, id ASC`

	var activities []activitydomain.Activity
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
