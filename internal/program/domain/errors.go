package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidTarget       = errors.New("invalid_target")
	ErrInvalidDates        = errors.New("invalid_dates")
	ErrInvalidCategory     = errors.New("invalid_program_category")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidRewardPoints = errors.New("invalid_reward_points")
	ErrInvalidID           = errors.New("invalid_id")
	ErrProgramNotFound     = errors.New("program_not_found")
	ErrGoalNotFound        = errors.New("goal_not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
