package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidIntent   = errors.New("invalid_intent")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidFactor   = errors.New("invalid_emission_factor")
	ErrInvalidUnit     = errors.New("invalid_unit")
	ErrInvalidSource   = errors.New("invalid_source")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("activity_not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
