package model

import "errors"

var (
	// ErrInvalidWeekStart is returned for dates that are not an ISO Monday.
	ErrInvalidWeekStart = errors.New("week start must be a Monday in YYYY-MM-DD format")
	ErrInvalidDay       = errors.New("day of week must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidCategory  = errors.New("unknown dish category")
)
