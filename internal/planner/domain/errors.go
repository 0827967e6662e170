package domain

import "errors"

var (
	// ErrNotApplied is returned by use cases when the store left its state
	// untouched: unknown id, empty stock, duplicate dish, and so on.
	ErrNotApplied  = errors.New("operation had no effect")
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidMeal = errors.New("invalid meal period")
	ErrInvalidDish = errors.New("invalid dish")
	ErrPastDate    = errors.New("date is in the past")

	// ErrInvalidFilter is returned for a dish filter expression that does not
	// compile to a boolean.
	ErrInvalidFilter = errors.New("invalid filter")
)
