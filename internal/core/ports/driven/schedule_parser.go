package driven

import "time"

// ScheduleParser interprets task schedule expressions.
type ScheduleParser interface {
	// Validate returns an error if the expression cannot be parsed.
	Validate(schedule string) error

	// Next returns the first activation strictly after from.
	Next(schedule string, from time.Time) (time.Time, error)
}
