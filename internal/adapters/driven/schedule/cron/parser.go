// Package cron parses maintenance task schedules written as standard
// five-field cron expressions ("minute hour day-of-month month day-of-week").
package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.ScheduleParser = (*Parser)(nil)

// standardParser accepts five fields plus the @daily style descriptors.
var standardParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Parser evaluates schedules in a fixed location.
type Parser struct {
	loc *time.Location
}

// NewParser creates a parser. A nil location means local time.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// Validate returns domain.ErrInvalidInput for expressions that do not parse.
func (p *Parser) Validate(schedule string) error {
	_, err := p.parse(schedule)
	return err
}

// Next returns the first activation strictly after from.
func (p *Parser) Next(schedule string, from time.Time) (time.Time, error) {
	sched, err := p.parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(from.In(p.loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: schedule %q never fires", domain.ErrInvalidInput, schedule)
	}
	return next, nil
}

func (p *Parser) parse(schedule string) (cron.Schedule, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, fmt.Errorf("%w: empty schedule", domain.ErrInvalidInput)
	}
	sched, err := standardParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return sched, nil
}
