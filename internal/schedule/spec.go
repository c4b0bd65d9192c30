// Package schedule models a cron-style schedule declaration and expands
// it into expected fire times over a bounded window.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"driftwatch/internal/domain"
)

// ParseError reports an invalid schedule declaration: a malformed cron
// expression or an unknown timezone identifier. It is raised at Spec
// construction, never during expansion.
type ParseError struct {
	Field string // "expression" or "timezone"
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schedule: invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Spec is an immutable description of a recurring job. Construct with
// NewSpec; the zero value is not usable.
type Spec struct {
	Expression string
	Timezone   string
	Suspended  bool

	sched cron.Schedule
	loc   *time.Location
}

// NewSpec validates expression against the standard 5-field cron format
// and resolves timezone as an IANA identifier. An empty timezone means
// UTC. All fire-time arithmetic happens in the resolved zone.
func NewSpec(expression, timezone string, suspended bool) (Spec, error) {
	sched, err := cron.ParseStandard(expression)
	if err != nil {
		return Spec{}, &ParseError{Field: "expression", Value: expression, Err: err}
	}

	loc := time.UTC
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return Spec{}, &ParseError{Field: "timezone", Value: timezone, Err: err}
		}
	}

	return Spec{
		Expression: expression,
		Timezone:   timezone,
		Suspended:  suspended,
		sched:      sched,
		loc:        loc,
	}, nil
}

// Expand returns every fire time t with windowStart <= t < windowEnd, in
// ascending order, normalized to UTC. A suspended spec expands to nothing.
// Daylight-saving rules of the declared zone apply: wall-clock times
// erased by a spring-forward gap produce no slot, and the earlier instant
// is taken on a fall-back overlap.
func (s Spec) Expand(windowStart, windowEnd time.Time) []domain.FireSlot {
	if s.Suspended || !windowStart.Before(windowEnd) {
		return nil
	}

	var slots []domain.FireSlot
	// cron.Schedule.Next is exclusive of its argument; back off one second
	// so a fire time exactly at windowStart is included.
	cursor := windowStart.Add(-time.Second)
	prevWall := ""
	for {
		next := s.sched.Next(cursor.In(s.loc))
		if next.IsZero() || !next.Before(windowEnd) {
			return slots
		}
		// A fall-back transition repeats an hour of wall-clock time, so
		// the same nominal fire time maps to two instants. One nominal
		// time is one slot: keep the earlier instant, drop the replay.
		wall := next.In(s.loc).Format("2006-01-02 15:04")
		if wall != prevWall {
			slots = append(slots, domain.FireSlot{ExpectedAt: next.UTC()})
			prevWall = wall
		}
		cursor = next
	}
}

// Validate checks a cron expression without building a Spec.
func Validate(expression string) error {
	_, err := cron.ParseStandard(expression)
	return err
}

// Next returns the first fire time strictly after from, in UTC.
func (s Spec) Next(from time.Time) time.Time {
	next := s.sched.Next(from.In(s.loc))
	if next.IsZero() {
		return next
	}
	return next.UTC()
}
