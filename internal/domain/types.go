package domain

import "time"

// Outcome is the normalized completion state of one observed run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRunning   Outcome = "running"
	OutcomeUnknown   Outcome = "unknown"
)

// Status classifies one expected fire slot after reconciliation.
type Status string

const (
	StatusOnTime     Status = "onTime"
	StatusLate       Status = "late"
	StatusMissed     Status = "missed"
	StatusStuck      Status = "stuck"
	StatusSuspended  Status = "suspended"
	StatusUnknown    Status = "unknown"
	StatusUnexpected Status = "unexpected"
)

// severity ranks statuses for "worst of" reduction. Higher wins.
var severity = map[Status]int{
	StatusSuspended:  0,
	StatusOnTime:     1,
	StatusUnexpected: 2,
	StatusUnknown:    3,
	StatusLate:       4,
	StatusMissed:     5,
	StatusStuck:      6,
}

// Severity returns the rank of s; unlisted statuses rank lowest.
func (s Status) Severity() int { return severity[s] }

// IsDrift reports whether s represents a deviation worth flagging.
func (s Status) IsDrift() bool {
	switch s {
	case StatusLate, StatusMissed, StatusStuck, StatusUnknown, StatusUnexpected:
		return true
	}
	return false
}

// FireSlot is one expected occurrence predicted from a schedule.
type FireSlot struct {
	ExpectedAt time.Time `json:"expected_at"`
}

// ExecutionRecord is one observed run, normalized from the platform's
// native run object. Zero StartedAt means the run never started.
type ExecutionRecord struct {
	Name       string    `json:"name,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    Outcome   `json:"outcome"`
}

// Started reports whether the run ever began.
func (r ExecutionRecord) Started() bool { return !r.StartedAt.IsZero() }

// Finding is the reconciliation result for one slot, or for one record
// that no slot claimed (Slot == nil, Status == unexpected).
type Finding struct {
	Slot          *FireSlot        `json:"slot,omitempty"`
	Status        Status           `json:"status"`
	MatchedRecord *ExecutionRecord `json:"matched_record,omitempty"`
	Delay         time.Duration    `json:"delay,omitempty"`
}

// At returns the instant a finding refers to: the slot's expected time
// when a slot exists, otherwise the matched record's start.
func (f Finding) At() time.Time {
	if f.Slot != nil {
		return f.Slot.ExpectedAt
	}
	if f.MatchedRecord != nil {
		return f.MatchedRecord.StartedAt
	}
	return time.Time{}
}

// ScheduleSummary aggregates all findings for one schedule over a window.
type ScheduleSummary struct {
	Counts    map[Status]int `json:"counts"`
	Worst     Status         `json:"worst"`
	LastDrift time.Time      `json:"last_drift,omitempty"`
}
