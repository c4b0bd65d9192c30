// Package drift reconciles expected fire slots against observed execution
// records and classifies each slot's outcome.
package drift

import (
	"time"

	"driftwatch/internal/domain"
)

// Options carries the caller-supplied reconciliation policy. Acceptable
// drift varies by workload criticality, so nothing here is hardcoded.
type Options struct {
	// Tolerance is how far a run's start may sit from its expected fire
	// time and still count as on time.
	Tolerance time.Duration
	// StuckThreshold is how long a run may stay in the running state
	// before it is flagged stuck.
	StuckThreshold time.Duration
	// Now is the evaluation reference time, injected for determinism.
	Now time.Time
	// WindowEnd bounds the match window of the final slot.
	WindowEnd time.Time
	// Suspended marks the schedule as administratively paused: slots are
	// classified suspended without matching and every record is
	// unexpected.
	Suspended bool
}

// Reconcile aligns slots against records in a single pass and emits one
// finding per judgeable slot plus one unexpected finding per unclaimed
// record. Both inputs must be in ascending time order; no record is
// claimed by more than one slot.
//
// The most recent slot is omitted while it is still inside tolerance of
// Now, so a job that simply has not fired yet is not reported missed.
func Reconcile(slots []domain.FireSlot, records []domain.ExecutionRecord, opts Options) []domain.Finding {
	findings := make([]domain.Finding, 0, len(slots))

	if opts.Suspended {
		for i := range slots {
			slot := slots[i]
			findings = append(findings, domain.Finding{Slot: &slot, Status: domain.StatusSuspended})
		}
		return appendUnclaimed(findings, records, make([]bool, len(records)))
	}

	claimed := make([]bool, len(records))
	scan := 0 // first record that could still match the current slot

	for i := range slots {
		slot := slots[i]
		lower := slot.ExpectedAt.Add(-opts.Tolerance)
		upper := opts.WindowEnd
		if i+1 < len(slots) {
			upper = slots[i+1].ExpectedAt
		}

		// Records before this slot's lower bound can never match a later
		// slot either, since slots only move forward.
		for scan < len(records) && (claimed[scan] || records[scan].StartedAt.Before(lower)) {
			scan++
		}

		best := -1
		var bestDist time.Duration
		for j := scan; j < len(records); j++ {
			if claimed[j] {
				continue
			}
			start := records[j].StartedAt
			if !start.Before(upper) {
				break
			}
			dist := start.Sub(slot.ExpectedAt)
			if dist < 0 {
				dist = -dist
			}
			// Strict < keeps the earlier start on an exact tie.
			if best == -1 || dist < bestDist {
				best, bestDist = j, dist
			}
		}

		if best == -1 {
			if slot.ExpectedAt.Add(opts.Tolerance).Before(opts.Now) {
				findings = append(findings, domain.Finding{Slot: &slot, Status: domain.StatusMissed})
			}
			// Otherwise too early to judge; the slot is still in flight.
			continue
		}

		claimed[best] = true
		rec := records[best]
		f := domain.Finding{
			Slot:          &slot,
			MatchedRecord: &rec,
			Delay:         rec.StartedAt.Sub(slot.ExpectedAt),
		}
		switch {
		case rec.Outcome == domain.OutcomeRunning && opts.Now.Sub(rec.StartedAt) > opts.StuckThreshold:
			f.Status = domain.StatusStuck
		case rec.Outcome == domain.OutcomeUnknown:
			// Claimed to avoid double-classification, but never silently
			// upgraded to onTime.
			f.Status = domain.StatusUnknown
		case f.Delay > opts.Tolerance:
			f.Status = domain.StatusLate
		default:
			f.Status = domain.StatusOnTime
		}
		findings = append(findings, f)
	}

	return appendUnclaimed(findings, records, claimed)
}

func appendUnclaimed(findings []domain.Finding, records []domain.ExecutionRecord, claimed []bool) []domain.Finding {
	for j := range records {
		if claimed[j] {
			continue
		}
		rec := records[j]
		findings = append(findings, domain.Finding{
			MatchedRecord: &rec,
			Status:        domain.StatusUnexpected,
		})
	}
	return findings
}
