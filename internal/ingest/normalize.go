package ingest

import (
	"sort"
	"strings"

	"driftwatch/internal/domain"
	"driftwatch/internal/schedule"
)

// NormalizeRun maps a native run object onto an ExecutionRecord. It never
// fails: unrecognized or missing state information degrades to
// OutcomeUnknown so the detector can still claim the slot.
func NormalizeRun(r Run) domain.ExecutionRecord {
	rec := domain.ExecutionRecord{Name: r.Name, Outcome: outcomeOf(r)}
	if r.StartTime != nil {
		rec.StartedAt = r.StartTime.UTC()
	}
	if r.CompletionTime != nil {
		rec.FinishedAt = r.CompletionTime.UTC()
	}
	return rec
}

func outcomeOf(r Run) domain.Outcome {
	switch strings.ToLower(r.Phase) {
	case "succeeded", "complete", "completed":
		return domain.OutcomeSucceeded
	case "failed", "error":
		return domain.OutcomeFailed
	case "running", "active", "pending":
		return domain.OutcomeRunning
	}
	// No usable phase; fall back to the counters.
	switch {
	case r.Succeeded > 0:
		return domain.OutcomeSucceeded
	case r.Failed > 0:
		return domain.OutcomeFailed
	case r.Active > 0:
		return domain.OutcomeRunning
	}
	return domain.OutcomeUnknown
}

// NormalizeSchedule converts a native declaration into a schedule Spec.
// Unlike runs, a malformed declaration is a configuration defect and
// surfaces as a *schedule.ParseError.
func NormalizeSchedule(j ScheduledJob) (schedule.Spec, error) {
	return schedule.NewSpec(j.Schedule, j.TimeZone, j.Suspend)
}

// SortRecords orders records by start time ascending; never-started
// records sort first. The platform guarantees no inbound order.
func SortRecords(records []domain.ExecutionRecord) {
	sort.SliceStable(records, func(i, k int) bool {
		return records[i].StartedAt.Before(records[k].StartedAt)
	})
}
