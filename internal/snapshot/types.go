// Package snapshot persists captured cluster state and diffs successive
// captures. Audits recompute from snapshots; audit results themselves
// are never stored.
package snapshot

import (
	"time"

	"driftwatch/internal/ingest"
)

// ClusterSnapshot is one capture of the scheduled workloads and their
// run objects, scoped to the collector's look-back window.
type ClusterSnapshot struct {
	CapturedAt time.Time             `json:"captured_at"`
	Jobs       []ingest.ScheduledJob `json:"scheduled_jobs"`
	Runs       []ingest.Run          `json:"runs"`
}

// Stored is a snapshot as read back from the store.
type Stored struct {
	ID         string          `json:"id"`
	CapturedAt time.Time       `json:"captured_at"`
	Snapshot   ClusterSnapshot `json:"-"`
}

// RunsFor returns the native runs owned by the named scheduled job.
func (s ClusterSnapshot) RunsFor(owner string) []ingest.Run {
	var out []ingest.Run
	for _, r := range s.Runs {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out
}
