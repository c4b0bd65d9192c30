// Package ingest is the only seam touching the orchestration platform's
// native object shapes. Everything past NormalizeRun / NormalizeSchedule
// sees the uniform domain types.
package ingest

import "time"

// ScheduledJob is the platform's declaration of a recurring workload, as
// it appears in a captured snapshot.
type ScheduledJob struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	Schedule  string `json:"schedule"`
	TimeZone  string `json:"timeZone,omitempty"`
	Suspend   bool   `json:"suspend,omitempty"`
}

// QualifiedName returns namespace/name, or just name when the namespace
// is empty.
func (j ScheduledJob) QualifiedName() string {
	if j.Namespace == "" {
		return j.Name
	}
	return j.Namespace + "/" + j.Name
}

// Run is one native run object owned by a scheduled job. The platform
// reports lifecycle as a free-form phase string plus optional counters;
// either may be missing on partially-populated objects.
type Run struct {
	Name           string     `json:"name"`
	Owner          string     `json:"owner,omitempty"`
	Phase          string     `json:"phase,omitempty"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	CompletionTime *time.Time `json:"completionTime,omitempty"`
	Active         int        `json:"active,omitempty"`
	Succeeded      int        `json:"succeeded,omitempty"`
	Failed         int        `json:"failed,omitempty"`
}
