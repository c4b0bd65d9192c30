// Package audit evaluates every schedule in a cluster snapshot:
// expand expected fire times, reconcile against observed runs, summarize.
package audit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"driftwatch/internal/domain"
	"driftwatch/internal/drift"
	"driftwatch/internal/ingest"
	"driftwatch/internal/policy"
	"driftwatch/internal/snapshot"
)

// Report is the audit outcome for one schedule.
type Report struct {
	Schedule  string                 `json:"schedule"`
	Suspended bool                   `json:"suspended,omitempty"`
	Summary   domain.ScheduleSummary `json:"summary"`
	Findings  []domain.Finding       `json:"findings,omitempty"`
	Err       string                 `json:"error,omitempty"`
}

// Result is one full audit over a snapshot.
type Result struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Reports     []Report  `json:"reports"`
}

// HasDrift reports whether any schedule showed a drift finding or failed
// to evaluate.
func (r Result) HasDrift() bool {
	for _, rep := range r.Reports {
		if rep.Err != "" || rep.Summary.Worst.IsDrift() {
			return true
		}
	}
	return false
}

// Auditor evaluates schedules concurrently. Schedules share no state, so
// the only coordination is a bounded semaphore.
type Auditor struct {
	pol     *policy.Store
	workers int
}

func New(pol *policy.Store, workers int) *Auditor {
	if workers <= 0 {
		workers = 4
	}
	return &Auditor{pol: pol, workers: workers}
}

// Audit evaluates every non-ignored schedule in snap over
// [windowStart, windowEnd), judging missed/stuck against now. Reports
// keep the snapshot's declaration order.
func (a *Auditor) Audit(snap snapshot.ClusterSnapshot, windowStart, windowEnd, now time.Time) Result {
	pol := a.pol.Current()

	type slotJob struct {
		idx int
		job ingest.ScheduledJob
	}
	var jobs []slotJob
	for _, j := range snap.Jobs {
		name := j.QualifiedName()
		if pol.For(name).Ignore {
			log.Debug().Str("schedule", name).Msg("ignored by policy")
			continue
		}
		jobs = append(jobs, slotJob{idx: len(jobs), job: j})
	}

	reports := make([]Report, len(jobs))
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	for _, sj := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sj slotJob) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[sj.idx] = a.evaluate(snap, sj.job, pol, windowStart, windowEnd, now)
		}(sj)
	}
	wg.Wait()

	return Result{
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
		EvaluatedAt: now.UTC(),
		Reports:     reports,
	}
}

func (a *Auditor) evaluate(snap snapshot.ClusterSnapshot, j ingest.ScheduledJob, pol policy.Policy, windowStart, windowEnd, now time.Time) Report {
	name := j.QualifiedName()
	rep := Report{Schedule: name, Suspended: j.Suspend}

	spec, err := ingest.NormalizeSchedule(j)
	if err != nil {
		log.Warn().Err(err).Str("schedule", name).Msg("invalid schedule declaration")
		rep.Err = err.Error()
		return rep
	}

	native := snap.RunsFor(name)
	records := make([]domain.ExecutionRecord, 0, len(native))
	for _, r := range native {
		records = append(records, ingest.NormalizeRun(r))
	}
	ingest.SortRecords(records)

	rule := pol.For(name)
	slots := spec.Expand(windowStart, windowEnd)
	findings := drift.Reconcile(slots, records, drift.Options{
		Tolerance:      rule.Tolerance,
		StuckThreshold: rule.StuckThreshold,
		Now:            now,
		WindowEnd:      windowEnd,
		Suspended:      spec.Suspended,
	})

	rep.Findings = findings
	rep.Summary = drift.Summarize(findings)
	return rep
}
