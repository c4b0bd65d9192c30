package drift

import "driftwatch/internal/domain"

// Summarize reduces a findings list to a per-schedule summary. The
// reduction is order-independent: any permutation of findings yields an
// identical summary.
func Summarize(findings []domain.Finding) domain.ScheduleSummary {
	sum := domain.ScheduleSummary{
		Counts: make(map[domain.Status]int, len(findings)),
		Worst:  domain.StatusOnTime,
	}
	if len(findings) == 0 {
		return sum
	}

	sum.Worst = findings[0].Status
	for _, f := range findings {
		sum.Counts[f.Status]++
		if f.Status.Severity() > sum.Worst.Severity() {
			sum.Worst = f.Status
		}
		if f.Status.IsDrift() {
			if at := f.At(); at.After(sum.LastDrift) {
				sum.LastDrift = at
			}
		}
	}
	return sum
}
