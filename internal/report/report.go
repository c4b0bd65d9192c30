// Package report renders audit results for humans. It owns all duration
// prettifying; the core packages deal only in absolute instants.
package report

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"driftwatch/internal/audit"
	"driftwatch/internal/domain"
	"driftwatch/internal/snapshot"
)

// Line is one rendered per-schedule entry.
type Line struct {
	Schedule string
	Text     string
}

// Lines flattens a result into one entry per noteworthy schedule,
// sorted by name. Clean schedules are omitted.
func Lines(res audit.Result) []Line {
	var out []Line
	for _, rep := range res.Reports {
		if text := describe(rep, res.EvaluatedAt); text != "" {
			out = append(out, Line{Schedule: rep.Schedule, Text: text})
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Schedule < out[k].Schedule })
	return out
}

func describe(rep audit.Report, now time.Time) string {
	if rep.Err != "" {
		return "Invalid declaration: " + rep.Err
	}
	if !rep.Summary.Worst.IsDrift() {
		return ""
	}

	var parts []string
	for _, st := range []domain.Status{
		domain.StatusStuck,
		domain.StatusMissed,
		domain.StatusLate,
		domain.StatusUnknown,
		domain.StatusUnexpected,
	} {
		n := rep.Summary.Counts[st]
		if n == 0 {
			continue
		}
		switch st {
		case domain.StatusStuck:
			parts = append(parts, fmt.Sprintf("%d stuck", n))
		case domain.StatusMissed:
			parts = append(parts, fmt.Sprintf("%d missed", n))
		case domain.StatusLate:
			parts = append(parts, fmt.Sprintf("%d late", n))
		case domain.StatusUnknown:
			parts = append(parts, fmt.Sprintf("%d with unknown outcome", n))
		case domain.StatusUnexpected:
			parts = append(parts, fmt.Sprintf("%d unexpected", n))
		}
	}
	text := strings.Join(parts, ", ")
	if !rep.Summary.LastDrift.IsZero() {
		text += fmt.Sprintf(", last drift %s", humanize.RelTime(rep.Summary.LastDrift, now, "ago", "from now"))
	}
	return text
}

// Text renders a plain-text report suitable for terminal output.
func Text(res audit.Result, changes *snapshot.Changes) string {
	var b strings.Builder
	span := res.WindowEnd.Sub(res.WindowStart)
	fmt.Fprintf(&b, "In the %s leading up to %s...\n", naturalSpan(span), res.WindowEnd.Format(time.RFC3339))

	lines := Lines(res)
	if len(lines) == 0 {
		b.WriteString("\nNothing to report for scheduled jobs.\n")
	} else {
		b.WriteString("\nNoteworthy scheduled jobs:\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "  - %s: %s\n", l.Schedule, l.Text)
		}
	}

	if changes != nil {
		for _, name := range changes.Added {
			fmt.Fprintf(&b, "  - %s: New\n", name)
		}
		for _, name := range changes.Removed {
			fmt.Fprintf(&b, "  - %s: Deleted\n", name)
		}
	}
	return b.String()
}

// HTML renders the report body the way the mailer expects it.
func HTML(res audit.Result, changes *snapshot.Changes) string {
	var b strings.Builder
	span := res.WindowEnd.Sub(res.WindowStart)
	fmt.Fprintf(&b, "<p>In the %s leading up to %s...</p>", naturalSpan(span), res.WindowEnd.Format(time.RFC3339))

	lines := Lines(res)
	if len(lines) == 0 && (changes == nil || len(changes.Added)+len(changes.Removed) == 0) {
		b.WriteString("<p>Nothing to report for scheduled jobs.</p>")
		return b.String()
	}

	b.WriteString("<p>Noteworthy scheduled jobs:</p><ul>")
	for _, l := range lines {
		fmt.Fprintf(&b, "<li>%s: %s</li>", html.EscapeString(l.Schedule), html.EscapeString(l.Text))
	}
	if changes != nil {
		for _, name := range changes.Added {
			fmt.Fprintf(&b, "<li>%s: New</li>", html.EscapeString(name))
		}
		for _, name := range changes.Removed {
			fmt.Fprintf(&b, "<li>%s: Deleted</li>", html.EscapeString(name))
		}
	}
	b.WriteString("</ul>")
	return b.String()
}

// naturalSpan renders a duration the way humans say it ("2 hours").
func naturalSpan(d time.Duration) string {
	ref := time.Unix(0, 0)
	s := humanize.RelTime(ref, ref.Add(d), "", "")
	return strings.TrimSpace(s)
}
