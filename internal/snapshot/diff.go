package snapshot

import "sort"

// Changes lists schedules that appeared or disappeared between two
// captures.
type Changes struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Diff compares the current capture against the previous one. Names are
// reported sorted for stable output.
func Diff(current, previous ClusterSnapshot) Changes {
	cur := nameSet(current)
	prev := nameSet(previous)

	var ch Changes
	for name := range cur {
		if !prev[name] {
			ch.Added = append(ch.Added, name)
		}
	}
	for name := range prev {
		if !cur[name] {
			ch.Removed = append(ch.Removed, name)
		}
	}
	sort.Strings(ch.Added)
	sort.Strings(ch.Removed)
	return ch
}

func nameSet(s ClusterSnapshot) map[string]bool {
	m := make(map[string]bool, len(s.Jobs))
	for _, j := range s.Jobs {
		m[j.QualifiedName()] = true
	}
	return m
}
