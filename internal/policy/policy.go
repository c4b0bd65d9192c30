// Package policy loads the audit policy file: global tolerance defaults
// plus per-schedule overrides.
package policy

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTolerance      = 5 * time.Minute
	DefaultStuckThreshold = 30 * time.Minute
)

// Rule tunes the audit of a single schedule. Zero fields fall back to
// the policy defaults.
type Rule struct {
	Tolerance      time.Duration
	StuckThreshold time.Duration
	Ignore         bool
}

// Policy is the parsed audit policy document.
type Policy struct {
	Defaults  Rule
	Schedules map[string]Rule
}

// Default returns a policy carrying only the built-in defaults.
func Default() Policy {
	return Policy{Defaults: Rule{
		Tolerance:      DefaultTolerance,
		StuckThreshold: DefaultStuckThreshold,
	}}
}

// Load reads and validates a policy file.
func Load(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(data)
}

// ruleDoc is the raw YAML shape; durations arrive as strings ("5m").
type ruleDoc struct {
	Tolerance      string `yaml:"tolerance"`
	StuckThreshold string `yaml:"stuck_threshold"`
	Ignore         bool   `yaml:"ignore"`
}

type policyDoc struct {
	Defaults  ruleDoc            `yaml:"defaults"`
	Schedules map[string]ruleDoc `yaml:"schedules"`
}

// Parse decodes a policy document and applies built-in defaults to
// anything left unset.
func Parse(data []byte) (Policy, error) {
	var doc policyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Policy{}, fmt.Errorf("policy: parse: %w", err)
	}

	p := Policy{}
	var err error
	if p.Defaults, err = doc.Defaults.rule("defaults"); err != nil {
		return Policy{}, err
	}
	if p.Defaults.Tolerance <= 0 {
		p.Defaults.Tolerance = DefaultTolerance
	}
	if p.Defaults.StuckThreshold <= 0 {
		p.Defaults.StuckThreshold = DefaultStuckThreshold
	}
	if len(doc.Schedules) > 0 {
		p.Schedules = make(map[string]Rule, len(doc.Schedules))
		for name, rd := range doc.Schedules {
			r, err := rd.rule("schedules." + name)
			if err != nil {
				return Policy{}, err
			}
			p.Schedules[name] = r
		}
	}
	return p, nil
}

func (d ruleDoc) rule(path string) (Rule, error) {
	tol, err := parseDurationField(path+".tolerance", d.Tolerance)
	if err != nil {
		return Rule{}, err
	}
	stuck, err := parseDurationField(path+".stuck_threshold", d.StuckThreshold)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Tolerance: tol, StuckThreshold: stuck, Ignore: d.Ignore}, nil
}

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("policy: %s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("policy: %s: duration must be >= 0", path)
	}
	return d, nil
}

// For returns the effective rule for a schedule name, merging its
// override onto the defaults.
func (p Policy) For(name string) Rule {
	eff := p.Defaults
	r, ok := p.Schedules[name]
	if !ok {
		return eff
	}
	if r.Tolerance > 0 {
		eff.Tolerance = r.Tolerance
	}
	if r.StuckThreshold > 0 {
		eff.StuckThreshold = r.StuckThreshold
	}
	eff.Ignore = r.Ignore
	return eff
}

// Store holds the active policy behind a mutex so the server can swap it
// on reload while audits read it.
type Store struct {
	mu sync.RWMutex
	p  Policy
}

func NewStore(p Policy) *Store { return &Store{p: p} }

func (s *Store) Current() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

func (s *Store) Replace(p Policy) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}
