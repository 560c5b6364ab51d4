package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Unlimited disables retention trimming for a schedule.
const Unlimited = -1

var ErrUnknownSchedule = errors.New("unknown schedule")

// Policy caps how many successful scheduled backups a schedule keeps.
type Policy struct {
	ScheduleID     string `yaml:"id" json:"scheduleId"`
	RetentionCount int    `yaml:"retention" json:"retentionCount"`
	// Interval is informational; triggering backups is the host scheduler's job.
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"`
}

func (p Policy) Unlimited() bool {
	return p.RetentionCount < 0
}

// Source looks up the retention policy of a schedule.
type Source interface {
	Policy(ctx context.Context, scheduleID string) (Policy, error)
}

// Table is a static, in-memory policy source.
type Table struct {
	policies map[string]Policy
	fallback *Policy
	mu       sync.RWMutex
}

// NewTable builds a table from policies. Later duplicates replace earlier ones.
func NewTable(policies ...Policy) *Table {
	t := &Table{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		t.policies[p.ScheduleID] = p
	}
	return t
}

// WithDefault sets the retention applied to schedules missing from the table.
func (t *Table) WithDefault(retentionCount int) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = &Policy{RetentionCount: retentionCount}
	return t
}

// HasDefault reports whether schedules missing from the table get a fallback policy.
func (t *Table) HasDefault() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fallback != nil
}

func (t *Table) Set(p Policy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.policies[p.ScheduleID] = p
}

func (t *Table) Policy(_ context.Context, scheduleID string) (Policy, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if p, ok := t.policies[scheduleID]; ok {
		return p, nil
	}
	if t.fallback != nil {
		return Policy{ScheduleID: scheduleID, RetentionCount: t.fallback.RetentionCount}, nil
	}
	return Policy{}, fmt.Errorf("%w: %s", ErrUnknownSchedule, scheduleID)
}

// List returns all configured policies ordered by schedule id.
func (t *Table) List() []Policy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Policy, 0, len(t.policies))
	for _, p := range t.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleID < out[j].ScheduleID })
	return out
}

type fileFormat struct {
	DefaultRetention *int     `yaml:"default_retention"`
	Schedules        []Policy `yaml:"schedules"`
}

// LoadFile reads a YAML schedule file:
//
//	default_retention: 10
//	schedules:
//	  - id: daily
//	    retention: 7
//	  - id: weekly
//	    retention: -1
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schedule file: %w", err)
	}

	for i, p := range f.Schedules {
		if p.ScheduleID == "" {
			return nil, fmt.Errorf("schedule %d: missing id", i)
		}
		if p.RetentionCount < Unlimited {
			return nil, fmt.Errorf("schedule %s: retention must be >= -1, got %d", p.ScheduleID, p.RetentionCount)
		}
	}

	t := NewTable(f.Schedules...)
	if f.DefaultRetention != nil {
		t.WithDefault(*f.DefaultRetention)
	}
	return t, nil
}
