// Package runlog keeps a history of scheduling runs so they can be queried
// after the fact, either from a JSONL file or from SQLite.
package runlog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/model"
)

// Record captures one finished run.
type Record struct {
	Timestamp  time.Time       `json:"timestamp"`
	RunID      string          `json:"run_id"`
	State      string          `json:"state"`
	Status     string          `json:"status,omitempty"`
	Method     string          `json:"method,omitempty"`
	Cohorts    int             `json:"cohorts"`
	Horizon    int             `json:"horizon"`
	Objective  float64         `json:"objective"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Schedule   *model.Schedule `json:"schedule,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start  time.Time
	End    time.Time
	RunID  string
	State  string
	Cohort string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.State != "" && r.State != q.State {
		return false
	}
	if q.Cohort != "" {
		if r.Schedule == nil {
			return false
		}
		return slices.ContainsFunc(r.Schedule.Cohorts, func(c model.CohortSchedule) bool { return c.Name == q.Cohort })
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	// Type is "jsonl", "rotating" or "sqlite". Empty disables the run log.
	Type       string `json:"type"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Enabled reports whether a store is configured.
func (c Config) Enabled() bool { return c.Type != "" }

// Validate checks the store type and path.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	switch c.Type {
	case "jsonl", "rotating", "sqlite":
	default:
		return fmt.Errorf("runlog: unknown type %q", c.Type)
	}
	if c.Path == "" {
		return fmt.Errorf("runlog: path is required for %s", c.Type)
	}
	return nil
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		size := cfg.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		return NewRotatingJSONLStore(cfg.Path, size, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return nil, fmt.Errorf("runlog: disabled")
}
