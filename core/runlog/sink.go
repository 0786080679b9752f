package runlog

import (
	"context"
	"errors"
	"sync"

	"github.com/zacharyweiss/demandscheduling/core/logger"
	"github.com/zacharyweiss/demandscheduling/core/metrics"
)

// Sink writes one Record per finished run into a Store. A solved run is
// held until its schedule arrives so both land in the same record.
type Sink struct {
	store Store
	log   logger.Logger

	mu      sync.Mutex
	pending map[string]Record
}

var (
	_ metrics.MetricsSink      = (*Sink)(nil)
	_ metrics.ScheduleRecorder = (*Sink)(nil)
	_ metrics.Flusher          = (*Sink)(nil)
)

// NewSink wraps store. A nil log discards diagnostics.
func NewSink(store Store, log logger.Logger) *Sink {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Sink{store: store, log: log, pending: make(map[string]Record)}
}

func recordOf(ev metrics.RunEvent) Record {
	return Record{
		Timestamp:  ev.Time,
		RunID:      ev.RunID,
		State:      ev.State,
		Status:     ev.Status,
		Method:     ev.Method,
		Cohorts:    ev.Cohorts,
		Horizon:    ev.Horizon,
		Objective:  ev.Objective,
		DurationMS: ev.Duration.Milliseconds(),
		Error:      ev.Err,
	}
}

// RecordRun stores failed runs and parks solved ones.
func (s *Sink) RecordRun(ev metrics.RunEvent) error {
	switch ev.State {
	case "failed":
		return s.store.Append(context.Background(), recordOf(ev))
	case "solved":
		s.mu.Lock()
		s.pending[ev.RunID] = recordOf(ev)
		s.mu.Unlock()
	}
	return nil
}

// RecordSchedule completes the parked record of the schedule's run.
func (s *Sink) RecordSchedule(ev metrics.ScheduleEvent) error {
	if ev.Schedule == nil {
		return nil
	}
	s.mu.Lock()
	rec, ok := s.pending[ev.Schedule.RunID]
	delete(s.pending, ev.Schedule.RunID)
	s.mu.Unlock()
	if !ok {
		rec = Record{Timestamp: ev.Time, RunID: ev.Schedule.RunID, State: "solved",
			Status: ev.Schedule.Status, Method: ev.Schedule.Method, Horizon: ev.Schedule.Horizon,
			Cohorts: len(ev.Schedule.Cohorts), Objective: ev.Schedule.Cost}
	}
	rec.Schedule = ev.Schedule
	return s.store.Append(context.Background(), rec)
}

// Flush writes parked records that never received a schedule.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]Record)
	s.mu.Unlock()
	var errs []error
	for id, rec := range pending {
		s.log.Warnf("run %s: storing record without schedule", id)
		errs = append(errs, s.store.Append(ctx, rec))
	}
	return errors.Join(errs...)
}
