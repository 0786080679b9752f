package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/model"
)

// RunEvent describes a state transition of a scheduling run.
type RunEvent struct {
	RunID     string
	State     string
	Status    string // solver status, empty before solving
	Method    string
	Cohorts   int
	Horizon   int
	Objective float64
	Duration  time.Duration // time spent solving, zero before Solved/Failed
	Err       string
	Time      time.Time
}

// Terminal reports whether the run has finished.
func (e RunEvent) Terminal() bool {
	return e.State == "solved" || e.State == "failed"
}

// MetricsSink records run transitions for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// ScheduleEvent carries a solved schedule.
type ScheduleEvent struct {
	Schedule *model.Schedule
	Time     time.Time
}

// ScheduleRecorder is implemented by sinks that store solved schedules.
type ScheduleRecorder interface {
	RecordSchedule(ev ScheduleEvent) error
}

// Flusher is implemented by sinks that buffer output until flushed.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error           { return nil }
func (NopSink) RecordSchedule(ScheduleEvent) error { return nil }
func (NopSink) Flush(context.Context) error        { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSchedule forwards to sinks implementing ScheduleRecorder.
func (m *MultiSink) RecordSchedule(ev ScheduleEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ScheduleRecorder); ok {
			if err := rec.RecordSchedule(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink that buffers and joins their errors.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush(ctx))
		}
	}
	return errors.Join(errs...)
}

// RecordSchedule records ev on s when s supports schedules.
func RecordSchedule(s MetricsSink, ev ScheduleEvent) error {
	if rec, ok := s.(ScheduleRecorder); ok {
		return rec.RecordSchedule(ev)
	}
	return nil
}

// Flush flushes s when it buffers.
func Flush(ctx context.Context, s MetricsSink) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}
