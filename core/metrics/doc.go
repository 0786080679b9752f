// Package metrics defines the sinks that observe scheduling runs. Every sink
// records RunEvents; sinks that also store solved schedules implement
// ScheduleRecorder and sinks that buffer implement Flusher. Implementations
// register themselves by type name so they can be selected from
// configuration, and NewMetricsSink returns a MultiSink when several are
// configured.
package metrics
