package metrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/zacharyweiss/demandscheduling/core/metrics"
)

// PromConfig configures the Prometheus sink. Textfile, when set, is the
// path written on Flush in the node_exporter textfile format.
type PromConfig struct {
	Textfile string `json:"textfile"`
}

// PromSink records runs and schedules in Prometheus metrics.
type PromSink struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cost     prometheus.Gauge
	energy   *prometheus.GaugeVec
	price    *prometheus.GaugeVec

	textfile string
	gatherer prometheus.Gatherer
}

// NewPromSink registers scheduling metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{textfile: cfg.Textfile, gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}

	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demandsched_runs_total",
		Help: "Scheduling run transitions by state and solver status",
	}, []string{"state", "status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "demandsched_solve_duration_seconds",
		Help:    "Wall time spent in the solver per run",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demandsched_schedule_cost",
		Help: "Total cost of the last solved schedule",
	})); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "demandsched_cohort_energy_kwh",
		Help: "Net energy bought by each cohort in the last solved schedule",
	}, []string{"cohort"})); err != nil {
		return nil, err
	}
	if s.price, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "demandsched_hourly_price",
		Help: "Realised price per hour in the last solved schedule",
	}, []string{"hour"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun counts the transition and observes the solve time of finished runs.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.State, orNone(ev.Status)).Inc()
	if ev.Terminal() && ev.Duration > 0 {
		s.duration.WithLabelValues(orNone(ev.Method)).Observe(ev.Duration.Seconds())
	}
	return nil
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

// RecordSchedule exposes cost, per cohort energy and prices of a schedule.
func (s *PromSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	sch := ev.Schedule
	if sch == nil {
		return nil
	}
	s.cost.Set(sch.Cost)
	for _, c := range sch.Cohorts {
		s.energy.WithLabelValues(c.Name).Set(c.Energy())
	}
	s.price.Reset()
	for h, p := range sch.Prices {
		s.price.WithLabelValues(strconv.Itoa(h)).Set(p)
	}
	return nil
}

// Flush writes the textfile when one is configured.
func (s *PromSink) Flush(context.Context) error {
	if s.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(s.textfile, s.gatherer)
}
