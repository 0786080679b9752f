package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zacharyweiss/demandscheduling/config"
	coremetrics "github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/core/model"
	coremqtt "github.com/zacharyweiss/demandscheduling/core/mqtt"
	"github.com/zacharyweiss/demandscheduling/core/runlog"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
	"github.com/zacharyweiss/demandscheduling/core/solver"
	"github.com/zacharyweiss/demandscheduling/infra/logger"
	"github.com/zacharyweiss/demandscheduling/infra/metrics"
	"github.com/zacharyweiss/demandscheduling/infra/mqtt"
	"github.com/zacharyweiss/demandscheduling/internal/eventbus"
)

// Service wires the planner to the configured sinks and publisher.
type Service struct {
	Planner   *scheduling.Planner
	Publisher coremqtt.SchedulePublisher

	cfg        *config.Config
	sink       coremetrics.MetricsSink
	bus        *eventbus.TypedBus[coremetrics.RunEvent]
	collector  *metrics.Collector
	stop       context.CancelFunc
	log        logger.Logger
	disconnect func()
	runs       runlog.Store

	mu     sync.Mutex
	latest *model.Schedule
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher replaces the MQTT publisher built from the configuration.
func WithPublisher(p coremqtt.SchedulePublisher) Option {
	return func(s *Service) { s.Publisher = p }
}

// WithSolver replaces the configured orchestrator.
func WithSolver(sv solver.Solver) Option {
	return func(s *Service) { s.Planner.Solver = sv }
}

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	logg := logger.NewZerologLogger("service",
		logger.WithLevel(cfg.Logging.Level), logger.WithConsole(cfg.Logging.Format == "console"))

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var runs runlog.Store
	if cfg.RunLog.Enabled() {
		runs, err = runlog.Open(cfg.RunLog)
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		sink = coremetrics.NewMultiSink(sink, runlog.NewSink(runs, logg))
	}

	bus := eventbus.NewTyped[coremetrics.RunEvent]()
	planner := scheduling.NewPlanner(cfg.Solver.Orchestrator(logg))
	planner.Sink = sink
	planner.Events = bus
	planner.Tolerance = cfg.Solver.Tolerance

	svc := &Service{Planner: planner, cfg: cfg, sink: sink, bus: bus, log: logg, runs: runs}
	for _, opt := range opts {
		opt(svc)
	}
	planner.Log = svc.log
	if o, ok := planner.Solver.(*solver.Orchestrator); ok {
		o.Log = svc.log
	}

	if svc.Publisher == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			if runs != nil {
				_ = runs.Close()
			}
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.Publisher = client
		svc.disconnect = client.Disconnect
	}
	// a publisher that also reports runs (the paho client does) receives
	// run transitions only; schedules still go through Plan
	if rs, ok := svc.Publisher.(coremetrics.MetricsSink); ok {
		svc.sink = coremetrics.NewMultiSink(svc.sink, runSink{rs})
		planner.Sink = svc.sink
	}

	ctx, stop := context.WithCancel(context.Background())
	svc.stop = stop
	svc.collector = metrics.StartEventCollector(ctx, bus, svc.log)
	return svc, nil
}

// Input resolves the configured cohorts and pricing.
func (s *Service) Input() (scheduling.Input, error) {
	return s.cfg.Input()
}

// Plan solves in and, when publish is set, hands the schedule to the
// publisher and waits up to ackTimeout for every cohort to acknowledge.
// A zero ackTimeout skips waiting.
func (s *Service) Plan(ctx context.Context, in scheduling.Input, publish bool, ackTimeout time.Duration) (*model.Schedule, error) {
	sch, err := s.Planner.Plan(ctx, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.latest = sch
	s.mu.Unlock()
	if !publish {
		return sch, nil
	}
	if s.Publisher == nil {
		return sch, errors.New("publishing requested but mqtt is not enabled")
	}
	ids, err := s.Publisher.PublishSchedule(ctx, sch)
	if err != nil {
		return sch, fmt.Errorf("publish schedule: %w", err)
	}
	if ackTimeout <= 0 {
		return sch, nil
	}
	var errs []error
	for i, id := range ids {
		ok, err := s.Publisher.WaitForAck(id, ackTimeout)
		if err == nil && !ok {
			err = errors.New("not acknowledged")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("cohort %s: %w", sch.Cohorts[i].Name, err))
		}
	}
	return sch, errors.Join(errs...)
}

// Sweep runs the elasticity sweep with the configured worker count.
func (s *Service) Sweep(ctx context.Context, in scheduling.Input, elasticities []float64) ([]scheduling.SweepPoint, error) {
	return s.Planner.Sweep(ctx, in, elasticities, s.cfg.Solver.Workers)
}

// Latest returns the schedule of the last successful Plan, or nil.
func (s *Service) Latest() *model.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Runs returns the run history store, or nil when the run log is disabled.
func (s *Service) Runs() runlog.Store { return s.runs }

// Stats returns the run tallies collected so far. They are complete once
// Close has returned.
func (s *Service) Stats() metrics.RunStats { return s.collector.Stats() }

// Close flushes the sinks and releases the publisher.
func (s *Service) Close(ctx context.Context) error {
	s.bus.Close()
	s.collector.Wait()
	s.stop()
	err := coremetrics.Flush(ctx, s.sink)
	if s.disconnect != nil {
		s.disconnect()
	}
	if s.runs != nil {
		err = errors.Join(err, s.runs.Close())
	}
	return err
}

// runSink hides any schedule or flush methods of the wrapped sink from
// MultiSink.
type runSink struct{ coremetrics.MetricsSink }
