package metrics

import (
	"context"
	"testing"
	"time"

	coremetrics "github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/internal/eventbus"
)

func TestCollectorTalliesTerminalEvents(t *testing.T) {
	bus := eventbus.NewTyped[coremetrics.RunEvent]()
	c := StartEventCollector(context.Background(), bus, nil)

	bus.Publish(coremetrics.RunEvent{RunID: "a", State: "solving"})
	bus.Publish(coremetrics.RunEvent{RunID: "a", State: "solved", Status: "optimal", Objective: 12, Duration: time.Second})
	bus.Publish(coremetrics.RunEvent{RunID: "b", State: "solved", Status: "locally_optimal", Objective: 9, Duration: time.Second})
	bus.Publish(coremetrics.RunEvent{RunID: "c", State: "failed", Err: "infeasible"})
	bus.Close()
	c.Wait()

	s := c.Stats()
	if s.Solved != 2 || s.Failed != 1 {
		t.Fatalf("unexpected tallies: %+v", s)
	}
	if s.BestRun != "b" || s.Best != 9 {
		t.Fatalf("unexpected best: %+v", s)
	}
	if s.Duration != 2*time.Second {
		t.Fatalf("duration = %s", s.Duration)
	}
}

func TestCollectorStopsOnCancel(t *testing.T) {
	bus := eventbus.NewTyped[coremetrics.RunEvent]()
	ctx, cancel := context.WithCancel(context.Background())
	c := StartEventCollector(ctx, bus, nil)
	cancel()
	c.Wait()

	nilBus := StartEventCollector(context.Background(), nil, nil)
	nilBus.Wait()
}
