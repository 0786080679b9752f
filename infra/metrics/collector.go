package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/logger"
	coremetrics "github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/internal/eventbus"
)

// RunStats summarises the terminal run events seen by a Collector.
type RunStats struct {
	Solved   int
	Failed   int
	Best     float64 // lowest objective among solved runs
	BestRun  string
	Duration time.Duration // summed solve time
}

// Collector tallies run events published on a bus and logs each finished
// run.
type Collector struct {
	mu    sync.Mutex
	stats RunStats
	done  chan struct{}
}

// StartEventCollector subscribes to the event bus and tallies run events.
// It stops when ctx is canceled or the bus is closed; Wait blocks until then.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.RunEvent], log logger.Logger) *Collector {
	c := &Collector{done: make(chan struct{})}
	if bus == nil {
		close(c.done)
		return c
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.SubscribeBuffered(64)
	go func() {
		defer close(c.done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				c.observe(ev, log)
			}
		}
	}()
	return c
}

func (c *Collector) observe(ev coremetrics.RunEvent, log logger.Logger) {
	if !ev.Terminal() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Duration += ev.Duration
	if ev.State == "failed" {
		c.stats.Failed++
		log.Warnf("run %s failed after %s: %s", ev.RunID, ev.Duration, ev.Err)
		return
	}
	c.stats.Solved++
	if c.stats.BestRun == "" || ev.Objective < c.stats.Best {
		c.stats.Best, c.stats.BestRun = ev.Objective, ev.RunID
	}
	log.Infof("run %s %s via %s: objective %.4f", ev.RunID, ev.Status, ev.Method, ev.Objective)
}

// Stats returns a snapshot of the tallies.
func (c *Collector) Stats() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Wait blocks until the collector has stopped.
func (c *Collector) Wait() { <-c.done }
