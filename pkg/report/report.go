// Package report renders schedules and sweeps as terminal tables. Hours in
// which a cohort sells energy back are shown in red, charging hours in
// green and hours where the cohort is not connected as a dash.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/juju/ansiterm"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
)

// Options controls rendering.
type Options struct {
	Color   bool
	Storage bool // add a storage column per cohort
	Eps     float64
}

// DefaultOptions renders with colour and without storage columns.
func DefaultOptions() Options { return Options{Color: true, Eps: 1e-6} }

func newTabWriter(w io.Writer, color bool) *ansiterm.TabWriter {
	tw := ansiterm.NewTabWriter(w, 0, 8, 2, ' ', 0)
	tw.SetColorCapable(color)
	return tw
}

// Schedule writes one row per hour with the price, aggregate demand and the
// rate of every cohort, followed by a summary line.
func Schedule(w io.Writer, s *model.Schedule, opts Options) error {
	tw := newTabWriter(w, opts.Color)
	fmt.Fprint(tw, "HOUR\tPRICE\tDEMAND")
	for _, c := range s.Cohorts {
		fmt.Fprintf(tw, "\t%s", c.Name)
		if opts.Storage {
			fmt.Fprintf(tw, "\t%s.soc", c.Name)
		}
	}
	fmt.Fprintln(tw)

	demand := s.Demand()
	for h := 0; h < s.Horizon; h++ {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f", h, s.Prices[h], demand[h])
		for _, c := range s.Cohorts {
			fmt.Fprint(tw, "\t")
			writeRate(tw, c, h, opts.Eps)
			if opts.Storage {
				fmt.Fprintf(tw, "\t%.3f", c.Storage[h])
			}
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "cost %.4f  status %s  method %s  starts %d  run %s\n",
		s.Cost, s.Status, s.Method, s.Starts, s.RunID)
	return err
}

func writeRate(tw *ansiterm.TabWriter, c model.CohortSchedule, h int, eps float64) {
	if len(c.Cohort.AvailableHours) > 0 && !c.Cohort.Online(h) {
		tw.SetForeground(ansiterm.DarkGray)
		fmt.Fprint(tw, "-")
		tw.Reset()
		return
	}
	r := c.Rate[h]
	switch {
	case r < -eps:
		tw.SetForeground(ansiterm.Red)
	case r > eps:
		tw.SetForeground(ansiterm.Green)
	}
	fmt.Fprintf(tw, "%.3f", r)
	tw.Reset()
}

// Sweep writes one row per sweep point. The cheapest solved point is bold.
func Sweep(w io.Writer, points []scheduling.SweepPoint, opts Options) error {
	best := -1
	for i, p := range points {
		if p.Schedule != nil && (best < 0 || p.Schedule.Cost < points[best].Schedule.Cost) {
			best = i
		}
	}
	tw := newTabWriter(w, opts.Color)
	fmt.Fprintln(tw, "ELASTICITY\tSTATUS\tCOST\tPEAK\tRUN")
	for i, p := range points {
		if p.Schedule == nil {
			tw.SetForeground(ansiterm.Red)
			fmt.Fprintf(tw, "%g\tfailed\t-\t-\t%s\n", p.Elasticity, p.RunID)
			tw.Reset()
			continue
		}
		if i == best {
			tw.SetStyle(ansiterm.Bold)
		}
		fmt.Fprintf(tw, "%g\t%s\t%.4f\t%.3f\t%s\n",
			p.Elasticity, p.Schedule.Status, p.Schedule.Cost, slices.Max(p.Schedule.Demand()), p.RunID)
		tw.Reset()
	}
	return tw.Flush()
}
