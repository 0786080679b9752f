package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/scheduling"
)

// WriteJSON writes the schedule to w as indented JSON.
func WriteJSON(w io.Writer, s *model.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteCSV writes one row per hour and cohort, in hour order.
func WriteCSV(w io.Writer, s *model.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "hour", "cohort", "rate", "storage", "price"}); err != nil {
		return err
	}
	for h := 0; h < s.Horizon; h++ {
		for _, c := range s.Cohorts {
			rec := []string{
				s.RunID,
				strconv.Itoa(h),
				c.Name,
				ftoa(c.Rate[h]),
				ftoa(c.Storage[h]),
				ftoa(s.Prices[h]),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSweepCSV writes one row per sweep point. Failed points keep their
// error and leave the numeric columns empty.
func WriteSweepCSV(w io.Writer, points []scheduling.SweepPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"elasticity", "run_id", "status", "cost", "peak_demand", "error"}); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{ftoa(p.Elasticity), p.RunID, "failed", "", "", ""}
		if p.Err != nil {
			rec[5] = p.Err.Error()
		}
		if p.Schedule != nil {
			rec[2] = p.Schedule.Status
			rec[3] = ftoa(p.Schedule.Cost)
			rec[4] = ftoa(slices.Max(p.Schedule.Demand()))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHTML renders the schedule as a standalone line chart: the hourly
// price on the left axis and one rate series per cohort on the right.
func WriteHTML(w io.Writer, s *model.Schedule) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Schedule " + s.RunID, Subtitle: fmt.Sprintf("cost %.2f, %s", s.Cost, s.Status)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "price"}),
		charts.WithLegendOpts(opts.Legend{Right: "10%"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "kWh"})

	hours := make([]string, s.Horizon)
	for h := range hours {
		hours[h] = strconv.Itoa(h)
	}
	line.SetXAxis(hours).AddSeries("price", lineData(s.Prices))
	for _, c := range s.Cohorts {
		line.AddSeries(c.Name, lineData(c.Rate), charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func lineData(v []float64) []opts.LineData {
	out := make([]opts.LineData, len(v))
	for i, x := range v {
		out[i] = opts.LineData{Value: x}
	}
	return out
}
