package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/zacharyweiss/demandscheduling/core/metrics"
	"github.com/zacharyweiss/demandscheduling/infra/logger"
)

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes run events and schedules to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one scheduling_run point per transition.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scheduling_run").
		AddTag("run_id", ev.RunID).
		AddTag("state", ev.State)
	if ev.Status != "" {
		p = p.AddTag("status", ev.Status)
	}
	if ev.Method != "" {
		p = p.AddTag("method", ev.Method)
	}
	p = p.AddField("cohorts", ev.Cohorts).
		AddField("horizon", ev.Horizon).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond)))
	if ev.Terminal() && ev.Err == "" {
		p = p.AddField("objective", round3(ev.Objective))
	}
	if ev.Err != "" {
		p = p.AddField("error", ev.Err)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

// RecordSchedule writes one cohort_schedule point per cohort and hour and
// one hourly_price point per hour. ev.Time marks hour zero; the points are
// stamped one hour apart from there.
func (s *InfluxSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	sch := ev.Schedule
	if sch == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := ev.Time.Truncate(time.Hour)
	demand := sch.Demand()
	points := make([]*write.Point, 0, sch.Horizon*(len(sch.Cohorts)+1))
	for h := 0; h < sch.Horizon; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		hour := strconv.Itoa(h)
		for _, c := range sch.Cohorts {
			points = append(points, write.NewPointWithMeasurement("cohort_schedule").
				AddTag("run_id", sch.RunID).
				AddTag("cohort", c.Name).
				AddTag("hour", hour).
				AddField("rate_kw", round3(c.Rate[h])).
				AddField("storage_kwh", round3(c.Storage[h])).
				SetTime(ts))
		}
		points = append(points, write.NewPointWithMeasurement("hourly_price").
			AddTag("run_id", sch.RunID).
			AddTag("hour", hour).
			AddField("price", round3(sch.Prices[h])).
			AddField("demand_kw", round3(demand[h])).
			SetTime(ts))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Flush closes the client.
func (s *InfluxSink) Flush(context.Context) error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
