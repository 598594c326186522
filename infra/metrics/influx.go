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

	coremetrics "github.com/kilianp07/cpm/core/metrics"
	"github.com/kilianp07/cpm/infra/logger"
)

// InfluxSink writes scheduling runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
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

// RecordScheduleRun writes the run as a schedule_run point.
func (s *InfluxSink) RecordScheduleRun(r coremetrics.ScheduleRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_run").
		AddTag("project_id", r.ProjectID).
		AddTag("converged", strconv.FormatBool(r.Converged)).
		AddTag("component", "scheduler").
		AddField("run_id", r.RunID).
		AddField("activities", r.Activities).
		AddField("critical", r.Critical).
		AddField("iterations", r.Iterations).
		AddField("skipped", r.Skipped).
		AddField("finish_unix", r.ProjectFinish.Unix()).
		AddField("duration_ms", round3(float64(r.Duration.Microseconds())/1000)).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScheduleFailure writes a failed run.
func (s *InfluxSink) RecordScheduleFailure(f coremetrics.ScheduleFailure) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_failure").
		AddTag("project_id", f.ProjectID).
		AddTag("stage", f.Stage).
		AddTag("component", "scheduler").
		AddField("run_id", f.RunID).
		AddField("error", f.Error).
		AddField("duration_ms", round3(float64(f.Duration.Microseconds())/1000)).
		SetTime(f.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScheduleBatch writes a batch summary.
func (s *InfluxSink) RecordScheduleBatch(b coremetrics.ScheduleBatch) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_batch").
		AddTag("component", "scheduler").
		AddField("projects", b.Projects).
		AddField("succeeded", b.Succeeded).
		AddField("failed", b.Failed).
		AddField("duration_ms", round3(float64(b.Duration.Microseconds())/1000)).
		SetTime(b.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
