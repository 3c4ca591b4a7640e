package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dronecoord/core/metrics"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/infra/logger"
)

// InfluxSink writes assignment and conflict events to an InfluxDB instance
// using the official client.
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

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// RecordAssignment writes one assignment_attempt point.
func (s *InfluxSink) RecordAssignment(res coremetrics.AssignmentResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("assignment_attempt").
		AddTag("mission_id", res.MissionID).
		AddTag("action", res.Action).
		AddTag("outcome", res.Outcome).
		AddTag("component", "assignment_engine")
	if res.Reason != "" {
		p = p.AddTag("reason", res.Reason)
	}
	p = p.AddField("pilot_id", res.PilotID).
		AddField("drone_id", res.DroneID).
		AddField("duration_ms", round3(res.Duration.Seconds()*1000)).
		SetTime(res.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRollback writes one assignment_rollback point.
func (s *InfluxSink) RecordRollback(ev coremetrics.RollbackEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("assignment_rollback").
		AddTag("mission_id", ev.MissionID).
		AddTag("pilot_id", ev.PilotID).
		AddTag("drone_id", ev.DroneID).
		AddField("succeeded", ev.Succeeded).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordConflictScan writes one point per conflict kind plus a total.
func (s *InfluxSink) RecordConflictScan(scan coremetrics.ConflictScan) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("conflict_scan").
		AddTag("component", "conflict_engine").
		AddField("total", scan.Total).
		AddField("duration_ms", round3(scan.Duration.Seconds()*1000)).
		SetTime(scan.Time)
	kinds := make([]string, 0, len(scan.Counts))
	for kind := range scan.Counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		p = p.AddField(k, scan.Counts[model.ConflictKind(k)])
	}
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
