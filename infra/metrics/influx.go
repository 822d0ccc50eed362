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

	coremetrics "github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/infra/logger"
)

// InfluxSink writes base station events to an InfluxDB instance using the official client.
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

// RecordTransmit writes one radio write as a radio_transmit point.
func (s *InfluxSink) RecordTransmit(ev coremetrics.TransmitEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("radio_transmit").
		AddTag("vehicle", ev.Vehicle).
		AddTag("address", ev.Address.String()).
		AddTag("source", ev.Source).
		AddTag("ok", strconv.FormatBool(ev.Err == nil)).
		AddField("steering", int64(ev.Packet[0])).
		AddField("throttle", int64(ev.Packet[1])).
		AddField("reverse", ev.Packet[2] == 1).
		SetTime(ev.Time)
	if ev.Err != nil {
		p = p.AddField("error", ev.Err.Error())
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPedal writes a pedal_sample point.
func (s *InfluxSink) RecordPedal(ev coremetrics.PedalEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pedal_sample").
		AddTag("gear", ev.Gear.String()).
		AddTag("applied", strconv.FormatBool(ev.Applied)).
		AddField("pedal", round3(ev.Pedal)).
		AddField("min_row", int64(ev.MinRow)).
		AddField("rows", int64(ev.Rows)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommand writes a command point.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("command").
		AddTag("origin", ev.Origin).
		AddTag("opcode", ev.Opcode).
		AddTag("accepted", strconv.FormatBool(ev.Accepted))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	} else {
		p = p.AddField("reason", "none")
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSession writes a session ownership change.
func (s *InfluxSink) RecordSession(ev coremetrics.SessionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("session").
		AddTag("origin", ev.Origin).
		AddField("claimed", ev.Claimed).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
