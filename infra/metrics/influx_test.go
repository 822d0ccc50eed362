package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/model"
)

type captureServer struct {
	mu     sync.Mutex
	bodies []string
}

func (c *captureServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, strings.TrimSpace(string(data)))
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *captureServer) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...)
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordTransmit(t *testing.T) {
	cs := &captureServer{}
	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	addr, err := model.ParseAddress("e0e0e0e0f2")
	require.NoError(t, err)

	require.NoError(t, sink.RecordTransmit(coremetrics.TransmitEvent{
		Vehicle: "car-1",
		Address: addr,
		Packet:  model.Packet{10, 148, 1},
		Source:  coremetrics.SourcePedal,
		Time:    now,
	}))
	p := write.NewPointWithMeasurement("radio_transmit").
		AddTag("vehicle", "car-1").
		AddTag("address", "e0e0e0e0f2").
		AddTag("source", "pedal").
		AddTag("ok", "true").
		AddField("steering", int64(10)).
		AddField("throttle", int64(148)).
		AddField("reverse", true).
		SetTime(now)
	assert.Equal(t, []string{lineProtocol(p)}, cs.all())
}

func TestInfluxSink_RecordTransmitError(t *testing.T) {
	cs := &captureServer{}
	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	require.NoError(t, sink.RecordTransmit(coremetrics.TransmitEvent{
		Vehicle: "car-2",
		Source:  coremetrics.SourceCommand,
		Err:     errors.New("no ack"),
		Time:    time.Now(),
	}))
	bodies := cs.all()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "ok=false")
	assert.Contains(t, bodies[0], `error="no ack"`)
}

func TestInfluxSink_RecordPedal(t *testing.T) {
	cs := &captureServer{}
	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	require.NoError(t, sink.RecordPedal(coremetrics.PedalEvent{
		Pedal:   0.58,
		MinRow:  5,
		Rows:    10,
		Gear:    model.GearDrive,
		Applied: true,
		Latency: 2 * time.Millisecond,
		Time:    now,
	}))
	p := write.NewPointWithMeasurement("pedal_sample").
		AddTag("gear", "drive").
		AddTag("applied", "true").
		AddField("pedal", 0.58).
		AddField("min_row", int64(5)).
		AddField("rows", int64(10)).
		AddField("latency_ms", 2.0).
		SetTime(now)
	assert.Equal(t, []string{lineProtocol(p)}, cs.all())
}

func TestInfluxSink_RecordCommandAndSession(t *testing.T) {
	cs := &captureServer{}
	srv := httptest.NewServer(cs.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	require.NoError(t, sink.RecordCommand(coremetrics.CommandEvent{
		Origin: "10.0.0.2", Opcode: "set_gear", Accepted: false, Reason: "not_owner", Time: now,
	}))
	require.NoError(t, sink.RecordSession(coremetrics.SessionEvent{Origin: "10.0.0.2", Claimed: true, Time: now}))

	cmd := write.NewPointWithMeasurement("command").
		AddTag("origin", "10.0.0.2").
		AddTag("opcode", "set_gear").
		AddTag("accepted", "false").
		AddField("reason", "not_owner").
		SetTime(now)
	sess := write.NewPointWithMeasurement("session").
		AddTag("origin", "10.0.0.2").
		AddField("claimed", true).
		SetTime(now)
	assert.Equal(t, []string{lineProtocol(cmd), lineProtocol(sess)}, cs.all())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, ok := sink.(*InfluxSink)
	assert.False(t, ok, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
