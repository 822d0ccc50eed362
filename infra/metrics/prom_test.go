package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/model"
)

func TestPromSink_RecordTransmit(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	addr, _ := model.ParseAddress("e0e0e0e0f2")
	require.NoError(t, sink.RecordTransmit(coremetrics.TransmitEvent{Address: addr, Source: coremetrics.SourcePedal}))
	require.NoError(t, sink.RecordTransmit(coremetrics.TransmitEvent{Address: addr, Source: coremetrics.SourceCommand, Err: errors.New("x")}))

	expected := `
# HELP rcbase_radio_transmits_total Packets written to the radio
# TYPE rcbase_radio_transmits_total counter
rcbase_radio_transmits_total{result="error",source="command",vehicle="e0e0e0e0f2"} 1
rcbase_radio_transmits_total{result="ok",source="pedal",vehicle="e0e0e0e0f2"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.transmits, strings.NewReader(expected)))
}

func TestPromSink_RecordCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordCommand(coremetrics.CommandEvent{Opcode: "set_gear", Accepted: true}))
	require.NoError(t, sink.RecordCommand(coremetrics.CommandEvent{Opcode: "invalid", Reason: "malformed"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.commands.WithLabelValues("set_gear", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.commands.WithLabelValues("invalid", "malformed")))
}

func TestPromSink_RecordPedalAndSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordPedal(coremetrics.PedalEvent{Pedal: 0.58, MinRow: 5, Latency: 3 * time.Millisecond}))
	assert.Equal(t, 0.58, testutil.ToFloat64(sink.pedal))
	assert.Equal(t, 5.0, testutil.ToFloat64(sink.minRow))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.cycle))

	require.NoError(t, sink.RecordSession(coremetrics.SessionEvent{Claimed: true}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.owner))
	require.NoError(t, sink.RecordSession(coremetrics.SessionEvent{Claimed: false}))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.owner))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordCommand(coremetrics.CommandEvent{Opcode: "select_vehicle", Accepted: true}))
	require.NoError(t, second.RecordCommand(coremetrics.CommandEvent{Opcode: "select_vehicle", Accepted: true}))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.commands.WithLabelValues("select_vehicle", "accepted")))
}
