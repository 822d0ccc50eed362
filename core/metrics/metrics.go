package metrics

import (
	"time"

	"github.com/kilianp07/rcbase/core/model"
)

// Transmit sources.
const (
	SourceCommand = "command"
	SourcePedal   = "pedal"
)

// TransmitEvent describes one packet written to the radio.
type TransmitEvent struct {
	VehicleIndex int
	Vehicle      string
	Address      model.Address
	Packet       model.Packet
	Source       string
	Err          error
	Time         time.Time
}

// MetricsSink records radio transmissions. Sinks may implement the optional
// recorder interfaces below for the other event kinds.
type MetricsSink interface {
	RecordTransmit(ev TransmitEvent) error
}

// CommandEvent captures the outcome of one inbound command frame.
type CommandEvent struct {
	Origin   string
	Opcode   string
	Accepted bool
	Reason   string
	Time     time.Time
}

// CommandRecorder records command handling.
type CommandRecorder interface {
	RecordCommand(ev CommandEvent) error
}

// PedalEvent is one control loop cycle.
type PedalEvent struct {
	Pedal   float64
	MinRow  int
	Rows    int
	Gear    model.Gear
	Applied bool
	Latency time.Duration
	Time    time.Time
}

// PedalRecorder records pedal samples.
type PedalRecorder interface {
	RecordPedal(ev PedalEvent) error
}

// SessionEvent records a change of session ownership.
type SessionEvent struct {
	Origin  string
	Claimed bool
	Time    time.Time
}

// SessionRecorder records session ownership changes.
type SessionRecorder interface {
	RecordSession(ev SessionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTransmit(TransmitEvent) error { return nil }
func (NopSink) RecordCommand(CommandEvent) error   { return nil }
func (NopSink) RecordPedal(PedalEvent) error       { return nil }
func (NopSink) RecordSession(SessionEvent) error   { return nil }

// AsCommandRecorder returns s as a CommandRecorder, or a no-op recorder.
func AsCommandRecorder(s MetricsSink) CommandRecorder {
	if r, ok := s.(CommandRecorder); ok {
		return r
	}
	return NopSink{}
}

// AsPedalRecorder returns s as a PedalRecorder, or a no-op recorder.
func AsPedalRecorder(s MetricsSink) PedalRecorder {
	if r, ok := s.(PedalRecorder); ok {
		return r
	}
	return NopSink{}
}

// AsSessionRecorder returns s as a SessionRecorder, or a no-op recorder.
func AsSessionRecorder(s MetricsSink) SessionRecorder {
	if r, ok := s.(SessionRecorder); ok {
		return r
	}
	return NopSink{}
}
