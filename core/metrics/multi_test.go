package metrics

import "testing"

// TestMultiSink ensures events are forwarded to all sinks.

type recordSink struct {
	count int
}

func (r *recordSink) RecordTransmit(TransmitEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordPedal(PedalEvent) error {
	r.count++
	return nil
}

type transmitOnly struct{ count int }

func (r *transmitOnly) RecordTransmit(TransmitEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordTransmit(TransmitEvent{}); err != nil {
		t.Fatalf("record transmit: %v", err)
	}
	if err := m.RecordPedal(PedalEvent{}); err != nil {
		t.Fatalf("record pedal: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkSkipsUnsupportedRecorders(t *testing.T) {
	s := &transmitOnly{}
	m := NewMultiSink(s)
	if err := m.RecordCommand(CommandEvent{}); err != nil {
		t.Fatalf("record command: %v", err)
	}
	if err := m.RecordSession(SessionEvent{}); err != nil {
		t.Fatalf("record session: %v", err)
	}
	if s.count != 0 {
		t.Fatalf("unexpected forward to transmit-only sink")
	}
}

func TestAsRecorders(t *testing.T) {
	only := &transmitOnly{}
	if _, ok := AsPedalRecorder(only).(NopSink); !ok {
		t.Fatalf("expected nop pedal recorder")
	}
	rec := &recordSink{}
	if AsPedalRecorder(rec) != PedalRecorder(rec) {
		t.Fatalf("expected sink itself")
	}
	if _, ok := AsCommandRecorder(NewMultiSink(only)).(*MultiSink); !ok {
		t.Fatalf("multi sink implements every recorder")
	}
	if _, ok := AsSessionRecorder(only).(NopSink); !ok {
		t.Fatalf("expected nop session recorder")
	}
}
