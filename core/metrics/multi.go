package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTransmit forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTransmit(ev TransmitEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransmit(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCommand forwards command events when supported by the sink.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			if err := rec.RecordCommand(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPedal forwards pedal samples when supported by the sink.
func (m *MultiSink) RecordPedal(ev PedalEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PedalRecorder); ok {
			if err := rec.RecordPedal(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSession forwards session events when supported by the sink.
func (m *MultiSink) RecordSession(ev SessionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SessionRecorder); ok {
			if err := rec.RecordSession(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
