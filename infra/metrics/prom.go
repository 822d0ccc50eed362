package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rcbase/core/metrics"
)

// PromSink records base station events in Prometheus metrics.
type PromSink struct {
	commands  *prometheus.CounterVec
	transmits *prometheus.CounterVec
	pedal     prometheus.Gauge
	minRow    prometheus.Gauge
	cycle     prometheus.Histogram
	owner     prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rcbase_commands_total",
		Help: "Command frames received from clients",
	}, []string{"opcode", "result"})
	transmits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rcbase_radio_transmits_total",
		Help: "Packets written to the radio",
	}, []string{"vehicle", "source", "result"})
	pedal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rcbase_pedal_value",
		Help: "Last pedal value in [0,1]",
	})
	minRow := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rcbase_pedal_min_row",
		Help: "Leading sensor rows below the detection threshold",
	})
	cycle := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rcbase_control_cycle_seconds",
		Help:    "Duration of one sensor trigger, estimate and apply cycle",
		Buckets: []float64{.001, .0025, .005, .01, .02, .05, .1, .25},
	})
	owner := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rcbase_session_owner",
		Help: "1 while a client owns the session",
	})

	var err error
	if commands, err = register(reg, commands); err != nil {
		return nil, err
	}
	if transmits, err = register(reg, transmits); err != nil {
		return nil, err
	}
	if pedal, err = register(reg, pedal); err != nil {
		return nil, err
	}
	if minRow, err = register(reg, minRow); err != nil {
		return nil, err
	}
	if cycle, err = register(reg, cycle); err != nil {
		return nil, err
	}
	if owner, err = register(reg, owner); err != nil {
		return nil, err
	}
	return &PromSink{commands: commands, transmits: transmits, pedal: pedal, minRow: minRow, cycle: cycle, owner: owner}, nil
}

// register reuses an already registered collector of the same type so that
// several sinks can coexist in one process.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTransmit counts a radio write.
func (s *PromSink) RecordTransmit(ev coremetrics.TransmitEvent) error {
	result := "ok"
	if ev.Err != nil {
		result = "error"
	}
	s.transmits.WithLabelValues(ev.Address.String(), ev.Source, result).Inc()
	return nil
}

// RecordCommand counts a command frame.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	result := "accepted"
	if !ev.Accepted {
		result = ev.Reason
	}
	s.commands.WithLabelValues(ev.Opcode, result).Inc()
	return nil
}

// RecordPedal updates the pedal gauges and the cycle histogram.
func (s *PromSink) RecordPedal(ev coremetrics.PedalEvent) error {
	s.pedal.Set(ev.Pedal)
	s.minRow.Set(float64(ev.MinRow))
	s.cycle.Observe(ev.Latency.Seconds())
	return nil
}

// RecordSession tracks whether the session is owned.
func (s *PromSink) RecordSession(ev coremetrics.SessionEvent) error {
	s.owner.Set(boolGauge(ev.Claimed))
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
