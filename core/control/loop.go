// Package control runs the sensor driven pedal loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/rcbase/core/logger"
	"github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/model"
	"github.com/kilianp07/rcbase/core/pedal"
	"github.com/kilianp07/rcbase/core/sensor"
)

// ErrSensorFault is returned when the sensor reports the error status.
var ErrSensorFault = errors.New("sensor fault")

// Config defines the loop cadence.
type Config struct {
	IntervalMS                int `json:"interval_ms"`
	CalibrationTimeoutSeconds int `json:"calibration_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.IntervalMS == 0 {
		c.IntervalMS = 20
	}
	if c.CalibrationTimeoutSeconds == 0 {
		c.CalibrationTimeoutSeconds = 30
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("control interval_ms must be positive")
	}
	if c.CalibrationTimeoutSeconds <= 0 {
		return fmt.Errorf("control calibration_timeout_seconds must be positive")
	}
	return nil
}

// Interval returns the cycle period.
func (c Config) Interval() time.Duration { return time.Duration(c.IntervalMS) * time.Millisecond }

// PedalUpdate is relayed to the session owner after the pedal drove a vehicle.
type PedalUpdate struct {
	Value byte
	Pedal float64
	Gear  model.Gear
	Time  time.Time
}

// Publisher delivers pedal updates to the client transports.
type Publisher interface {
	Publish(PedalUpdate)
}

// Pedals is the part of the fleet controller driven by the pedal.
type Pedals interface {
	ApplyPedal(ctx context.Context, pedal float64) (model.Gear, bool)
}

// Loop polls the sensor at a fixed cadence, independent of command traffic.
type Loop struct {
	sensor sensor.Sensor
	est    *pedal.Estimator
	fleet  Pedals
	pub    Publisher
	cfg    Config
	log    logger.Logger
	rec    metrics.PedalRecorder

	faulted bool
}

// NewLoop creates a Loop. A nil recorder disables pedal metrics.
func NewLoop(s sensor.Sensor, est *pedal.Estimator, f Pedals, pub Publisher, cfg Config, log logger.Logger, rec metrics.PedalRecorder) *Loop {
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Loop{sensor: s, est: est, fleet: f, pub: pub, cfg: cfg, log: log, rec: rec}
}

// Calibrate starts sensor calibration and triggers acquisitions until the
// sensor leaves the calibrating status or the timeout expires.
func (l *Loop) Calibrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(l.cfg.CalibrationTimeoutSeconds)*time.Second)
	defer cancel()
	if err := l.sensor.Calibrate(ctx); err != nil {
		return fmt.Errorf("start calibration: %w", err)
	}
	l.log.Infof("calibrating sensor")
	for l.sensor.Status() == sensor.StatusCalibrating {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
		if err := l.sensor.Trigger(ctx); err != nil {
			return fmt.Errorf("calibration trigger: %w", err)
		}
	}
	if l.sensor.Status() == sensor.StatusError {
		return fmt.Errorf("calibration: %w", ErrSensorFault)
	}
	l.log.Infof("sensor calibrated")
	return nil
}

// Run executes Cycle on every tick until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Interval())
	defer ticker.Stop()
	l.log.Infof("control loop started, interval %s", l.cfg.Interval())
	for {
		select {
		case <-ctx.Done():
			l.log.Infof("control loop stopped")
			return nil
		case <-ticker.C:
			l.Cycle(ctx)
		}
	}
}

// Cycle runs one trigger, estimate, apply step. Acquisition failures yield a
// zero pedal.
func (l *Loop) Cycle(ctx context.Context) pedal.Reading {
	start := time.Now()
	img, err := l.acquire(ctx)
	if err != nil {
		if !l.faulted {
			l.log.Warnf("sensor acquisition failed, pedal released: %v", err)
		}
		l.faulted = true
		img = nil
	} else if l.faulted {
		l.log.Infof("sensor acquisition recovered")
		l.faulted = false
	}
	reading := l.est.Estimate(img)
	g, applied := l.fleet.ApplyPedal(ctx, reading.Pedal)
	if applied {
		l.pub.Publish(PedalUpdate{Value: reading.Byte(), Pedal: reading.Pedal, Gear: g, Time: time.Now()})
	}
	if rerr := l.rec.RecordPedal(metrics.PedalEvent{
		Pedal:   reading.Pedal,
		MinRow:  reading.MinRow,
		Rows:    reading.Rows,
		Gear:    g,
		Applied: applied,
		Latency: time.Since(start),
		Time:    start,
	}); rerr != nil {
		l.log.Errorf("record pedal: %v", rerr)
	}
	return reading
}

func (l *Loop) acquire(ctx context.Context) (sensor.Image, error) {
	if err := l.sensor.Trigger(ctx); err != nil {
		return nil, err
	}
	switch l.sensor.Status() {
	case sensor.StatusError:
		return nil, ErrSensorFault
	case sensor.StatusCalibrating:
		return nil, sensor.ErrNotReady
	}
	return l.sensor.Image()
}
