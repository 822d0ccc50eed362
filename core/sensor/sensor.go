// Package sensor defines the ranging sensor used as a foot pedal.
package sensor

import (
	"context"
	"errors"
)

// Status reports the acquisition state of the sensor.
type Status int

const (
	StatusCalibrating Status = iota
	StatusReady
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusCalibrating:
		return "calibrating"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrNotReady is returned when an image is requested before calibration ended.
var ErrNotReady = errors.New("sensor not ready")

// Image is a raw intensity slice. Rows are ordered by increasing distance
// from the sensor.
type Image [][]float64

// Sensor is consumed through a calibrate, trigger, read protocol.
type Sensor interface {
	// Calibrate starts background calibration. Status reports calibrating
	// until enough triggers have been processed.
	Calibrate(ctx context.Context) error
	// Trigger performs one acquisition.
	Trigger(ctx context.Context) error
	Status() Status
	// Image returns the raw image of the last acquisition.
	Image() (Image, error)
	Close() error
}
