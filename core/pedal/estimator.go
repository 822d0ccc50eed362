// Package pedal turns a ranging sensor image into a normalized pedal value.
package pedal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/rcbase/core/sensor"
)

// Config holds the calibration constants of the pedal.
type Config struct {
	// Threshold is the mean row intensity under which a row counts as free.
	Threshold float64 `json:"threshold"`
	// RowOffset is the dead zone, in rows, subtracted from the scan result.
	RowOffset float64 `json:"row_offset"`
	// Scale stretches the normalized distance onto the pedal travel.
	Scale float64 `json:"scale"`
}

// DefaultConfig returns the constants tuned on the reference deployment.
// A zero RowOffset is a valid setting, so configuration loading starts from
// these values instead of patching zero fields.
func DefaultConfig() Config {
	return Config{Threshold: 25, RowOffset: 3, Scale: 2.1}
}

// SetDefaults fills the fields that cannot legitimately be zero.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	if c.Scale == 0 {
		c.Scale = d.Scale
	}
}

// Validate checks the constants are usable.
func (c Config) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("pedal threshold must be positive")
	}
	if c.Scale <= 0 {
		return fmt.Errorf("pedal scale must be positive")
	}
	if c.RowOffset < 0 {
		return fmt.Errorf("pedal row_offset must not be negative")
	}
	return nil
}

// Reading is the result of one estimation.
type Reading struct {
	Pedal  float64
	MinRow int
	Rows   int
}

// Byte returns the pedal scaled onto 0..255.
func (r Reading) Byte() byte {
	return byte(math.Round(clamp(r.Pedal, 0, 1) * 255))
}

// Estimator scans rows from the sensor outwards and converts the number of
// leading rows below the threshold into a pedal value in [0,1].
type Estimator struct {
	cfg Config
}

// NewEstimator returns an estimator using cfg.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate computes
//
//	pedal = clamp(1 - ((minRow - RowOffset) / rows) * Scale, 0, 1)
//
// An image without rows yields 0.
func (e *Estimator) Estimate(img sensor.Image) Reading {
	rows := len(img)
	if rows == 0 {
		return Reading{}
	}
	minRow := 0
	for _, row := range img {
		if len(row) == 0 || stat.Mean(row, nil) >= e.cfg.Threshold {
			break
		}
		minRow++
	}
	p := 1 - ((float64(minRow)-e.cfg.RowOffset)/float64(rows))*e.cfg.Scale
	return Reading{Pedal: clamp(p, 0, 1), MinRow: minRow, Rows: rows}
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Min(math.Max(x, lo), hi)
}
