package sensor

import (
	"context"
	"sync"

	coresensor "github.com/kilianp07/rcbase/core/sensor"
)

// calibration reports calibrating for a fixed number of triggers after
// Calibrate, then ready.
type calibration struct {
	mu        sync.Mutex
	status    coresensor.Status
	remaining int
	triggers  int
}

func newCalibration(triggers int) *calibration {
	return &calibration{status: coresensor.StatusCalibrating, triggers: triggers}
}

func (c *calibration) Calibrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == coresensor.StatusError {
		return coresensor.ErrNotReady
	}
	c.remaining = c.triggers
	c.status = coresensor.StatusCalibrating
	if c.remaining == 0 {
		c.status = coresensor.StatusReady
	}
	return nil
}

// step consumes one trigger and reports whether the sensor was ready before it.
func (c *calibration) step() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != coresensor.StatusCalibrating {
		return c.status == coresensor.StatusReady
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.status = coresensor.StatusReady
	}
	return false
}

func (c *calibration) fail() {
	c.mu.Lock()
	c.status = coresensor.StatusError
	c.mu.Unlock()
}

func (c *calibration) Status() coresensor.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
