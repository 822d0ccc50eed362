package sensor

import (
	"context"
	"math"
	"sync"
	"time"

	coresensor "github.com/kilianp07/rcbase/core/sensor"
)

// SimConfig shapes the synthetic images.
type SimConfig struct {
	Rows                int     `json:"rows"`
	Cols                int     `json:"cols"`
	CalibrationTriggers int     `json:"calibration_triggers"`
	PeriodMS            int     `json:"period_ms"`
	Dark                float64 `json:"dark"`
	Bright              float64 `json:"bright"`
	// MaxDepth is the largest fraction of rows covered by the foot.
	MaxDepth float64 `json:"max_depth"`
}

func (c *SimConfig) setDefaults() {
	if c.Rows <= 0 {
		c.Rows = 40
	}
	if c.Cols <= 0 {
		c.Cols = 10
	}
	if c.PeriodMS <= 0 {
		c.PeriodMS = 4000
	}
	if c.Bright == 0 {
		c.Bright = 80
	}
	if c.Dark == 0 {
		c.Dark = 5
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 0.5
	}
}

// Sim pretends a foot moves slowly up and down over the sensor: the number
// of dark leading rows follows a triangle wave.
type Sim struct {
	*calibration
	cfg   SimConfig
	start time.Time
	now   func() time.Time

	mu     sync.Mutex
	img    coresensor.Image
	closed bool
}

// NewSim returns a simulated sensor.
func NewSim(cfg SimConfig) *Sim {
	cfg.setDefaults()
	return &Sim{calibration: newCalibration(cfg.CalibrationTriggers), cfg: cfg, start: time.Now(), now: time.Now}
}

// Trigger renders a new image for the current instant.
func (s *Sim) Trigger(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return coresensor.ErrNotReady
	}
	s.step()
	s.img = s.render(s.darkRows(s.now().Sub(s.start)))
	return nil
}

// darkRows maps elapsed time onto a triangle wave in [0, MaxDepth*Rows].
func (s *Sim) darkRows(elapsed time.Duration) int {
	period := time.Duration(s.cfg.PeriodMS) * time.Millisecond
	phase := float64(elapsed%period) / float64(period)
	tri := 1 - math.Abs(2*phase-1)
	return int(math.Round(tri * s.cfg.MaxDepth * float64(s.cfg.Rows)))
}

func (s *Sim) render(dark int) coresensor.Image {
	img := make(coresensor.Image, s.cfg.Rows)
	for r := range img {
		v := s.cfg.Bright
		if r < dark {
			v = s.cfg.Dark
		}
		row := make([]float64, s.cfg.Cols)
		for c := range row {
			row[c] = v
		}
		img[r] = row
	}
	return img
}

// Image returns the last rendered image.
func (s *Sim) Image() (coresensor.Image, error) {
	if s.Status() != coresensor.StatusReady {
		return nil, coresensor.ErrNotReady
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return nil, coresensor.ErrNotReady
	}
	return s.img, nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
