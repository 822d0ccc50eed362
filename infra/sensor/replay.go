package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	coresensor "github.com/kilianp07/rcbase/core/sensor"
)

// ReplayConfig points at a recording holding one JSON encoded image
// ([][]float64) per line.
type ReplayConfig struct {
	Path                string `json:"path"`
	Loop                bool   `json:"loop"`
	CalibrationTriggers int    `json:"calibration_triggers"`
}

// Replay serves recorded images in order, one per trigger. Without Loop the
// sensor reports an error after the last frame.
type Replay struct {
	*calibration
	loop bool

	mu     sync.Mutex
	frames []coresensor.Image
	next   int
	img    coresensor.Image
}

// OpenReplay loads the whole recording.
func OpenReplay(cfg ReplayConfig) (*Replay, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("replay sensor: path required")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("replay sensor: %w", err)
	}
	defer f.Close()
	var frames []coresensor.Image
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var img coresensor.Image
		if err := json.Unmarshal(sc.Bytes(), &img); err != nil {
			return nil, fmt.Errorf("replay sensor: line %d: %w", line, err)
		}
		frames = append(frames, img)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("replay sensor: %w", err)
	}
	return NewReplay(frames, cfg.Loop, cfg.CalibrationTriggers)
}

// NewReplay serves the given frames.
func NewReplay(frames []coresensor.Image, loop bool, calibrationTriggers int) (*Replay, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("replay sensor: no frames")
	}
	return &Replay{calibration: newCalibration(calibrationTriggers), loop: loop, frames: frames}, nil
}

func (r *Replay) Trigger(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.step() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.frames) {
		if !r.loop {
			r.img = nil
			r.fail()
			return nil
		}
		r.next = 0
	}
	r.img = r.frames[r.next]
	r.next++
	return nil
}

func (r *Replay) Image() (coresensor.Image, error) {
	if r.Status() != coresensor.StatusReady {
		return nil, coresensor.ErrNotReady
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.img == nil {
		return nil, coresensor.ErrNotReady
	}
	return r.img, nil
}

func (r *Replay) Close() error { return nil }
