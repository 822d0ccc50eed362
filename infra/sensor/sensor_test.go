package sensor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcbase/core/factory"
	"github.com/kilianp07/rcbase/core/pedal"
	coresensor "github.com/kilianp07/rcbase/core/sensor"
)

func TestSim_CalibratesThenRenders(t *testing.T) {
	ctx := context.Background()
	s := NewSim(SimConfig{Rows: 10, Cols: 4, CalibrationTriggers: 2, PeriodMS: 1000, MaxDepth: 0.6})
	base := time.Unix(0, 0)
	s.start = base
	s.now = func() time.Time { return base.Add(500 * time.Millisecond) }

	require.NoError(t, s.Calibrate(ctx))
	assert.Equal(t, coresensor.StatusCalibrating, s.Status())
	require.NoError(t, s.Trigger(ctx))
	_, err := s.Image()
	assert.ErrorIs(t, err, coresensor.ErrNotReady)
	require.NoError(t, s.Trigger(ctx))
	assert.Equal(t, coresensor.StatusReady, s.Status())

	img, err := s.Image()
	require.NoError(t, err)
	require.Len(t, img, 10)
	// half period is the deepest point: 6 of 10 rows covered
	r := pedal.NewEstimator(pedal.Config{Threshold: 25, RowOffset: 0, Scale: 1}).Estimate(img)
	assert.Equal(t, 6, r.MinRow)
}

func TestCalibrationStateIsPerSensor(t *testing.T) {
	ctx := context.Background()
	a := NewSim(SimConfig{CalibrationTriggers: 1})
	b := NewSim(SimConfig{CalibrationTriggers: 1})
	require.NotSame(t, a.calibration, b.calibration)

	require.NoError(t, a.Calibrate(ctx))
	require.NoError(t, a.Trigger(ctx))
	assert.Equal(t, coresensor.StatusReady, a.Status())
	assert.Equal(t, coresensor.StatusCalibrating, b.Status())

	r, err := NewReplay([]coresensor.Image{{{1}}}, true, 0)
	require.NoError(t, err)
	require.NoError(t, r.Calibrate(ctx))
	assert.Equal(t, coresensor.StatusReady, r.Status())
	assert.Equal(t, coresensor.StatusCalibrating, b.Status())
}

func TestSim_TriangleWave(t *testing.T) {
	s := NewSim(SimConfig{Rows: 40, PeriodMS: 4000, MaxDepth: 0.5})
	assert.Equal(t, 0, s.darkRows(0))
	assert.Equal(t, 10, s.darkRows(time.Second))
	assert.Equal(t, 20, s.darkRows(2*time.Second))
	assert.Equal(t, 10, s.darkRows(3*time.Second))
	assert.Equal(t, 0, s.darkRows(4*time.Second))
}

func TestSim_ClosedAndCanceled(t *testing.T) {
	s := NewSim(SimConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Trigger(ctx))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Trigger(context.Background()), coresensor.ErrNotReady)
}

func writeRecording(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	data := ""
	for _, l := range lines {
		data += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestReplay_PlaysOnceThenFails(t *testing.T) {
	ctx := context.Background()
	path := writeRecording(t, "[[1,1],[90,90]]", "", "[[90,90],[90,90]]")
	r, err := OpenReplay(ReplayConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, r.Calibrate(ctx))
	assert.Equal(t, coresensor.StatusReady, r.Status())

	require.NoError(t, r.Trigger(ctx))
	img, err := r.Image()
	require.NoError(t, err)
	assert.Equal(t, coresensor.Image{{1, 1}, {90, 90}}, img)

	require.NoError(t, r.Trigger(ctx))
	img, err = r.Image()
	require.NoError(t, err)
	assert.Equal(t, 90.0, img[0][0])

	require.NoError(t, r.Trigger(ctx))
	assert.Equal(t, coresensor.StatusError, r.Status())
	_, err = r.Image()
	assert.ErrorIs(t, err, coresensor.ErrNotReady)
}

func TestReplay_Loops(t *testing.T) {
	ctx := context.Background()
	r, err := NewReplay([]coresensor.Image{{{1}}, {{2}}}, true, 1)
	require.NoError(t, err)
	require.NoError(t, r.Calibrate(ctx))
	require.NoError(t, r.Trigger(ctx)) // calibration
	var got []float64
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Trigger(ctx))
		img, err := r.Image()
		require.NoError(t, err)
		got = append(got, img[0][0])
	}
	assert.Equal(t, []float64{1, 2, 1}, got)
}

func TestReplay_Errors(t *testing.T) {
	_, err := OpenReplay(ReplayConfig{})
	assert.Error(t, err)
	_, err = OpenReplay(ReplayConfig{Path: writeRecording(t, "not json")})
	assert.ErrorContains(t, err, "line 1")
	_, err = OpenReplay(ReplayConfig{Path: writeRecording(t)})
	assert.ErrorContains(t, err, "no frames")
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"replay", "sim"}, Types())
	s, err := New(factory.ModuleConfig{Conf: map[string]any{"rows": "12"}})
	require.NoError(t, err)
	sim, ok := s.(*Sim)
	require.True(t, ok)
	assert.Equal(t, 12, sim.cfg.Rows)

	_, err = New(factory.ModuleConfig{Type: "walabot"})
	assert.Error(t, err)
}
