package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcbase/config"
	"github.com/kilianp07/rcbase/core/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Session.Addr = "127.0.0.1:0"
	cfg.Logging.Level = "error"
	return cfg
}

func TestServiceRunsUntilCanceled(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, svc.Run(ctx))
}

func TestServicePedalDrivesSelectedVehicle(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.True(t, svc.Gate.Claim("192.168.1.20"))
	require.NoError(t, svc.Router.Handle(ctx, "192.168.1.20", []byte{1, 1}))
	require.NoError(t, svc.Router.Handle(ctx, "192.168.1.20", []byte("[2, 3]")))
	assert.Equal(t, model.GearDrive, svc.Fleet.Gear())
	assert.Error(t, svc.Router.Handle(ctx, "192.168.1.21", []byte{2, 0}))

	snap := svc.Fleet.Snapshot()
	assert.Equal(t, 1, snap.Current)
	assert.Equal(t, model.GearDrive, snap.Gear)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewRejectsUnknownRadio(t *testing.T) {
	cfg := testConfig(t)
	cfg.Radio.Type = "missing"
	_, err := New(cfg)
	assert.ErrorContains(t, err, "radio")
}
