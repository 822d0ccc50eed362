package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcbase/core/fleet"
	"github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/model"
	"github.com/kilianp07/rcbase/core/session"
	"github.com/kilianp07/rcbase/infra/logger"
)

type countingRadio struct {
	mu     sync.Mutex
	writes int
}

func (r *countingRadio) OpenWritingPipe(model.Address) error { return nil }
func (r *countingRadio) Write([]byte) error {
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
	return nil
}
func (r *countingRadio) Close() error { return nil }

type commandRec struct {
	events []metrics.CommandEvent
}

func (c *commandRec) RecordCommand(ev metrics.CommandEvent) error {
	c.events = append(c.events, ev)
	return nil
}

const owner = "192.168.1.20"

func setup(t *testing.T) (*Router, *fleet.Controller, *countingRadio, *commandRec) {
	t.Helper()
	r := &countingRadio{}
	vehicles := []*model.Vehicle{
		model.NewVehicle("a", model.Address{1, 1, 1, 1, 1}),
		model.NewVehicle("b", model.Address{2, 2, 2, 2, 2}),
		model.NewVehicle("c", model.Address{3, 3, 3, 3, 3}),
	}
	ctrl, err := fleet.NewController(vehicles, r, logger.NopLogger{}, nil)
	require.NoError(t, err)
	gate := session.NewGate(nil)
	require.True(t, gate.Claim(owner))
	rec := &commandRec{}
	return NewRouter(ctrl, gate, logger.NopLogger{}, rec), ctrl, r, rec
}

func TestRouterGearReappliedOnSelection(t *testing.T) {
	router, ctrl, _, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, router.Handle(ctx, owner, []byte{1, 0}))
	require.NoError(t, router.Handle(ctx, owner, []byte{2, 1}))
	require.NoError(t, router.Handle(ctx, owner, []byte{1, 2}))

	snap := ctrl.Snapshot()
	assert.Equal(t, 2, snap.Current)
	assert.True(t, snap.Vehicles[2].State.Reverse)
}

func TestRouterSteering(t *testing.T) {
	router, ctrl, radio, rec := setup(t)
	ctx := context.Background()
	require.NoError(t, router.Handle(ctx, owner, []byte(`[3,140]`)))
	assert.Equal(t, 140, ctrl.Snapshot().Vehicles[0].State.Steering)
	assert.Equal(t, 1, radio.writes)
	require.Len(t, rec.events, 1)
	assert.True(t, rec.events[0].Accepted)
	assert.Equal(t, "set_steering", rec.events[0].Opcode)
}

func TestRouterMalformedFrameLeavesStateUnchanged(t *testing.T) {
	router, ctrl, radio, rec := setup(t)
	ctx := context.Background()
	require.NoError(t, router.Handle(ctx, owner, []byte{3, 50}))
	before := ctrl.Snapshot()
	writes := radio.writes

	err := router.Handle(ctx, owner, []byte{3, 99, 1})
	assert.ErrorIs(t, err, ErrMalformedFrame)
	err = router.Handle(ctx, owner, []byte{7, 1})
	assert.ErrorIs(t, err, ErrUnknownOpcode)

	assert.Equal(t, before, ctrl.Snapshot())
	assert.Equal(t, writes, radio.writes)
	assert.Equal(t, "malformed", rec.events[1].Reason)
	assert.Equal(t, "unknown_opcode", rec.events[2].Reason)
}

func TestRouterUnknownVehicleIgnored(t *testing.T) {
	router, ctrl, _, rec := setup(t)
	ctx := context.Background()
	err := router.Handle(ctx, owner, []byte{1, 7})
	assert.ErrorIs(t, err, fleet.ErrUnknownVehicle)
	assert.Equal(t, 0, ctrl.Snapshot().Current)
	assert.Equal(t, "unknown_vehicle", rec.events[0].Reason)
}

func TestRouterDropsNonOwnerFrames(t *testing.T) {
	router, ctrl, radio, rec := setup(t)
	ctx := context.Background()
	err := router.Handle(ctx, "192.168.1.99", []byte{2, 3})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, model.GearNeutral, ctrl.Gear())
	assert.Equal(t, 0, radio.writes)
	assert.Equal(t, "not_owner", rec.events[0].Reason)
}

func TestRouterDispatchRechecksSteering(t *testing.T) {
	router, ctrl, _, _ := setup(t)
	err := router.Dispatch(context.Background(), owner, Command{Op: OpSetSteering, Arg: 900})
	assert.ErrorIs(t, err, ErrSteeringRange)
	assert.Equal(t, 0, ctrl.Snapshot().Vehicles[0].State.Steering)
}
