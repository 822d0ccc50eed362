package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/rcbase/core/fleet"
	"github.com/kilianp07/rcbase/core/logger"
	"github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/model"
	"github.com/kilianp07/rcbase/core/session"
)

// ErrNotOwner is returned for frames coming from a client that does not own
// the session.
var ErrNotOwner = errors.New("origin does not own the session")

// Fleet is the part of the fleet controller driven by commands.
type Fleet interface {
	SelectVehicle(ctx context.Context, idx int) error
	SetGear(ctx context.Context, g model.Gear) error
	SetSteering(ctx context.Context, value int)
}

// Router checks session ownership, decodes frames and applies them to the
// fleet. Rejected frames never change state; the returned error only serves
// logging and tests.
type Router struct {
	fleet Fleet
	gate  *session.Gate
	log   logger.Logger
	rec   metrics.CommandRecorder
}

// NewRouter creates a Router. A nil recorder disables command metrics.
func NewRouter(f Fleet, gate *session.Gate, log logger.Logger, rec metrics.CommandRecorder) *Router {
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Router{fleet: f, gate: gate, log: log, rec: rec}
}

// Handle decodes payload and dispatches it on behalf of origin.
func (r *Router) Handle(ctx context.Context, origin string, payload []byte) error {
	if !r.gate.Allows(origin) {
		r.record(origin, "", ErrNotOwner)
		return ErrNotOwner
	}
	cmd, err := DecodePayload(payload)
	if err != nil {
		r.log.Debugw("dropping frame", map[string]any{"origin": origin, "error": err.Error(), "len": len(payload)})
		r.record(origin, "", err)
		return err
	}
	return r.Dispatch(ctx, origin, cmd)
}

// Dispatch applies an already decoded command on behalf of origin.
func (r *Router) Dispatch(ctx context.Context, origin string, cmd Command) error {
	if !r.gate.Allows(origin) {
		r.record(origin, cmd.Op.String(), ErrNotOwner)
		return ErrNotOwner
	}
	var err error
	switch cmd.Op {
	case OpSelectVehicle:
		err = r.fleet.SelectVehicle(ctx, cmd.Arg)
	case OpSetGear:
		err = r.fleet.SetGear(ctx, model.GearFromCode(cmd.Arg))
	case OpSetSteering:
		if cmd.Arg < MinSteering || cmd.Arg > MaxSteering {
			err = fmt.Errorf("%w: %d", ErrSteeringRange, cmd.Arg)
			break
		}
		r.fleet.SetSteering(ctx, cmd.Arg)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownOpcode, int(cmd.Op))
	}
	if err != nil {
		r.log.Debugw("command rejected", map[string]any{"origin": origin, "op": cmd.Op.String(), "arg": cmd.Arg, "error": err.Error()})
	}
	r.record(origin, cmd.Op.String(), err)
	return err
}

func (r *Router) record(origin, op string, err error) {
	ev := metrics.CommandEvent{Origin: origin, Opcode: op, Accepted: err == nil, Time: time.Now()}
	if ev.Opcode == "" {
		ev.Opcode = "invalid"
	}
	if err != nil {
		ev.Reason = reason(err)
	}
	if rerr := r.rec.RecordCommand(ev); rerr != nil {
		r.log.Errorf("record command: %v", rerr)
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed"
	case errors.Is(err, ErrUnknownOpcode):
		return "unknown_opcode"
	case errors.Is(err, ErrSteeringRange):
		return "steering_range"
	case errors.Is(err, fleet.ErrUnknownVehicle):
		return "unknown_vehicle"
	default:
		return "rejected"
	}
}
