package gear

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/kilianp07/rcbase/core/model"
)

var allGears = []model.Gear{model.GearNeutral, model.GearReverse, model.GearCoast, model.GearDrive}

// Machine tracks the selected gear. Any gear can be reached from any other;
// shifting into the current gear is a no-op.
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine returns a machine starting in neutral.
func NewMachine() *Machine {
	src := make([]string, len(allGears))
	for i, g := range allGears {
		src[i] = g.String()
	}
	events := make(fsm.Events, 0, len(allGears))
	for _, g := range allGears {
		events = append(events, fsm.EventDesc{Name: g.String(), Src: src, Dst: g.String()})
	}
	return &Machine{fsm: fsm.NewFSM(model.GearNeutral.String(), events, fsm.Callbacks{})}
}

// Shift moves the machine into gear g.
func (m *Machine) Shift(ctx context.Context, g model.Gear) error {
	err := m.fsm.Event(ctx, g.String())
	if err == nil {
		return nil
	}
	var same fsm.NoTransitionError
	if errors.As(err, &same) {
		return nil
	}
	return fmt.Errorf("shift to %s: %w", g, err)
}

// Current returns the selected gear.
func (m *Machine) Current() model.Gear {
	cur := m.fsm.Current()
	for _, g := range allGears {
		if g.String() == cur {
			return g
		}
	}
	return model.GearNeutral
}
