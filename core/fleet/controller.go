// Package fleet owns the selection state of the base station: which vehicle
// is addressed, which gear is engaged, and the radio used to reach them.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/rcbase/core/gear"
	"github.com/kilianp07/rcbase/core/logger"
	"github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/model"
	"github.com/kilianp07/rcbase/core/monitoring"
	"github.com/kilianp07/rcbase/core/radio"
)

// ErrUnknownVehicle is returned when a selection targets an index outside the fleet.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Controller serializes every mutation of the fleet and every radio
// transmission behind one mutex, so the packet written to an address is
// always built from that address' vehicle.
type Controller struct {
	mu       sync.Mutex
	vehicles []*model.Vehicle
	current  int
	gears    *gear.Machine
	radio    radio.Radio
	log      logger.Logger
	sink     metrics.MetricsSink
}

// NewController builds a controller over the given vehicles. The first
// vehicle is selected and the gear starts in neutral.
func NewController(vehicles []*model.Vehicle, r radio.Radio, log logger.Logger, sink metrics.MetricsSink) (*Controller, error) {
	if len(vehicles) == 0 {
		return nil, fmt.Errorf("fleet controller: no vehicles configured")
	}
	if r == nil {
		return nil, fmt.Errorf("fleet controller: radio is required")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Controller{vehicles: vehicles, gears: gear.NewMachine(), radio: r, log: log, sink: sink}, nil
}

// SelectVehicle addresses the vehicle at idx, snaps it to the current gear
// and transmits its packet.
func (c *Controller) SelectVehicle(ctx context.Context, idx int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 || idx >= len(c.vehicles) {
		return fmt.Errorf("select vehicle %d of %d: %w", idx, len(c.vehicles), ErrUnknownVehicle)
	}
	c.current = idx
	g := c.gears.Current()
	gear.Apply(c.vehicles[idx], g)
	c.log.Debugw("vehicle selected", map[string]any{"index": idx, "gear": g.String()})
	c.transmit(ctx, idx, metrics.SourceCommand)
	return nil
}

// SetGear engages g, applies it to the selected vehicle and transmits.
func (c *Controller) SetGear(ctx context.Context, g model.Gear) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.gears.Shift(ctx, g); err != nil {
		return err
	}
	gear.Apply(c.vehicles[c.current], g)
	c.log.Debugw("gear engaged", map[string]any{"index": c.current, "gear": g.String()})
	c.transmit(ctx, c.current, metrics.SourceCommand)
	return nil
}

// SetSteering updates the steering of the selected vehicle and transmits.
func (c *Controller) SetSteering(ctx context.Context, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vehicles[c.current].SetSteering(value)
	c.transmit(ctx, c.current, metrics.SourceCommand)
}

// ApplyPedal writes pedal into the selected vehicle's throttle when a driving
// gear is engaged and transmits. It reports whether the value was applied.
func (c *Controller) ApplyPedal(ctx context.Context, pedal float64) (model.Gear, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.gears.Current()
	if !g.Driving() {
		return g, false
	}
	c.vehicles[c.current].SetThrottle(pedal)
	c.transmit(ctx, c.current, metrics.SourcePedal)
	return g, true
}

// Gear returns the engaged gear.
func (c *Controller) Gear() model.Gear {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gears.Current()
}

// VehicleSnapshot is the observable state of one fleet member.
type VehicleSnapshot struct {
	Name    string
	Address model.Address
	State   model.State
	Packet  model.Packet
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Current  int
	Gear     model.Gear
	Vehicles []VehicleSnapshot
}

// Snapshot returns a copy of the selection state and of every vehicle.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Current: c.current, Gear: c.gears.Current(), Vehicles: make([]VehicleSnapshot, len(c.vehicles))}
	for i, v := range c.vehicles {
		s.Vehicles[i] = VehicleSnapshot{Name: v.Name, Address: v.Address(), State: v.State(), Packet: v.Packet()}
	}
	return s
}

// Len returns the fleet size.
func (c *Controller) Len() int { return len(c.vehicles) }

// transmit must be called with c.mu held. Failures are logged and recorded
// but never returned: the radio's auto-ack layer owns delivery.
func (c *Controller) transmit(ctx context.Context, idx int, source string) {
	v := c.vehicles[idx]
	pkt := v.Packet()
	addr := v.Address()
	err := ctx.Err()
	if err == nil {
		err = c.radio.OpenWritingPipe(addr)
	}
	if err == nil {
		err = c.radio.Write(pkt[:])
	}
	if err != nil {
		c.log.Warnf("transmit to %s (%s) failed: %v", v.Name, addr, err)
		monitoring.CaptureException(err, map[string]string{"module": "radio", "vehicle": addr.String(), "source": source})
	}
	if rerr := c.sink.RecordTransmit(metrics.TransmitEvent{
		VehicleIndex: idx,
		Vehicle:      v.Name,
		Address:      addr,
		Packet:       pkt,
		Source:       source,
		Err:          err,
		Time:         time.Now(),
	}); rerr != nil {
		c.log.Errorf("record transmit: %v", rerr)
	}
}
