package model

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// AddressSize is the width in bytes of a radio endpoint address.
const AddressSize = 5

// PacketSize is the length of the control packet sent to a vehicle.
const PacketSize = 3

// Address identifies the radio endpoint of a vehicle.
type Address [AddressSize]byte

// ParseAddress decodes a hex encoded address such as "e0e0e0e0f2". Colons and
// an optional 0x prefix are accepted.
func ParseAddress(s string) (Address, error) {
	var a Address
	clean := strings.ReplaceAll(strings.TrimPrefix(strings.ToLower(s), "0x"), ":", "")
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf("parse address %q: expected %d bytes got %d", s, AddressSize, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the lowercase hex form of the address.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// Packet is the wire payload understood by a vehicle:
// steering, throttle magnitude and direction.
type Packet [PacketSize]byte

// State is a copy of the mutable part of a vehicle.
type State struct {
	Steering int
	Throttle float64 // commanded magnitude in [-1,1] before curve shaping
	Reverse  bool
}

// Vehicle is a fleet member addressed over the radio link. The address is
// fixed at construction; the rest is mutated by the command path and the
// control loop. Vehicle is not safe for concurrent use on its own.
type Vehicle struct {
	Name    string
	address Address
	state   State
}

// NewVehicle returns a stopped vehicle bound to addr.
func NewVehicle(name string, addr Address) *Vehicle {
	return &Vehicle{Name: name, address: addr}
}

// Address returns the radio endpoint of the vehicle.
func (v *Vehicle) Address() Address { return v.address }

// SetSteering stores the steering value as is. Range checks belong to callers.
func (v *Vehicle) SetSteering(value int) { v.state.Steering = value }

// SetThrottle stores the unshaped throttle magnitude.
func (v *Vehicle) SetThrottle(value float64) { v.state.Throttle = value }

// SetReverse sets the direction flag.
func (v *Vehicle) SetReverse(reverse bool) { v.state.Reverse = reverse }

// State returns a snapshot of the vehicle's mutable fields.
func (v *Vehicle) State() State { return v.state }

// Packet encodes the current state. Steering is truncated to its low byte and
// the throttle byte is abs(round(Shape(throttle)*255)), saturated at 255.
func (v *Vehicle) Packet() Packet {
	var p Packet
	p[0] = byte(v.state.Steering)
	p[1] = throttleByte(v.state.Throttle)
	if v.state.Reverse {
		p[2] = 1
	}
	return p
}

func throttleByte(throttle float64) byte {
	if math.IsNaN(throttle) {
		return 0
	}
	b := math.Abs(math.Round(Shape(throttle) * 255))
	if b > 255 {
		return 255
	}
	return byte(b)
}

// DecodePacket reads a packet received by a vehicle.
func DecodePacket(b []byte) (Packet, error) {
	var p Packet
	if len(b) != PacketSize {
		return p, fmt.Errorf("packet: expected %d bytes got %d", PacketSize, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// String renders the packet as steering, throttle and direction.
func (p Packet) String() string {
	dir := "fwd"
	if p[2] != 0 {
		dir = "rev"
	}
	return fmt.Sprintf("steering=%d throttle=%d %s", p[0], p[1], dir)
}
