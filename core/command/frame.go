// Package command decodes client command frames and routes them to the fleet.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Op identifies a command frame.
type Op int

const (
	OpSelectVehicle Op = 1
	OpSetGear       Op = 2
	OpSetSteering   Op = 3
)

// String returns a human-readable representation of the opcode.
func (o Op) String() string {
	switch o {
	case OpSelectVehicle:
		return "select_vehicle"
	case OpSetGear:
		return "set_gear"
	case OpSetSteering:
		return "set_steering"
	default:
		return "unknown"
	}
}

// Steering bounds accepted on the wire. The value is sent as the first byte
// of the vehicle packet.
const (
	MinSteering = 0
	MaxSteering = 255
)

var (
	ErrMalformedFrame = errors.New("malformed command frame")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrSteeringRange  = errors.New("steering out of range")
)

// Command is a decoded frame.
type Command struct {
	Op  Op
	Arg int
}

// ParseFrame validates a frame of exactly two integers [opcode, argument].
func ParseFrame(frame []int) (Command, error) {
	if len(frame) != 2 {
		return Command{}, fmt.Errorf("%w: expected 2 elements got %d", ErrMalformedFrame, len(frame))
	}
	cmd := Command{Op: Op(frame[0]), Arg: frame[1]}
	switch cmd.Op {
	case OpSelectVehicle, OpSetGear:
	case OpSetSteering:
		if cmd.Arg < MinSteering || cmd.Arg > MaxSteering {
			return Command{}, fmt.Errorf("%w: %d", ErrSteeringRange, cmd.Arg)
		}
	default:
		return Command{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, frame[0])
	}
	return cmd, nil
}

// DecodeBinary parses a raw frame where each byte is one element.
func DecodeBinary(b []byte) (Command, error) {
	frame := make([]int, len(b))
	for i, v := range b {
		frame[i] = int(v)
	}
	return ParseFrame(frame)
}

// DecodeJSON parses a JSON array of integers such as [2,3].
func DecodeJSON(b []byte) (Command, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw []json.Number
	if err := dec.Decode(&raw); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if dec.More() {
		return Command{}, fmt.Errorf("%w: trailing data", ErrMalformedFrame)
	}
	frame := make([]int, len(raw))
	for i, n := range raw {
		v, err := n.Int64()
		if err != nil {
			return Command{}, fmt.Errorf("%w: element %d is not an integer", ErrMalformedFrame, i)
		}
		frame[i] = int(v)
	}
	return ParseFrame(frame)
}

// DecodePayload accepts either encoding: payloads starting with '[' are JSON,
// anything else is a binary frame.
func DecodePayload(b []byte) (Command, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return DecodeJSON(trimmed)
	}
	return DecodeBinary(b)
}
