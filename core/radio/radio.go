// Package radio defines the half-duplex transceiver used to reach vehicles.
package radio

import (
	"errors"
	"fmt"

	"github.com/kilianp07/rcbase/core/model"
)

// ErrClosed is returned when a write is attempted on a closed radio.
var ErrClosed = errors.New("radio closed")

// Radio is a single transceiver able to address one vehicle at a time.
// OpenWritingPipe followed by Write forms one transmission; callers must not
// interleave those steps across goroutines.
type Radio interface {
	// OpenWritingPipe selects the endpoint the next Write is sent to.
	OpenWritingPipe(addr model.Address) error
	// Write sends the payload to the open pipe and flushes the TX buffer.
	Write(payload []byte) error
	Close() error
}

// Settings mirrors the transceiver parameters of the vehicles' receivers.
type Settings struct {
	PayloadSize int    `json:"payload_size"`
	Channel     int    `json:"channel"`
	DataRate    string `json:"data_rate"`
	PALevel     string `json:"pa_level"`
	AutoAck     bool   `json:"auto_ack"`
}

// DefaultSettings matches the firmware flashed on the cars.
func DefaultSettings() Settings {
	return Settings{PayloadSize: model.PacketSize, Channel: 0x60, DataRate: "1mbps", PALevel: "max", AutoAck: true}
}

// Validate checks the settings against the transceiver limits.
func (s Settings) Validate() error {
	if s.PayloadSize < 1 || s.PayloadSize > 32 {
		return fmt.Errorf("radio: payload_size %d out of [1,32]", s.PayloadSize)
	}
	if s.PayloadSize < model.PacketSize {
		return fmt.Errorf("radio: payload_size %d smaller than a packet", s.PayloadSize)
	}
	if s.Channel < 0 || s.Channel > 125 {
		return fmt.Errorf("radio: channel %d out of [0,125]", s.Channel)
	}
	switch s.DataRate {
	case "250kbps", "1mbps", "2mbps":
	default:
		return fmt.Errorf("radio: unknown data_rate %q", s.DataRate)
	}
	switch s.PALevel {
	case "min", "low", "high", "max":
	default:
		return fmt.Errorf("radio: unknown pa_level %q", s.PALevel)
	}
	return nil
}
