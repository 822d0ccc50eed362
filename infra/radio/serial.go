package radio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/kilianp07/rcbase/core/model"
	coreradio "github.com/kilianp07/rcbase/core/radio"
	"github.com/kilianp07/rcbase/infra/logger"
)

var (
	errNoPipe = errors.New("radio: no writing pipe open")
	// ErrNoAck is returned when the bridge reports the packet was not acknowledged.
	ErrNoAck = errors.New("radio: packet not acknowledged")
)

// SerialConfig configures a microcontroller that drives the nRF24 module and
// speaks a line protocol over a serial port.
type SerialConfig struct {
	Port          string             `json:"port"`
	Baud          int                `json:"baud"`
	ReadTimeoutMS int                `json:"read_timeout_ms"`
	Settings      coreradio.Settings `json:"settings"`
}

// SerialRadio talks to the bridge with one request line and one reply line
// per operation:
//
//	S <payload> <channel> <rate> <pa> <autoack>   configure the transceiver
//	P <address hex>                               open the writing pipe
//	W <payload hex>                               write and flush
//
// Replies are "ok", "nack" (write only) or "err <reason>".
type SerialRadio struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	in     *bufio.Reader
	out    *bufio.Writer
	log    logger.Logger
	open   bool
	closed bool
}

// OpenSerial opens the port and configures the transceiver.
func OpenSerial(cfg SerialConfig) (*SerialRadio, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial radio: port required")
	}
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeoutMS == 0 {
		cfg.ReadTimeoutMS = 500
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("serial radio: open %s: %w", cfg.Port, err)
	}
	r, err := NewSerialRadio(port, cfg.Settings)
	if err != nil {
		port.Close()
		return nil, err
	}
	return r, nil
}

// NewSerialRadio configures a bridge reachable through port.
func NewSerialRadio(port io.ReadWriteCloser, s coreradio.Settings) (*SerialRadio, error) {
	r := &SerialRadio{
		port: port,
		in:   bufio.NewReader(port),
		out:  bufio.NewWriter(port),
		log:  logger.New("radio-serial"),
	}
	ack := 0
	if s.AutoAck {
		ack = 1
	}
	if err := r.exchange(fmt.Sprintf("S %d %d %s %s %d", s.PayloadSize, s.Channel, s.DataRate, s.PALevel, ack)); err != nil {
		return nil, fmt.Errorf("serial radio: configure: %w", err)
	}
	r.log.Infof("bridge configured: channel=%#x rate=%s pa=%s", s.Channel, s.DataRate, s.PALevel)
	return r, nil
}

func (r *SerialRadio) OpenWritingPipe(addr model.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return coreradio.ErrClosed
	}
	if err := r.exchange("P " + addr.String()); err != nil {
		return fmt.Errorf("open pipe %s: %w", addr, err)
	}
	r.open = true
	return nil
}

func (r *SerialRadio) Write(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return coreradio.ErrClosed
	}
	if !r.open {
		return errNoPipe
	}
	return r.exchange(fmt.Sprintf("W %x", payload))
}

// exchange sends one request line and parses the reply.
func (r *SerialRadio) exchange(req string) error {
	if _, err := fmt.Fprintln(r.out, req); err != nil {
		return err
	}
	if err := r.out.Flush(); err != nil {
		return err
	}
	line, err := r.in.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	reply := strings.TrimSpace(line)
	switch {
	case reply == "ok":
		return nil
	case reply == "nack":
		return ErrNoAck
	case strings.HasPrefix(reply, "err"):
		return fmt.Errorf("bridge: %s", strings.TrimSpace(strings.TrimPrefix(reply, "err")))
	default:
		return fmt.Errorf("bridge: unexpected reply %q", reply)
	}
}

func (r *SerialRadio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.port.Close()
}
