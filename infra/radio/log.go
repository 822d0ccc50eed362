package radio

import (
	"sync"

	"github.com/kilianp07/rcbase/core/model"
	coreradio "github.com/kilianp07/rcbase/core/radio"
	"github.com/kilianp07/rcbase/infra/logger"
)

// LogRadio writes every packet to the log instead of the air.
type LogRadio struct {
	mu     sync.Mutex
	log    logger.Logger
	pipe   model.Address
	open   bool
	closed bool
	sent   int
}

// NewLogRadio returns a dry run radio.
func NewLogRadio(s coreradio.Settings) *LogRadio {
	l := logger.New("radio-log")
	l.Infof("log radio ready: channel=%#x rate=%s pa=%s", s.Channel, s.DataRate, s.PALevel)
	return &LogRadio{log: l}
}

func (r *LogRadio) OpenWritingPipe(addr model.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return coreradio.ErrClosed
	}
	r.pipe = addr
	r.open = true
	return nil
}

func (r *LogRadio) Write(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return coreradio.ErrClosed
	}
	if !r.open {
		return errNoPipe
	}
	r.sent++
	r.log.Debugw("tx", map[string]any{"address": r.pipe.String(), "payload": payload})
	return nil
}

// Sent returns the number of packets written.
func (r *LogRadio) Sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

func (r *LogRadio) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
