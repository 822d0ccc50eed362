// Package monitoring forwards unexpected failures to an error reporter.
package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/rcbase/core/logger"
)

// Monitor receives errors that are not surfaced to callers, such as failed
// radio writes.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

// LogMonitor reports captured errors through a logger.
type LogMonitor struct {
	Log logger.Logger
}

func (m LogMonitor) CaptureException(err error, tags map[string]string) {
	fields := make(map[string]any, len(tags)+1)
	for k, v := range tags {
		fields[k] = v
	}
	fields["error"] = err.Error()
	m.Log.Debugw("captured exception", fields)
}

func (LogMonitor) Flush(time.Duration) {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op default.
func Init(m Monitor) {
	if m == nil {
		m = NopMonitor{}
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Recover captures a panic and re-panics. It must be deferred directly:
//
//	defer monitoring.Recover()
func Recover() {
	if r := recover(); r != nil {
		get().CaptureException(fmt.Errorf("panic: %v", r), map[string]string{"module": "panic"})
		get().Flush(2 * time.Second)
		panic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
