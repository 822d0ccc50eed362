// Package sensor provides ranging sensor backends that need no hardware: a
// synthetic foot generator and a recorded image replay.
package sensor

import (
	"github.com/kilianp07/rcbase/core/factory"
	coresensor "github.com/kilianp07/rcbase/core/sensor"
)

var registry = factory.NewRegistry[coresensor.Sensor]()

// Register adds a sensor backend factory.
func Register(name string, f factory.Factory[coresensor.Sensor]) error {
	return registry.Register(name, f)
}

// Types lists the registered backends.
func Types() []string { return registry.Names() }

// New builds the configured sensor. An empty type selects "sim".
func New(cfg factory.ModuleConfig) (coresensor.Sensor, error) {
	if cfg.Type == "" {
		cfg.Type = "sim"
	}
	return registry.Create(cfg)
}

func init() {
	_ = Register("sim", func(conf map[string]any) (coresensor.Sensor, error) {
		var c SimConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSim(c), nil
	})
	_ = Register("replay", func(conf map[string]any) (coresensor.Sensor, error) {
		var c ReplayConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return OpenReplay(c)
	})
}
