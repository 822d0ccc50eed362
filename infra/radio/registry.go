// Package radio provides the transceiver backends selectable from the
// configuration: a serial nRF24 bridge, an MQTT bridge and a logging dry run.
package radio

import (
	"github.com/kilianp07/rcbase/core/factory"
	coreradio "github.com/kilianp07/rcbase/core/radio"
)

// Config selects a backend and carries the transceiver settings shared by
// every backend.
type Config struct {
	Type     string             `json:"type"`
	Conf     map[string]any     `json:"conf"`
	Settings coreradio.Settings `json:"settings"`
}

// DefaultConfig returns the logging radio with the stock transceiver
// settings. Channel 0 and auto-ack off are valid settings, so configuration
// loading starts from these values instead of patching zero fields.
func DefaultConfig() Config {
	return Config{Type: "log", Settings: coreradio.DefaultSettings()}
}

// SetDefaults fills the fields that cannot legitimately be zero.
func (c *Config) SetDefaults() {
	if c.Type == "" {
		c.Type = "log"
	}
	def := coreradio.DefaultSettings()
	if c.Settings.PayloadSize == 0 {
		c.Settings.PayloadSize = def.PayloadSize
	}
	if c.Settings.DataRate == "" {
		c.Settings.DataRate = def.DataRate
	}
	if c.Settings.PALevel == "" {
		c.Settings.PALevel = def.PALevel
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	return c.Settings.Validate()
}

var registry = factory.NewRegistry[coreradio.Radio]()

// Register adds a radio backend factory. Factories receive their own conf
// map with the shared settings under the "settings" key.
func Register(name string, f factory.Factory[coreradio.Radio]) error {
	return registry.Register(name, f)
}

// Types lists the registered backends.
func Types() []string { return registry.Names() }

// New builds the configured radio.
func New(cfg Config) (coreradio.Radio, error) {
	conf := make(map[string]any, len(cfg.Conf)+1)
	for k, v := range cfg.Conf {
		conf[k] = v
	}
	conf["settings"] = cfg.Settings
	return registry.Create(factory.ModuleConfig{Type: cfg.Type, Conf: conf})
}

func init() {
	_ = Register("log", func(conf map[string]any) (coreradio.Radio, error) {
		var c struct {
			Settings coreradio.Settings `json:"settings"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewLogRadio(c.Settings), nil
	})
	_ = Register("serial", func(conf map[string]any) (coreradio.Radio, error) {
		var c SerialConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return OpenSerial(c)
	})
	_ = Register("mqtt", func(conf map[string]any) (coreradio.Radio, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return DialMQTT(c)
	})
}
