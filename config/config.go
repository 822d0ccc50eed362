package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rcbase/core/control"
	"github.com/kilianp07/rcbase/core/factory"
	"github.com/kilianp07/rcbase/core/fleet"
	"github.com/kilianp07/rcbase/core/metrics"
	"github.com/kilianp07/rcbase/core/pedal"
	"github.com/kilianp07/rcbase/infra/mqtt"
	"github.com/kilianp07/rcbase/infra/radio"
	"github.com/kilianp07/rcbase/infra/ws"
)

type Config struct {
	Fleet   fleet.Config         `json:"fleet"`
	Radio   radio.Config         `json:"radio"`
	Sensor  factory.ModuleConfig `json:"sensor"`
	Pedal   pedal.Config         `json:"pedal"`
	Control control.Config       `json:"control"`
	Session ws.Config            `json:"session"`
	MQTT    mqtt.Config          `json:"mqtt"`
	Metrics metrics.Config       `json:"metrics"`
	Logging LoggingConfig        `json:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := seed()
	if err := cfg.finish(); err != nil {
		panic(err)
	}
	return &cfg
}

// seed holds the sections whose zero values are legal settings, so a file
// only overrides what it names.
func seed() Config {
	return Config{Pedal: pedal.DefaultConfig(), Radio: radio.DefaultConfig()}
}

// Load reads a YAML or JSON file, applies K_ prefixed environment overrides
// (K_PEDAL__ROW_OFFSET=2 sets pedal.row_offset), fills defaults and
// validates every section. An empty path loads the defaults and environment
// only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := seed()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	c.Fleet.SetDefaults()
	c.Radio.SetDefaults()
	c.Pedal.SetDefaults()
	c.Control.SetDefaults()
	c.Session.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	c.Logging.SetDefaults()
	if err := c.Fleet.Validate(); err != nil {
		return fmt.Errorf("fleet: %w", err)
	}
	if err := c.Radio.Validate(); err != nil {
		return err
	}
	if err := c.Pedal.Validate(); err != nil {
		return fmt.Errorf("pedal: %w", err)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
