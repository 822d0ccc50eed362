package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `fleet:
  vehicles:
    - name: red
      address: "e0:e0:e0:e0:f2"
    - address: "0xe0e0e0e0f3"
radio:
  type: serial
  conf:
    port: /dev/ttyACM0
    baud: 57600
  settings:
    channel: 76
sensor:
  type: replay
  conf:
    path: frames.jsonl
pedal:
  threshold: 30
  row_offset: 0
control:
  interval_ms: 50
session:
  addr: ":9000"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "base"
metrics:
  prometheus_addr: ":2112"
  sinks:
    - type: "nop"
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Fleet.Vehicles, 2)
	assert.Equal(t, "red", cfg.Fleet.Vehicles[0].Name)
	assert.Equal(t, "car-2", cfg.Fleet.Vehicles[1].Name)
	assert.Equal(t, "serial", cfg.Radio.Type)
	assert.Equal(t, "/dev/ttyACM0", cfg.Radio.Conf["port"])
	assert.Equal(t, 76, cfg.Radio.Settings.Channel)
	assert.Equal(t, "1mbps", cfg.Radio.Settings.DataRate)
	assert.True(t, cfg.Radio.Settings.AutoAck)
	assert.Equal(t, "replay", cfg.Sensor.Type)
	assert.Equal(t, 30.0, cfg.Pedal.Threshold)
	assert.Equal(t, 0.0, cfg.Pedal.RowOffset)
	assert.Equal(t, 2.1, cfg.Pedal.Scale)
	assert.Equal(t, 50, cfg.Control.IntervalMS)
	assert.Equal(t, 30, cfg.Control.CalibrationTimeoutSeconds)
	assert.Equal(t, ":9000", cfg.Session.Addr)
	assert.Equal(t, "/", cfg.Session.Path)
	assert.Equal(t, "base", cfg.MQTT.ClientID)
	assert.Equal(t, "rcbase", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":2112", cfg.Metrics.PrometheusAddr)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "nop", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := writeFile(t, "config.json", `{"pedal": {"scale": 1.5}, "logging": {"level": "warn"}}`)
	t.Setenv("K_PEDAL__ROW_OFFSET", "5")
	t.Setenv("K_SESSION__PATH", "/control")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Pedal.Scale)
	assert.Equal(t, 5.0, cfg.Pedal.RowOffset)
	assert.Equal(t, "/control", cfg.Session.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "log", cfg.Radio.Type)
	assert.Equal(t, 3.0, cfg.Pedal.RowOffset)
	assert.Equal(t, 20, cfg.Control.IntervalMS)
	assert.False(t, cfg.MQTT.Enabled())
	require.Len(t, cfg.Fleet.Vehicles, 2)
	assert.Equal(t, "e0e0e0e0f2", cfg.Fleet.Vehicles[0].Address)
}

func TestRadioSettingsDefaults(t *testing.T) {
	def := Default().Radio.Settings
	assert.True(t, def.AutoAck)
	assert.Equal(t, 0x60, def.Channel)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Radio.Settings.AutoAck)

	cfg, err = Load(writeFile(t, "radio.yaml", "radio:\n  settings:\n    channel: 0\n    auto_ack: false\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Radio.Settings.Channel)
	assert.False(t, cfg.Radio.Settings.AutoAck)
	assert.Equal(t, 3, cfg.Radio.Settings.PayloadSize)
	assert.Equal(t, "max", cfg.Radio.Settings.PALevel)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported")

	_, err = Load(writeFile(t, "bad.yaml", "fleet:\n  vehicles:\n    - address: zz\n"))
	assert.ErrorContains(t, err, "fleet")

	_, err = Load(writeFile(t, "dup.yaml", "fleet:\n  vehicles:\n    - address: e0e0e0e0f2\n    - address: e0e0e0e0f2\n"))
	assert.ErrorContains(t, err, "already used")

	_, err = Load(writeFile(t, "radio.yaml", "radio:\n  settings:\n    data_rate: fast\n"))
	assert.ErrorContains(t, err, "data_rate")

	_, err = Load(writeFile(t, "log.yaml", "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "level")
}
