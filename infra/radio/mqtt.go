package radio

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kilianp07/rcbase/core/model"
	coreradio "github.com/kilianp07/rcbase/core/radio"
	"github.com/kilianp07/rcbase/infra/mqtt"
)

// MQTTConfig bridges the radio over a broker: packets are published to
// <prefix>/vehicle/<address>/control and the settings are retained on
// <prefix>/radio/settings for the gateway.
type MQTTConfig struct {
	mqtt.Config `json:",squash"`
	Settings    coreradio.Settings `json:"settings"`
}

// Publisher is the publishing side of an MQTT connection.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTRadio publishes packets instead of transmitting them.
type MQTTRadio struct {
	mu     sync.Mutex
	pub    Publisher
	cfg    mqtt.Config
	topic  string
	closer func()
	closed bool
}

// DialMQTT connects to the broker and announces the settings.
func DialMQTT(cfg MQTTConfig) (*MQTTRadio, error) {
	cfg.Config.SetDefaults()
	cli, err := mqtt.NewPahoClient(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("mqtt radio: %w", err)
	}
	r, err := NewMQTTRadio(cli, cfg.Config, cfg.Settings)
	if err != nil {
		cli.Disconnect()
		return nil, err
	}
	r.closer = cli.Disconnect
	return r, nil
}

// NewMQTTRadio publishes through pub. cfg supplies the topic prefix and QoS.
func NewMQTTRadio(pub Publisher, cfg mqtt.Config, s coreradio.Settings) (*MQTTRadio, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if err := pub.Publish(cfg.Topic("radio", "settings"), 1, true, raw); err != nil {
		return nil, fmt.Errorf("mqtt radio: publish settings: %w", err)
	}
	return &MQTTRadio{pub: pub, cfg: cfg}, nil
}

// ControlTopic is where packets for addr are published.
func ControlTopic(cfg mqtt.Config, addr model.Address) string {
	return cfg.Topic("vehicle", addr.String(), "control")
}

func (r *MQTTRadio) OpenWritingPipe(addr model.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return coreradio.ErrClosed
	}
	r.topic = ControlTopic(r.cfg, addr)
	return nil
}

func (r *MQTTRadio) Write(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return coreradio.ErrClosed
	}
	if r.topic == "" {
		return errNoPipe
	}
	qos := byte(0)
	if q, ok := r.cfg.QoS["control"]; ok {
		qos = q
	}
	return r.pub.Publish(r.topic, qos, false, append([]byte(nil), payload...))
}

func (r *MQTTRadio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		r.closer()
	}
	return nil
}
