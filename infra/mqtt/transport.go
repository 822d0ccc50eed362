package mqtt

import (
	"context"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/rcbase/core/control"
	"github.com/kilianp07/rcbase/infra/logger"
)

// Client presence payloads on <prefix>/client/<id>/status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// OriginPrefix marks session origins that belong to MQTT clients.
const OriginPrefix = "mqtt:"

// Conn is the subset of PahoClient used by the transport.
type Conn interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler paho.MessageHandler) error
}

// Handler applies a raw command frame on behalf of an origin.
type Handler interface {
	Handle(ctx context.Context, origin string, payload []byte) error
}

// Sessions tracks which origin drives the fleet.
type Sessions interface {
	Claim(origin string) bool
	Release(origin string) bool
	Owner() (string, bool)
}

// Transport carries command frames and pedal feedback over MQTT. A client
// announces itself by publishing "online" to its status topic; its last will
// should publish "offline" so the session is released when it drops.
type Transport struct {
	conn     Conn
	cfg      Config
	handler  Handler
	sessions Sessions
	log      logger.Logger
}

// NewTransport creates a Transport. Call Start to subscribe.
func NewTransport(conn Conn, cfg Config, h Handler, s Sessions) *Transport {
	return &Transport{conn: conn, cfg: cfg, handler: h, sessions: s, log: logger.New("mqtt_transport")}
}

// Start subscribes to the client command and status topics. Frames are
// handled with ctx until it is canceled.
func (t *Transport) Start(ctx context.Context) error {
	cmdTopic := t.cfg.Topic("client", "+", "command")
	if err := t.conn.Subscribe(cmdTopic, t.cfg.qosFor("command"), func(_ paho.Client, msg paho.Message) {
		t.onCommand(ctx, msg)
	}); err != nil {
		return err
	}
	statusTopic := t.cfg.Topic("client", "+", "status")
	return t.conn.Subscribe(statusTopic, t.cfg.qosFor("status"), func(_ paho.Client, msg paho.Message) {
		t.onStatus(msg)
	})
}

func (t *Transport) onCommand(ctx context.Context, msg paho.Message) {
	if ctx.Err() != nil {
		return
	}
	id, ok := t.clientID(msg.Topic())
	if !ok {
		return
	}
	if err := t.handler.Handle(ctx, OriginPrefix+id, msg.Payload()); err != nil {
		t.log.Debugw("command rejected", map[string]any{"client": id, "error": err.Error()})
	}
}

func (t *Transport) onStatus(msg paho.Message) {
	id, ok := t.clientID(msg.Topic())
	if !ok {
		return
	}
	origin := OriginPrefix + id
	switch strings.TrimSpace(string(msg.Payload())) {
	case StatusOnline:
		if t.sessions.Claim(origin) {
			t.log.Infof("mqtt client %s owns the session", id)
		} else {
			t.log.Infof("mqtt client %s connected as observer", id)
		}
	case StatusOffline:
		if t.sessions.Release(origin) {
			t.log.Infof("mqtt client %s released the session", id)
		}
	}
}

// clientID extracts <id> from <prefix>/client/<id>/<kind>.
func (t *Transport) clientID(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.cfg.TopicPrefix+"/client/")
	if !ok {
		return "", false
	}
	id, _, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Relay publishes each pedal update as one byte to the owning MQTT client
// until ctx is done or updates is closed.
func (t *Transport) Relay(ctx context.Context, updates <-chan control.PedalUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			owner, held := t.sessions.Owner()
			if !held {
				continue
			}
			id, ours := strings.CutPrefix(owner, OriginPrefix)
			if !ours {
				continue
			}
			if err := t.conn.Publish(t.cfg.Topic("client", id, "pedal"), t.cfg.qosFor("pedal"), false, []byte{u.Value}); err != nil {
				t.log.Warnf("pedal publish to %s: %v", id, err)
			}
		}
	}
}
