// Package infra contains the adapters behind the core interfaces: the
// radio and sensor backends, the WebSocket and MQTT client transports,
// zerolog logging and the metrics sinks. These packages depend on core,
// never the other way around.
package infra
