package metrics_test

import (
	"encoding/json"
	"testing"

	metrics "github.com/kilianp07/rcbase/core/metrics"
	_ "github.com/kilianp07/rcbase/infra/metrics"
)

// Test decoding from JSON with multiple sinks.
func TestMetricsConfigDecodeJSON(t *testing.T) {
	data := `{"prometheus_addr":":9100","sinks":[{"type":"nop"},{"type":"nop"}]}`
	var cfg metrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if cfg.PrometheusAddr != ":9100" {
		t.Fatalf("unexpected addr %q", cfg.PrometheusAddr)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(*metrics.MultiSink); !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
}
