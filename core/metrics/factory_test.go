package metrics_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilianp07/dronecoord/core/factory"
	metrics "github.com/kilianp07/dronecoord/core/metrics"
	_ "github.com/kilianp07/dronecoord/infra/metrics"
)

func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if s == nil {
		t.Fatal("expected sink instance")
	}
	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "missing"}})
	if err == nil || !strings.Contains(err.Error(), "metrics.sinks[1] missing") {
		t.Fatalf("expected indexed error for unknown type, got %v", err)
	}
}

func TestSinkTypes(t *testing.T) {
	got := strings.Join(metrics.SinkTypes(), ",")
	if got != "influx,nop,prometheus" {
		t.Fatalf("sink types = %s", got)
	}
}

func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	cfgs := []factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}}
	s, err = metrics.NewMetricsSink(cfgs)
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}

func TestMetricsConfigDecodeJSON(t *testing.T) {
	data := `{"sinks":[{"type":"nop"},{"type":"missing"}]}`
	var cfg metrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := metrics.NewMetricsSink(cfg.Sinks); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if err := (metrics.Config{Sinks: []factory.ModuleConfig{{}}}).Validate(); err == nil {
		t.Fatalf("expected error for empty type")
	}
}
