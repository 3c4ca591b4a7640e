package factory

import (
	"strings"
	"testing"
	"time"
)

type backend struct {
	Dir     string
	Timeout time.Duration
}

type backendConf struct {
	Dir     string        `json:"dir"`
	Timeout time.Duration `json:"timeout"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*backend]()
	if err := reg.Register("csv", func(conf map[string]any) (*backend, error) {
		var c backendConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &backend{Dir: c.Dir, Timeout: c.Timeout}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "csv", Conf: map[string]any{"dir": "data", "timeout": "5s"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Dir != "data" || inst.Timeout != 5*time.Second {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

func TestRegistry_NilConf(t *testing.T) {
	reg := NewRegistry[int]()
	_ = reg.Register("memory", func(conf map[string]any) (int, error) {
		if conf == nil {
			t.Fatal("conf should never be nil")
		}
		return len(conf), nil
	})
	if _, err := reg.Create(ModuleConfig{Type: "memory"}); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("sqlite", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("sqlite", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	_, err := reg.Create(ModuleConfig{Type: "sheets"})
	if err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Fatalf("expected unknown type error listing known types, got %v", err)
	}
}
