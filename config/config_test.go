package config

import (
	"errors"
	"testing"

	"github.com/padgrid/padgrid/control"
)

func TestResolveFlatExactMatch(t *testing.T) {
	cfg := &ControllerConfig{
		Controls: map[string]ControlConfig{
			"pad_1": {Type: control.Momentary, Color: "red"},
		},
	}
	r := NewResolver(cfg)
	def := control.Definition{
		ControlID:   "pad_1",
		ControlType: control.Toggle,
		TypeModes: &control.TypeModes{
			SupportedTypes: []control.Type{control.Toggle, control.Momentary},
			DefaultType:    control.Toggle,
		},
	}
	res, err := r.Resolve("pad_1", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != control.Momentary || res.OnColor != "red" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveWildcard(t *testing.T) {
	cfg := &ControllerConfig{
		Controls: map[string]ControlConfig{
			"pad_*": {Type: control.Momentary},
		},
	}
	r := NewResolver(cfg)
	def := control.Definition{
		ControlID:   "pad_7",
		ControlType: control.Momentary,
	}
	res, err := r.Resolve("pad_7", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != control.Momentary {
		t.Fatalf("expected wildcard resolution")
	}
}

func TestResolveBankExactMatch(t *testing.T) {
	cfg := &ControllerConfig{
		Banks: map[string]BankConfig{
			"bank_1": {Controls: map[string]ControlConfig{"pad_1": {Type: control.Toggle}}},
		},
	}
	r := NewResolver(cfg)
	def := control.Definition{ControlID: "pad_1", ControlType: control.Toggle}
	res, err := r.Resolve("pad_1@bank_1", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != control.Toggle {
		t.Fatalf("expected bank exact match")
	}
}

func TestResolveDefaultsToPluginType(t *testing.T) {
	r := NewResolver(nil)
	def := control.Definition{ControlID: "pad_1", ControlType: control.Continuous}
	res, err := r.Resolve("pad_1", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != control.Continuous {
		t.Fatalf("expected plugin default type")
	}
}

func TestResolveMatchedEntryWithUnsetTypeKeepsDefinitionDefault(t *testing.T) {
	cfg := &ControllerConfig{
		Controls: map[string]ControlConfig{
			"pad_1": {Color: "red"},
		},
	}
	r := NewResolver(cfg)
	def := control.Definition{
		ControlID:   "pad_1",
		ControlType: control.Toggle,
		TypeModes: &control.TypeModes{
			SupportedTypes: []control.Type{control.Toggle, control.Momentary},
			DefaultType:    control.Momentary,
		},
	}
	res, err := r.Resolve("pad_1", def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Type != control.Momentary || res.OnColor != "red" {
		t.Fatalf("expected color-only override to fall back to the definition's default type, got %+v", res)
	}
}

func TestResolveRejectsUnsupportedType(t *testing.T) {
	cfg := &ControllerConfig{
		Controls: map[string]ControlConfig{
			"pad_1": {Type: control.Continuous},
		},
	}
	r := NewResolver(cfg)
	def := control.Definition{ControlID: "pad_1", ControlType: control.Toggle}
	_, err := r.Resolve("pad_1", def)
	var capErr *control.CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
}

func TestControllerConfigValidateExclusiveModes(t *testing.T) {
	cfg := &ControllerConfig{Banks: map[string]BankConfig{}, Controls: map[string]ControlConfig{}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for both banks and controls set")
	}
}

func TestControllerConfigValidateRequiresOneMode(t *testing.T) {
	cfg := &ControllerConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when neither mode set")
	}
}
