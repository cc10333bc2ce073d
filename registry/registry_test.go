package registry

import (
	"context"
	"testing"

	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/plugin"
)

type fakePlugin struct {
	plugin.Base
	name     string
	patterns []string
}

func (f *fakePlugin) Name() string                          { return f.name }
func (f *fakePlugin) PortPatterns() []string                { return f.patterns }
func (f *fakePlugin) Capabilities() control.ControllerCapabilities { return control.ControllerCapabilities{} }
func (f *fakePlugin) Init(ctx context.Context, send plugin.SendFunc, receive plugin.ReceiveFunc) (map[string]int, error) {
	return nil, nil
}
func (f *fakePlugin) GetControlDefinitions() []control.Definition {
	return []control.Definition{{ControlID: "pad_1", ControlType: control.Toggle}}
}
func (f *fakePlugin) GetInputMappings() []plugin.MIDIMapping {
	return []plugin.MIDIMapping{{Type: plugin.TypeNoteOn, ControlID: "pad_1"}}
}

var _ plugin.Plugin = (*fakePlugin)(nil)

func newFake(name string, patterns ...string) plugin.Factory {
	return func() plugin.Plugin { return &fakePlugin{name: name, patterns: patterns} }
}

func TestRegisterAndGetPlugin(t *testing.T) {
	r := New()
	r.Register(newFake("Example Pad"))
	p := r.GetPlugin("Example Pad")
	if p == nil || p.Name() != "Example Pad" {
		t.Fatalf("expected to retrieve registered plugin")
	}
}

func TestGetPluginUnknown(t *testing.T) {
	r := New()
	if r.GetPlugin("nope") != nil {
		t.Fatalf("expected nil for unknown plugin")
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register(newFake("Example Pad"))
	r.Unregister("Example Pad")
	if r.GetPlugin("Example Pad") != nil {
		t.Fatalf("expected plugin to be gone after unregister")
	}
}

func TestListPlugins(t *testing.T) {
	r := New()
	r.Register(newFake("A"))
	r.Register(newFake("B"))
	names := r.ListPlugins()
	if len(names) != 2 {
		t.Fatalf("expected 2 plugins, got %v", names)
	}
}

func TestDetectByExplicitPortName(t *testing.T) {
	r := New()
	r.Register(newFake("Example Pad", "Example"))
	p := r.Detect("USB Example Pad Controller")
	if p == nil || p.Name() != "Example Pad" {
		t.Fatalf("expected detection to succeed")
	}
}

func TestValidatePluginAcceptsCompletePlugin(t *testing.T) {
	p := &fakePlugin{name: "X"}
	errs := ValidatePlugin(p)
	if len(errs) != 0 {
		t.Fatalf("expected no errors for a complete fake plugin, got %v", errs)
	}
}

func TestValidatePluginCatchesEmptyControls(t *testing.T) {
	p := &emptyPlugin{fakePlugin: fakePlugin{name: "Y"}}
	errs := ValidatePlugin(p)
	if len(errs) == 0 {
		t.Fatalf("expected validation errors for empty plugin")
	}
}

type emptyPlugin struct {
	fakePlugin
}

func (e *emptyPlugin) GetControlDefinitions() []control.Definition { return nil }
func (e *emptyPlugin) GetInputMappings() []plugin.MIDIMapping      { return nil }
