// Package generic implements a fallback device plugin that works with any
// class-compliant MIDI controller: every note and CC is exposed as a
// control, with no feedback and no device-specific behavior.
package generic

import (
	"context"
	"fmt"

	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/plugin"
)

// Plugin maps all 128 MIDI notes and all 128 CCs to controls, for devices
// with no dedicated plugin.
type Plugin struct {
	plugin.Base
}

var _ plugin.Plugin = (*Plugin)(nil)

// New constructs the plugin with its note/CC mapping tables populated.
func New() *Plugin {
	p := &Plugin{}
	p.Base = plugin.Base{
		InputMappings: buildInputMappings(),
	}
	return p
}

func (p *Plugin) Name() string { return "Generic MIDI Controller" }

func (p *Plugin) Capabilities() control.ControllerCapabilities {
	return control.ControllerCapabilities{IndexingScheme: control.Indexing1D}
}

func (p *Plugin) Init(context.Context, plugin.SendFunc, plugin.ReceiveFunc) (map[string]int, error) {
	return nil, nil
}

func (p *Plugin) GetControlDefinitions() []control.Definition {
	var defs []control.Definition
	for n := 0; n < 128; n++ {
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("note_%d", n),
			ControlType: control.Momentary,
			Category:    "note",
			Capabilities: control.Capabilities{
				RequiresDiscovery: true,
			},
			DisplayName: fmt.Sprintf("Note %d", n),
		})
	}
	for n := 0; n < 128; n++ {
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("cc_%d", n),
			ControlType: control.Continuous,
			Category:    "cc",
			Capabilities: control.Capabilities{
				RequiresDiscovery: true,
			},
			MinValue:    0,
			MaxValue:    127,
			DisplayName: fmt.Sprintf("CC %d", n),
		})
	}
	return defs
}

func (p *Plugin) GetInputMappings() []plugin.MIDIMapping { return p.InputMappings }

func buildInputMappings() []plugin.MIDIMapping {
	var m []plugin.MIDIMapping
	for n := 0; n < 128; n++ {
		note := uint8(n)
		id := fmt.Sprintf("note_%d", n)
		m = append(m,
			plugin.MIDIMapping{Type: plugin.TypeNoteOn, Note: &note, ControlID: id, SignalType: "note"},
			plugin.MIDIMapping{Type: plugin.TypeNoteOff, Note: &note, ControlID: id, SignalType: "note"},
		)
	}
	for n := 0; n < 128; n++ {
		cc := uint8(n)
		m = append(m, plugin.MIDIMapping{Type: plugin.TypeControlChange, Control: &cc, ControlID: fmt.Sprintf("cc_%d", n)})
	}
	return m
}
