// Package nativepad implements a device plugin for a 4x4 RGB pad grid
// controller that must be switched into a software-LED "native" mode before
// it accepts LED commands, and whose rotary encoders report relative deltas
// rather than absolute positions.
package nativepad

import (
	"context"
	"fmt"

	"github.com/padgrid/padgrid/color"
	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/internal/logx"
	"github.com/padgrid/padgrid/plugin"
)

var log = logx.Get("plugins/nativepad")

const (
	PadCount     = 16
	EncoderCount = 4

	modeChannel = 15
	modeNote    = 0
	modeMIDI    = 0
	modeNative  = 127

	padChannel   = 0
	padStartNote = 36

	ledUnlit   = 0
	ledBlink   = 1
	ledBreathe = 2
	ledSolid   = 127

	redChannel   = 1
	greenChannel = 2
	blueChannel  = 3

	encoderChannel = 0
	encoderStartCC = 14
)

// transportButtons is a small supplemented subset of the device's function
// buttons, enough to exercise momentary controls with single-color LED
// feedback alongside the RGB pads and relative encoders.
var transportButtons = []struct {
	id string
	cc uint8
}{
	{"click", 105},
	{"record", 107},
	{"play", 109},
	{"stop", 111},
}

// Plugin drives a 4x4 RGB pad grid with relative encoders.
type Plugin struct {
	plugin.Base

	encoderPositions map[string]int
}

var _ plugin.Plugin = (*Plugin)(nil)

// New constructs the plugin with its static mapping tables populated.
func New() *Plugin {
	p := &Plugin{encoderPositions: map[string]int{}}
	p.Base = plugin.Base{
		InputMappings: buildInputMappings(),
	}
	return p
}

func (p *Plugin) Name() string { return "Native RGB Pad Controller" }

func (p *Plugin) Capabilities() control.ControllerCapabilities {
	return control.ControllerCapabilities{
		IndexingScheme: control.Indexing2D,
		GridRows:       4,
		GridCols:       4,
	}
}

func (p *Plugin) GetControlDefinitions() []control.Definition {
	var defs []control.Definition

	for i := 1; i <= PadCount; i++ {
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("pad_%d", i),
			ControlType: control.Toggle,
			Category:    "pad",
			TypeModes: &control.TypeModes{
				SupportedTypes: []control.Type{control.Toggle, control.Momentary},
				DefaultType:    control.Toggle,
			},
			Capabilities: control.Capabilities{
				SupportsFeedback:  true,
				RequiresFeedback:  true,
				SupportsLED:       true,
				SupportsColor:     true,
				ColorMode:         control.ColorModeRGB,
				SupportedLEDModes: []control.LEDMode{{Animation: control.Solid}, {Animation: control.Pulse}, {Animation: control.Blink}},
			},
			DisplayName: fmt.Sprintf("Pad %d", i),
		})
	}

	for i := 1; i <= EncoderCount; i++ {
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("encoder_%d", i),
			ControlType: control.Continuous,
			Category:    "encoder",
			Capabilities: control.Capabilities{
				RequiresDiscovery: true,
			},
			MinValue:    0,
			MaxValue:    127,
			DisplayName: fmt.Sprintf("Encoder %d", i),
		})
	}

	for _, b := range transportButtons {
		defs = append(defs, control.Definition{
			ControlID:   b.id,
			ControlType: control.Momentary,
			Category:    "transport",
			Capabilities: control.Capabilities{
				SupportsFeedback: true,
				RequiresFeedback: true,
				SupportsLED:      true,
			},
			DisplayName: titleCase(b.id),
		})
	}

	return defs
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-32) + s[1:]
}

func buildInputMappings() []plugin.MIDIMapping {
	var m []plugin.MIDIMapping
	ch := uint8(padChannel)

	for i := 1; i <= PadCount; i++ {
		note := uint8(padStartNote + i - 1)
		id := fmt.Sprintf("pad_%d", i)
		m = append(m,
			plugin.MIDIMapping{Type: plugin.TypeNoteOn, Channel: &ch, Note: &note, ControlID: id, SignalType: "note"},
			plugin.MIDIMapping{Type: plugin.TypeNoteOff, Channel: &ch, Note: &note, ControlID: id, SignalType: "note"},
		)
	}

	encCh := uint8(encoderChannel)
	for i := 1; i <= EncoderCount; i++ {
		cc := uint8(encoderStartCC + i - 1)
		m = append(m, plugin.MIDIMapping{Type: plugin.TypeControlChange, Channel: &encCh, Control: &cc, ControlID: fmt.Sprintf("encoder_%d", i), SignalType: "relative"})
	}

	for _, b := range transportButtons {
		cc := b.cc
		m = append(m, plugin.MIDIMapping{Type: plugin.TypeControlChange, Channel: &ch, Control: &cc, ControlID: b.id})
	}

	return m
}

func (p *Plugin) GetInputMappings() []plugin.MIDIMapping { return p.InputMappings }

// ComputeControlState accumulates raw encoder CC deltas into an absolute
// 0-127 position. translateInput already converted the relative 1-63/65-127
// encoding into a signed delta, so the remaining work is clamping the
// running total.
func (p *Plugin) ComputeControlState(controlID string, value int, current control.State) plugin.Decision {
	if !isEncoder(controlID) {
		return plugin.DefaultDecision()
	}

	pos, ok := p.encoderPositions[controlID]
	if !ok {
		pos = 64
	}
	pos += value
	if pos < 0 {
		pos = 0
	}
	if pos > 127 {
		pos = 127
	}
	p.encoderPositions[controlID] = pos

	normalized := float64(pos) / 127.0
	return plugin.ReplaceDecision(control.State{
		ControlID:       controlID,
		Value:           intPtr(pos),
		NormalizedValue: &normalized,
	})
}

// TranslateInput converts the encoders' relative CC encoding (1-63 = CW
// steps, 65-127 = CCW steps) into a signed delta before falling back to the
// default mapping-table lookup for everything else.
func (p *Plugin) TranslateInput(msg plugin.Message) (string, int, string, bool) {
	if cc, ok := msg.(plugin.ControlChange); ok && cc.Channel == encoderChannel {
		if cc.Control >= encoderStartCC && cc.Control < encoderStartCC+EncoderCount {
			enc := int(cc.Control) - encoderStartCC + 1
			controlID := fmt.Sprintf("encoder_%d", enc)

			var delta int
			switch {
			case cc.Value >= 1 && cc.Value <= 63:
				delta = int(cc.Value)
			case cc.Value >= 64:
				delta = -(int(cc.Value) - 64)
			}
			return controlID, delta, "relative", true
		}
	}
	return p.Base.TranslateInput(msg)
}

func isEncoder(controlID string) bool {
	return len(controlID) > 8 && controlID[:8] == "encoder_"
}

func intPtr(v int) *int { return &v }

// Init switches the device into native control mode (required before any
// LED command is accepted) and clears every pad and button LED.
func (p *Plugin) Init(ctx context.Context, send plugin.SendFunc, receive plugin.ReceiveFunc) (map[string]int, error) {
	log.Info().Msg("initializing native RGB pad controller")

	send(plugin.NoteOff{Channel: modeChannel, Note: modeNote, Velocity: modeNative})

	for i := 1; i <= PadCount; i++ {
		sendPadLED(send, i, ledUnlit, color.RGB{})
	}
	for _, b := range transportButtons {
		send(plugin.ControlChange{Channel: 0, Control: b.cc, Value: 0})
	}

	for i := 1; i <= EncoderCount; i++ {
		p.encoderPositions[fmt.Sprintf("encoder_%d", i)] = 64
	}

	log.Info().Msg("native RGB pad controller initialization complete")
	return nil, nil
}

// Shutdown clears every LED and restores the device's default MIDI mode.
func (p *Plugin) Shutdown(send plugin.SendFunc) {
	log.Info().Msg("shutting down native RGB pad controller")

	for i := 1; i <= PadCount; i++ {
		sendPadLED(send, i, ledUnlit, color.RGB{})
	}
	for _, b := range transportButtons {
		send(plugin.ControlChange{Channel: 0, Control: b.cc, Value: 0})
	}

	send(plugin.NoteOff{Channel: modeChannel, Note: modeNote, Velocity: modeMIDI})
}

// TranslateFeedback emits the pad grid's 4-message RGB encoding (state then
// R, G, B on separate channels) or a single-LED CC for transport buttons.
func (p *Plugin) TranslateFeedback(controlID string, state control.State) []plugin.FeedbackDelay {
	if isPad(controlID) {
		var padNum int
		if _, err := fmt.Sscanf(controlID, "pad_%d", &padNum); err != nil || padNum < 1 || padNum > PadCount {
			log.Error().Str("control", controlID).Msg("invalid pad control id")
			return nil
		}

		isOn := state.IsOn != nil && *state.IsOn
		colorStr := state.Color
		if colorStr == "" {
			colorStr = "off"
		}
		rgb := color.Parse(colorStr)

		ledState := ledSolid
		if isOn && state.LEDMode != nil {
			switch state.LEDMode.Animation {
			case control.Pulse:
				ledState = ledBreathe
			case control.Blink:
				ledState = ledBlink
			}
		}
		if !isOn {
			ledState = ledSolid
		}

		return padMessages(padNum, ledState, rgb)
	}

	for _, b := range transportButtons {
		if b.id == controlID {
			value := uint8(0)
			if state.IsOn != nil && *state.IsOn {
				value = 127
			}
			return []plugin.FeedbackDelay{{Message: plugin.ControlChange{Channel: 0, Control: b.cc, Value: value}}}
		}
	}

	return nil
}

func sendPadLED(send plugin.SendFunc, padNum, state int, c color.RGB) {
	for _, fd := range padMessages(padNum, state, c) {
		send(fd.Message)
	}
}

func padMessages(padNum, ledState int, c color.RGB) []plugin.FeedbackDelay {
	note := uint8(padStartNote + padNum - 1)
	r, g, b := c.R/2, c.G/2, c.B/2 // full 0-255 color scaled to the device's 0-127 channel range
	return []plugin.FeedbackDelay{
		{Message: plugin.NoteOn{Channel: padChannel, Note: note, Velocity: uint8(ledState)}},
		{Message: plugin.NoteOn{Channel: redChannel, Note: note, Velocity: r}},
		{Message: plugin.NoteOn{Channel: greenChannel, Note: note, Velocity: g}},
		{Message: plugin.NoteOn{Channel: blueChannel, Note: note, Velocity: b}},
	}
}

func isPad(controlID string) bool {
	return len(controlID) > 4 && controlID[:4] == "pad_"
}
