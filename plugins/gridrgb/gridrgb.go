// Package gridrgb implements a device plugin for RGB pad-grid controllers
// that expose true-color LEDs over a SysEx protocol: an 8x8 pad grid, a row
// of read-only faders, and two rows of single-color utility buttons.
package gridrgb

import (
	"context"
	"fmt"
	"time"

	"github.com/padgrid/padgrid/color"
	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/internal/logx"
	"github.com/padgrid/padgrid/plugin"
)

var log = logx.Get("plugins/gridrgb")

const (
	PadRows          = 8
	PadCols          = 8
	FaderCount       = 9
	TrackButtonCount = 8
	SceneButtonCount = 8

	padStartNote     = 0x00
	trackButtonStart = 0x64
	sceneButtonStart = 0x70
	shiftButtonNote  = 0x7A
	faderStartCC     = 0x30

	sysexManufacturer = 0x47
	sysexAllDevices   = 0x7F
	sysexProductID    = 0x4F
	cmdRGBLighting    = 0x24
	cmdIntroRequest   = 0x60
	cmdIntroResponse  = 0x61

	singleLEDOff = 0x00
	singleLEDOn  = 0x01

	ledChannelSolid = 6
	ledChannelPulse = 9
	ledChannelBlink = 14

	messageDelay = 10 * time.Millisecond
)

// palette approximates the device's velocity-indexed Note On color table,
// used only for pads running in pulse/blink mode (the device ignores SysEx
// RGB once a pad has been driven by Note On on an animation channel).
var palette = buildPalette()

func buildPalette() map[uint8]color.RGB {
	p := map[uint8]color.RGB{
		0: {R: 0, G: 0, B: 0},
		1: {R: 127, G: 127, B: 127},
		2: {R: 255, G: 255, B: 255},
	}
	hues := []color.RGB{
		{R: 255, G: 0, B: 0}, {R: 255, G: 128, B: 0}, {R: 255, G: 255, B: 0},
		{R: 128, G: 255, B: 0}, {R: 0, G: 255, B: 0}, {R: 0, G: 255, B: 128},
		{R: 0, G: 255, B: 255}, {R: 0, G: 128, B: 255}, {R: 0, G: 0, B: 255},
		{R: 128, G: 0, B: 255}, {R: 255, G: 0, B: 255}, {R: 255, G: 0, B: 128},
	}
	velocity := uint8(3)
	for _, hue := range hues {
		for _, scale := range []float64{1.0, 0.6, 0.3} {
			p[velocity] = color.ScaleGamma(hue, scale)
			velocity++
		}
	}
	return p
}

func nearestVelocity(c color.RGB) uint8 {
	var best uint8
	bestDist := -1
	for v, candidate := range palette {
		dr := int(c.R) - int(candidate.R)
		dg := int(c.G) - int(candidate.G)
		db := int(c.B) - int(candidate.B)
		d := dr*dr + dg*dg + db*db
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = v
		}
	}
	return best
}

// Plugin drives an 8x8 RGB pad grid controller (64 toggle pads, 9 read-only
// faders, 8 red track buttons, 8 green scene buttons, 1 shift button).
type Plugin struct {
	plugin.Base

	padColors map[string]color.RGB
}

var _ plugin.Plugin = (*Plugin)(nil)

// New constructs the plugin with its static mapping tables populated.
func New() *Plugin {
	p := &Plugin{padColors: map[string]color.RGB{}}
	p.Base = plugin.Base{
		Patterns:         []string{"Control"},
		InputMappings:    buildInputMappings(),
		FeedbackMappings: nil, // TranslateFeedback is overridden directly
	}
	return p
}

func (p *Plugin) Name() string { return "RGB Pad Grid Controller" }

func (p *Plugin) Capabilities() control.ControllerCapabilities {
	return control.ControllerCapabilities{
		SupportsBankFeedback:     false,
		IndexingScheme:           control.Indexing2D,
		GridRows:                 PadRows,
		GridCols:                 PadCols,
		SupportsPersistentConfig: false,
		PostInitDelay:            500 * time.Millisecond,
		FeedbackMessageDelay:     messageDelay,
	}
}

func (p *Plugin) GetControlDefinitions() []control.Definition {
	var defs []control.Definition

	for row := 0; row < PadRows; row++ {
		for col := 0; col < PadCols; col++ {
			defs = append(defs, control.Definition{
				ControlID:   fmt.Sprintf("pad_%d_%d", row, col),
				ControlType: control.Toggle,
				Category:    "pad",
				Capabilities: control.Capabilities{
					SupportsFeedback:  true,
					RequiresFeedback:  true,
					SupportsLED:       true,
					SupportsColor:     true,
					ColorMode:         control.ColorModeRGB,
					SupportedLEDModes: []control.LEDMode{{Animation: control.Solid}, {Animation: control.Pulse}, {Animation: control.Blink}},
				},
				DisplayName: fmt.Sprintf("Pad %d,%d", row, col),
			})
		}
	}

	for i := 1; i <= FaderCount; i++ {
		name := fmt.Sprintf("Fader %d", i)
		if i == FaderCount {
			name = "Master Fader"
		}
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("fader_%d", i),
			ControlType: control.Continuous,
			Category:    "fader",
			MinValue:    0,
			MaxValue:    127,
			DisplayName: name,
		})
	}

	for i := 1; i <= TrackButtonCount; i++ {
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("track_%d", i),
			ControlType: control.Momentary,
			Category:    "button",
			Capabilities: control.Capabilities{
				SupportsFeedback: true,
				RequiresFeedback: true,
				SupportsLED:      true,
			},
			DisplayName: fmt.Sprintf("Track %d", i),
		})
	}

	for i := 1; i <= SceneButtonCount; i++ {
		defs = append(defs, control.Definition{
			ControlID:   fmt.Sprintf("scene_%d", i),
			ControlType: control.Momentary,
			Category:    "button",
			Capabilities: control.Capabilities{
				SupportsFeedback: true,
				RequiresFeedback: true,
				SupportsLED:      true,
			},
			DisplayName: fmt.Sprintf("Scene %d", i),
		})
	}

	defs = append(defs, control.Definition{
		ControlID:   "shift",
		ControlType: control.Momentary,
		Category:    "button",
		DisplayName: "Shift",
	})

	return defs
}

func buildInputMappings() []plugin.MIDIMapping {
	var m []plugin.MIDIMapping
	ch0 := uint8(0)

	for row := 0; row < PadRows; row++ {
		for col := 0; col < PadCols; col++ {
			note := uint8(padStartNote + row*8 + col)
			id := fmt.Sprintf("pad_%d_%d", row, col)
			m = append(m,
				plugin.MIDIMapping{Type: plugin.TypeNoteOn, Channel: &ch0, Note: &note, ControlID: id, SignalType: "note"},
				plugin.MIDIMapping{Type: plugin.TypeNoteOff, Channel: &ch0, Note: &note, ControlID: id, SignalType: "note"},
			)
		}
	}

	for i := 1; i <= FaderCount; i++ {
		cc := uint8(faderStartCC + i - 1)
		m = append(m, plugin.MIDIMapping{Type: plugin.TypeControlChange, Channel: &ch0, Control: &cc, ControlID: fmt.Sprintf("fader_%d", i)})
	}

	for i := 1; i <= TrackButtonCount; i++ {
		note := uint8(trackButtonStart + i - 1)
		id := fmt.Sprintf("track_%d", i)
		m = append(m,
			plugin.MIDIMapping{Type: plugin.TypeNoteOn, Channel: &ch0, Note: &note, ControlID: id, SignalType: "note"},
			plugin.MIDIMapping{Type: plugin.TypeNoteOff, Channel: &ch0, Note: &note, ControlID: id, SignalType: "note"},
		)
	}

	for i := 1; i <= SceneButtonCount; i++ {
		note := uint8(sceneButtonStart + i - 1)
		id := fmt.Sprintf("scene_%d", i)
		m = append(m,
			plugin.MIDIMapping{Type: plugin.TypeNoteOn, Channel: &ch0, Note: &note, ControlID: id, SignalType: "note"},
			plugin.MIDIMapping{Type: plugin.TypeNoteOff, Channel: &ch0, Note: &note, ControlID: id, SignalType: "note"},
		)
	}

	shiftNote := uint8(shiftButtonNote)
	m = append(m,
		plugin.MIDIMapping{Type: plugin.TypeNoteOn, Channel: &ch0, Note: &shiftNote, ControlID: "shift", SignalType: "note"},
		plugin.MIDIMapping{Type: plugin.TypeNoteOff, Channel: &ch0, Note: &shiftNote, ControlID: "shift", SignalType: "note"},
	)

	return m
}

func (p *Plugin) GetInputMappings() []plugin.MIDIMapping { return p.InputMappings }

// Init sends an introduction SysEx and waits for the device's fader-position
// response. The introduction also resets the device to a clean SysEx-ready
// state, which is why it runs before any pad clearing.
func (p *Plugin) Init(ctx context.Context, send plugin.SendFunc, receive plugin.ReceiveFunc) (map[string]int, error) {
	log.Info().Msg("initializing RGB pad grid controller")

	discovered := map[string]int{}

	if receive != nil {
		send(introRequest())
		msg, ok := receive(ctx, time.Second)
		if ok {
			if sysex, ok := msg.(plugin.SysEx); ok {
				if positions, ok := parseIntroResponse(sysex.Data); ok {
					for i, pos := range positions {
						discovered[fmt.Sprintf("fader_%d", i+1)] = pos
					}
					log.Info().Interface("faders", discovered).Msg("discovered fader positions")
				} else {
					log.Warn().Msg("failed to parse introduction response")
				}
			}
		} else {
			log.Warn().Msg("no introduction response received from device")
		}
	}

	for i := 0; i < TrackButtonCount; i++ {
		send(plugin.NoteOn{Channel: 0, Note: uint8(trackButtonStart + i), Velocity: singleLEDOff})
	}
	for i := 0; i < SceneButtonCount; i++ {
		send(plugin.NoteOn{Channel: 0, Note: uint8(sceneButtonStart + i), Velocity: singleLEDOff})
	}

	p.padColors = map[string]color.RGB{}

	log.Info().Msg("RGB pad grid controller initialization complete")
	return discovered, nil
}

// Shutdown stops any running pad animations and resets LEDs to off before
// sending a fresh introduction message, so the next session does not require
// a physical power cycle to restore SysEx control.
func (p *Plugin) Shutdown(send plugin.SendFunc) {
	log.Info().Msg("shutting down RGB pad grid controller")

	black := color.RGB{}
	for row := 0; row < PadRows; row++ {
		for col := 0; col < PadCols; col++ {
			note := uint8(padStartNote + row*8 + col)
			for _, ch := range []uint8{ledChannelSolid, ledChannelPulse, ledChannelBlink} {
				send(plugin.NoteOn{Channel: ch, Note: note, Velocity: 0})
				time.Sleep(messageDelay)
			}
			send(buildPadRGBSysEx(note, note, black))
			time.Sleep(messageDelay)
		}
	}

	for i := 0; i < TrackButtonCount; i++ {
		send(plugin.NoteOn{Channel: 0, Note: uint8(trackButtonStart + i), Velocity: singleLEDOff})
		time.Sleep(messageDelay)
	}
	for i := 0; i < SceneButtonCount; i++ {
		send(plugin.NoteOn{Channel: 0, Note: uint8(sceneButtonStart + i), Velocity: singleLEDOff})
		time.Sleep(messageDelay)
	}

	p.padColors = map[string]color.RGB{}
	send(introRequest())
}

// TranslateFeedback picks SysEx RGB for pads running in solid mode, and Note
// On with a palette-approximated color for pads running pulse or blink: the
// hardware treats those as mutually exclusive per pad, so a pad that has
// ever been driven by Note On on an animation channel stops responding to
// SysEx until the device is power-cycled.
func (p *Plugin) TranslateFeedback(controlID string, state control.State) []plugin.FeedbackDelay {
	switch {
	case isPad(controlID):
		return p.translatePadFeedback(controlID, state)
	case hasPrefix(controlID, "track_"):
		return singleLEDFeedback(trackButtonStart, "track_", controlID, state)
	case hasPrefix(controlID, "scene_"):
		return singleLEDFeedback(sceneButtonStart, "scene_", controlID, state)
	}
	return nil
}

// TranslateFeedbackBatch concatenates the individual TranslateFeedback
// output of each update, in order. Pads are not combined into ranged SysEx
// messages: every pad gets its own single-pad update.
func (p *Plugin) TranslateFeedbackBatch(updates []plugin.StateUpdate) []plugin.FeedbackDelay {
	var out []plugin.FeedbackDelay
	for _, u := range updates {
		out = append(out, p.TranslateFeedback(u.ControlID, u.State)...)
	}
	return out
}

func (p *Plugin) translatePadFeedback(controlID string, state control.State) []plugin.FeedbackDelay {
	row, col, ok := parsePadID(controlID)
	if !ok {
		log.Error().Str("control", controlID).Msg("invalid pad control id")
		return nil
	}
	note := uint8(padStartNote + row*8 + col)

	isOn := state.IsOn != nil && *state.IsOn
	colorStr := state.Color
	if colorStr == "" {
		colorStr = "off"
	}
	rgb := color.Parse(colorStr)
	p.padColors[controlID] = rgb

	animation := control.Solid
	if state.LEDMode != nil {
		animation = state.LEDMode.Animation
	}

	if animation == control.Pulse || animation == control.Blink {
		var velocity uint8
		var channel uint8
		if isOn {
			velocity = nearestVelocity(rgb)
			if animation == control.Pulse {
				channel = ledChannelPulse
			} else {
				channel = ledChannelBlink
			}
		} else {
			if rgb == (color.RGB{}) {
				velocity = 0
			} else {
				velocity = nearestVelocity(rgb)
			}
			channel = ledChannelSolid
		}
		return []plugin.FeedbackDelay{{Message: plugin.NoteOn{Channel: channel, Note: note, Velocity: velocity}}}
	}

	return []plugin.FeedbackDelay{{Message: buildPadRGBSysEx(note, note, rgb)}}
}

func singleLEDFeedback(start uint8, prefix, controlID string, state control.State) []plugin.FeedbackDelay {
	var n int
	if _, err := fmt.Sscanf(controlID, prefix+"%d", &n); err != nil {
		log.Error().Str("control", controlID).Msg("invalid button control id")
		return nil
	}
	note := start + uint8(n) - 1
	velocity := uint8(singleLEDOff)
	if state.IsOn != nil && *state.IsOn {
		velocity = singleLEDOn
	}
	return []plugin.FeedbackDelay{{Message: plugin.NoteOn{Channel: 0, Note: note, Velocity: velocity}}}
}

func isPad(controlID string) bool { return hasPrefix(controlID, "pad_") }

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func parsePadID(controlID string) (row, col int, ok bool) {
	if _, err := fmt.Sscanf(controlID, "pad_%d_%d", &row, &col); err != nil {
		return 0, 0, false
	}
	return row, col, true
}

func buildPadRGBSysEx(startPad, endPad uint8, c color.RGB) plugin.SysEx {
	data := []byte{
		sysexManufacturer, sysexAllDevices, sysexProductID, cmdRGBLighting,
	}
	rgbBytes := toMSBLSB(c)
	payload := append([]byte{startPad, endPad}, rgbBytes...)
	length := len(payload)
	data = append(data, byte((length>>7)&0x7F), byte(length&0x7F))
	data = append(data, payload...)
	return plugin.SysEx{Data: data}
}

func toMSBLSB(c color.RGB) []byte {
	var out []byte
	for _, v := range []uint8{c.R, c.G, c.B} {
		out = append(out, (v>>7)&0x7F, v&0x7F)
	}
	return out
}

func introRequest() plugin.SysEx {
	return plugin.SysEx{Data: []byte{
		sysexManufacturer, sysexAllDevices, sysexProductID, cmdIntroRequest,
		0x00, 0x04,
		0x00, 0x01, 0x00, 0x00,
	}}
}

func parseIntroResponse(data []byte) ([]int, bool) {
	if len(data) < 15 {
		return nil, false
	}
	if data[0] != sysexManufacturer || data[2] != sysexProductID || data[3] != cmdIntroResponse {
		return nil, false
	}
	positions := make([]int, FaderCount)
	for i := 0; i < FaderCount; i++ {
		positions[i] = int(data[6+i])
	}
	return positions, true
}
