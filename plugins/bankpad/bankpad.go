// Package bankpad implements a device plugin for a bank-switchable pad/knob
// controller: 4 banks selected on the device itself, each bank wired to its
// own MIDI channel so inbound messages self-identify their bank, with a
// SysEx fallback query for messages that arrive on an unexpected channel.
package bankpad

import (
	"context"
	"fmt"
	"time"

	"github.com/padgrid/padgrid/color"
	"github.com/padgrid/padgrid/config"
	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/internal/logx"
	"github.com/padgrid/padgrid/plugin"
)

var log = logx.Get("plugins/bankpad")

const (
	PadCount  = 8
	KnobCount = 8
	BankCount = 4

	padStartNote = 36
	padCCStart   = 36
	knobStartCC  = 1

	sysexManufacturer = 0x47
	sysexAllDevices   = 0x7F
	sysexProductID    = 0x4C

	cmdSendProgram      = 0x01
	cmdGetProgram       = 0x03
	cmdGetActiveProgram = 0x04
	cmdGetLEDState      = 0x05
	cmdLEDUpdate        = 0x06

	programDataMarker = 0x29

	configureDelay = 100 * time.Millisecond
	queryTimeout   = 500 * time.Millisecond
)

// bankChannels maps each bank to the MIDI channel its program is configured
// to use, giving translateInput a fast path for bank detection.
var bankChannels = map[string]uint8{
	"bank_1": 0,
	"bank_2": 1,
	"bank_3": 2,
	"bank_4": 3,
}

func bankIDForProgram(program int) string { return fmt.Sprintf("bank_%d", program) }

// Plugin drives a 4-bank pad/knob controller with persistent SysEx
// programming and channel-based bank detection.
type Plugin struct {
	plugin.Base

	lastActiveBank string
	ledColors      [PadCount]color.RGB

	send    plugin.SendFunc
	receive plugin.ReceiveFunc
}

var _ plugin.Plugin = (*Plugin)(nil)

// New constructs the plugin with its static mapping tables populated.
func New() *Plugin {
	p := &Plugin{}
	p.Base = plugin.Base{
		InputMappings: buildInputMappings(),
		Banks:         buildBankDefinitions(),
	}
	return p
}

func (p *Plugin) Name() string { return "Bank-Switchable Pad Controller" }

func (p *Plugin) Capabilities() control.ControllerCapabilities {
	return control.ControllerCapabilities{
		SupportsBankFeedback:    true,
		IndexingScheme:          control.Indexing1D,
		SupportsPersistentConfig: true,
	}
}

func buildBankDefinitions() []control.BankDefinition {
	var banks []control.BankDefinition
	for i := 1; i <= BankCount; i++ {
		banks = append(banks, control.BankDefinition{
			BankID:      bankIDForProgram(i),
			ControlType: control.Toggle,
			DisplayName: fmt.Sprintf("Bank %d", i),
		})
	}
	return banks
}

func (p *Plugin) GetControlDefinitions() []control.Definition {
	var defs []control.Definition

	for bankNum := 1; bankNum <= BankCount; bankNum++ {
		bankID := bankIDForProgram(bankNum)

		for pad := 1; pad <= PadCount; pad++ {
			defs = append(defs, control.Definition{
				ControlID:   fmt.Sprintf("pad_%d@%s", pad, bankID),
				ControlType: control.Toggle,
				Category:    "pad",
				TypeModes: &control.TypeModes{
					SupportedTypes: []control.Type{control.Toggle, control.Momentary},
					DefaultType:    control.Toggle,
				},
				Capabilities: control.Capabilities{
					SupportsFeedback: true,
					SupportsLED:      true,
					SupportsColor:    true,
					ColorMode:        control.ColorModeRGB,
				},
				BankID:      bankID,
				DisplayName: fmt.Sprintf("B%d Pad %d", bankNum, pad),
				SignalTypes: []string{"note", "cc", "pc"},
			})
		}

		for knob := 1; knob <= KnobCount; knob++ {
			defs = append(defs, control.Definition{
				ControlID:   fmt.Sprintf("knob_%d@%s", knob, bankID),
				ControlType: control.Continuous,
				Category:    "knob",
				Capabilities: control.Capabilities{
					RequiresDiscovery: true,
				},
				BankID:      bankID,
				MinValue:    0,
				MaxValue:    127,
				DisplayName: fmt.Sprintf("B%d Knob %d", bankNum, knob),
			})
		}
	}

	return defs
}

// buildInputMappings maps each bank's 3 pad signal modes (note/cc/pc) and
// knob CCs on that bank's channel. Program-change pad routing can't be
// expressed as a static mapping (the pad number lives in the PC's program
// byte, not in channel/note/control), so translateInput handles PC messages
// itself; these mappings cover note and CC only.
func buildInputMappings() []plugin.MIDIMapping {
	var m []plugin.MIDIMapping

	for bankNum := 1; bankNum <= BankCount; bankNum++ {
		bankID := bankIDForProgram(bankNum)
		ch := bankChannels[bankID]

		for pad := 1; pad <= PadCount; pad++ {
			note := uint8(padStartNote + pad - 1)
			cc := uint8(padCCStart + pad - 1)
			controlID := fmt.Sprintf("pad_%d@%s", pad, bankID)

			m = append(m,
				plugin.MIDIMapping{Type: plugin.TypeNoteOn, Channel: &ch, Note: &note, ControlID: controlID, SignalType: "note"},
				plugin.MIDIMapping{Type: plugin.TypeNoteOff, Channel: &ch, Note: &note, ControlID: controlID, SignalType: "note"},
				plugin.MIDIMapping{Type: plugin.TypeControlChange, Channel: &ch, Control: &cc, ControlID: controlID, SignalType: "cc"},
			)
		}

		for knob := 1; knob <= KnobCount; knob++ {
			cc := uint8(knobStartCC + knob - 1)
			m = append(m, plugin.MIDIMapping{Type: plugin.TypeControlChange, Channel: &ch, Control: &cc, ControlID: fmt.Sprintf("knob_%d@%s", knob, bankID)})
		}
	}

	return m
}

func (p *Plugin) GetInputMappings() []plugin.MIDIMapping { return p.InputMappings }

func (p *Plugin) GetBankDefinitions() []control.BankDefinition { return p.Banks }

// TranslateInput tracks which bank is active from the inbound message's
// channel (querying the device live if the channel is unrecognized), then
// routes the message to that bank's control regardless of which channel it
// arrived on.
func (p *Plugin) TranslateInput(msg plugin.Message) (string, int, string, bool) {
	p.trackActiveBank(msg)
	return p.routeToActiveBank(msg)
}

func (p *Plugin) trackActiveBank(msg plugin.Message) {
	channel, ok := channelOf(msg)
	if !ok {
		return
	}

	for bankID, ch := range bankChannels {
		if ch == channel {
			if bankID != p.lastActiveBank {
				log.Info().Str("from", p.lastActiveBank).Str("to", bankID).Msg("bank switch detected via channel")
				p.lastActiveBank = bankID
			}
			return
		}
	}

	if p.send == nil || p.receive == nil {
		return
	}
	log.Debug().Uint8("channel", channel).Msg("unexpected channel, querying active program")
	program := p.queryActiveProgram(context.Background())
	newBank := bankIDForProgram(program)
	if newBank != p.lastActiveBank {
		log.Info().Str("bank", newBank).Msg("bank detected via active program query")
		p.lastActiveBank = newBank
	}
}

func channelOf(msg plugin.Message) (uint8, bool) {
	switch v := msg.(type) {
	case plugin.NoteOn:
		return v.Channel, true
	case plugin.NoteOff:
		return v.Channel, true
	case plugin.ControlChange:
		return v.Channel, true
	case plugin.ProgramChange:
		return v.Channel, true
	}
	return 0, false
}

func (p *Plugin) routeToActiveBank(msg plugin.Message) (string, int, string, bool) {
	if p.lastActiveBank == "" {
		return "", 0, "", false
	}
	bankID := p.lastActiveBank

	switch v := msg.(type) {
	case plugin.NoteOn:
		if note := int(v.Note); note >= padStartNote && note < padStartNote+PadCount {
			pad := note - padStartNote + 1
			return fmt.Sprintf("pad_%d@%s", pad, bankID), int(v.Velocity), "note", true
		}
	case plugin.NoteOff:
		if note := int(v.Note); note >= padStartNote && note < padStartNote+PadCount {
			pad := note - padStartNote + 1
			return fmt.Sprintf("pad_%d@%s", pad, bankID), int(v.Velocity), "note", true
		}
	case plugin.ControlChange:
		cc := int(v.Control)
		if cc >= knobStartCC && cc < knobStartCC+KnobCount {
			knob := cc - knobStartCC + 1
			return fmt.Sprintf("knob_%d@%s", knob, bankID), int(v.Value), "default", true
		}
		if cc >= padCCStart && cc < padCCStart+PadCount {
			pad := cc - padCCStart + 1
			return fmt.Sprintf("pad_%d@%s", pad, bankID), int(v.Value), "cc", true
		}
	case plugin.ProgramChange:
		if program := int(v.Program); program >= 0 && program < PadCount {
			pad := program + 1
			return fmt.Sprintf("pad_%d@%s", pad, bankID), 127, "pc", true
		}
	}

	return "", 0, "", false
}

// Init queries the device for its currently selected program, then writes
// each program's MIDI channel so future input self-identifies its bank.
func (p *Plugin) Init(ctx context.Context, send plugin.SendFunc, receive plugin.ReceiveFunc) (map[string]int, error) {
	log.Info().Msg("initializing bank-switchable pad controller")

	p.send = send
	p.receive = receive

	program := p.queryActiveProgram(ctx)
	p.lastActiveBank = bankIDForProgram(program)
	log.Info().Str("bank", p.lastActiveBank).Msg("active program detected")

	for bankNum := 1; bankNum <= BankCount; bankNum++ {
		bankID := bankIDForProgram(bankNum)
		send(buildProgramConfigSysEx(bankNum, bankChannels[bankID], nil))
		time.Sleep(configureDelay)
	}

	log.Info().Msg("bank-switchable pad controller initialization complete")
	return nil, nil
}

// queryActiveProgram sends the Get Active Program SysEx and parses the
// response, defaulting to program 1 if the device doesn't answer in time.
func (p *Plugin) queryActiveProgram(ctx context.Context) int {
	query := plugin.SysEx{Data: []byte{sysexManufacturer, sysexAllDevices, sysexProductID, cmdGetActiveProgram, 0x00, 0x00}}
	p.send(query)

	resp, ok := p.receive(ctx, queryTimeout)
	if !ok || resp == nil {
		log.Warn().Msg("no response to active program query, defaulting to program 1")
		return 1
	}

	sysex, ok := resp.(plugin.SysEx)
	if !ok || len(sysex.Data) < 7 {
		log.Warn().Msg("unexpected response to active program query, defaulting to program 1")
		return 1
	}
	if sysex.Data[0] != sysexManufacturer || sysex.Data[2] != sysexProductID || sysex.Data[3] != cmdGetActiveProgram {
		log.Warn().Msg("unexpected sysex header in active program response, defaulting to program 1")
		return 1
	}

	program := int(sysex.Data[6])
	if program < 1 || program > BankCount {
		log.Warn().Int("program", program).Msg("invalid program number in response, defaulting to program 1")
		return 1
	}
	return program
}

// Shutdown restores factory-default channel/mode configuration to all 4
// programs so the device is in a known state for the next connection.
func (p *Plugin) Shutdown(send plugin.SendFunc) {
	log.Info().Msg("shutting down bank-switchable pad controller, restoring factory defaults")

	const factoryChannel = 9
	for _, d := range []struct {
		program int
		toggle  bool
	}{{1, false}, {2, false}, {3, false}, {4, true}} {
		send(buildProgramConfigSysExChannel(d.program, factoryChannel, d.toggle, nil))
		time.Sleep(configureDelay)
	}
}

// ConfigurePrograms writes the user's per-bank pad colors and control type
// into device memory so they persist across power cycles, then applies the
// active bank's off-colors immediately via the transient LED update command.
func (p *Plugin) ConfigurePrograms(send plugin.SendFunc, cfg *config.ControllerConfig) error {
	if cfg == nil || cfg.Banks == nil {
		log.Debug().Msg("no configuration provided, using defaults")
		return nil
	}

	log.Info().Msg("programming device memory with bank configuration")

	for bankNum := 1; bankNum <= BankCount; bankNum++ {
		bankID := bankIDForProgram(bankNum)
		bankCfg, hasBank := cfg.Banks[bankID]
		var bc *config.BankConfig
		if hasBank {
			bc = &bankCfg
		}
		send(buildProgramConfigSysEx(bankNum, bankChannels[bankID], bc))
		time.Sleep(configureDelay)
	}

	if p.lastActiveBank != "" {
		if bc, ok := cfg.Banks[p.lastActiveBank]; ok {
			p.applyLEDColorsDirectly(send, &bc)
		} else {
			p.applyLEDColorsDirectly(send, nil)
		}
	}

	log.Info().Msg("program configuration complete")
	return nil
}

func (p *Plugin) applyLEDColorsDirectly(send plugin.SendFunc, bankCfg *config.BankConfig) {
	offColors := padOffColors(bankCfg)
	send(buildLEDUpdateSysEx(offColors))
	copy(p.ledColors[:], offColors)
}

// padOffColors returns each of the 8 pads' off-state color, defaulting to
// black, or a quarter-brightness shade of the configured on-color.
func padOffColors(bankCfg *config.BankConfig) []color.RGB {
	colors := make([]color.RGB, PadCount)
	for i := range colors {
		off, _ := padColors(bankCfg, i+1)
		colors[i] = off
	}
	return colors
}

// padColors returns a pad's (off, on) color pair. The off color defaults to
// black and is only derived as a quarter-brightness shade of the on color
// when that pad has an explicit configured color; otherwise the default on
// color (blue) keeps its default off color (black) too.
func padColors(bankCfg *config.BankConfig, pad int) (off, on color.RGB) {
	on = color.RGB{R: 0, G: 128, B: 255}
	if bankCfg == nil {
		return color.RGB{}, on
	}
	cc, ok := bankCfg.Controls[fmt.Sprintf("pad_%d", pad)]
	if !ok || cc.Color == "" {
		return color.RGB{}, on
	}
	on = color.Parse(cc.Color)
	return color.RGB{R: on.R / 4, G: on.G / 4, B: on.B / 4}, on
}

func toggleModeForBank(bankCfg *config.BankConfig) bool {
	if bankCfg != nil && bankCfg.ToggleMode != nil {
		return *bankCfg.ToggleMode
	}
	return true
}

// buildProgramConfigSysEx builds the Send Program SysEx (0x01) for one bank,
// applying configured pad colors and toggle mode, with all controls wired
// to the bank's channel.
func buildProgramConfigSysEx(programNum int, channel uint8, bankCfg *config.BankConfig) plugin.SysEx {
	return buildProgramConfigSysExChannel(programNum, channel, toggleModeForBank(bankCfg), bankCfg)
}

func buildProgramConfigSysExChannel(programNum int, channel uint8, toggleMode bool, bankCfg *config.BankConfig) plugin.SysEx {
	data := []byte{
		sysexManufacturer, sysexAllDevices, sysexProductID,
		cmdSendProgram, 0x01, programDataMarker,
	}

	toggle := byte(0x00)
	if toggleMode {
		toggle = 0x01
	}
	data = append(data, byte(programNum), channel, 0x00, 0x01, toggle)

	for pad := 1; pad <= PadCount; pad++ {
		off, on := padColors(bankCfg, pad)

		data = append(data,
			byte(padStartNote+pad-1), byte(padCCStart+pad-1), byte(pad-1), channel,
		)
		data = append(data, splitHiLo(off)...)
		data = append(data, splitHiLo(on)...)
	}

	for knob := 1; knob <= KnobCount; knob++ {
		data = append(data, byte(knobStartCC+knob-1), channel, 0x00, 0x7F)
	}

	return plugin.SysEx{Data: data}
}

// buildLEDUpdateSysEx builds the transient LED color update (0x06), used to
// repaint all 8 pads without requiring a program switch.
func buildLEDUpdateSysEx(colors []color.RGB) plugin.SysEx {
	data := []byte{sysexManufacturer, sysexAllDevices, sysexProductID, cmdLEDUpdate, 0x00, 0x30}
	for _, c := range colors {
		data = append(data, midiSplitHiLo(c)...)
	}
	return plugin.SysEx{Data: data}
}

// splitHiLo splits each 0-255 channel into hi/lo 7-bit bytes, per the Send
// Program command's byte layout.
func splitHiLo(c color.RGB) []byte {
	var out []byte
	for _, v := range []uint8{c.R, c.G, c.B} {
		out = append(out, v/128, v%128)
	}
	return out
}

// midiSplitHiLo converts to 0-127 MIDI range first; the LED update command
// always carries 0 in the hi byte since the scaled value never exceeds 127.
func midiSplitHiLo(c color.RGB) []byte {
	r, g, b := c.ToMIDI()
	var out []byte
	for _, v := range []uint8{r, g, b} {
		out = append(out, (v>>7)&0x7F, v&0x7F)
	}
	return out
}

// TranslateFeedback paints all 8 pads of the active bank via the transient
// LED update command, preserving the other pads' current colors.
func (p *Plugin) TranslateFeedback(controlID string, state control.State) []plugin.FeedbackDelay {
	pad, ok := parsePadControlID(controlID)
	if !ok {
		return nil
	}

	var rgb color.RGB
	if state.Color != "" {
		rgb = color.Parse(state.Color)
	}

	p.ledColors[pad-1] = rgb
	return []plugin.FeedbackDelay{{Message: buildLEDUpdateSysEx(p.ledColors[:])}}
}

func (p *Plugin) TranslateFeedbackBatch(updates []plugin.StateUpdate) []plugin.FeedbackDelay {
	var out []plugin.FeedbackDelay
	for _, u := range updates {
		out = append(out, p.TranslateFeedback(u.ControlID, u.State)...)
	}
	return out
}

// parsePadControlID extracts the pad number from "pad_N@bank_M"; knobs
// have no feedback capability so any other ID is rejected.
func parsePadControlID(controlID string) (int, bool) {
	var pad int
	var bank string
	if _, err := fmt.Sscanf(controlID, "pad_%d@%s", &pad, &bank); err != nil {
		return 0, false
	}
	if pad < 1 || pad > PadCount {
		return 0, false
	}
	return pad, true
}

// ValidateBankConfig rejects bank configuration where a pad's explicit
// control-type override conflicts with the bank's toggle_mode, since toggle
// mode is applied per-bank in hardware and can't vary pad-by-pad.
func (p *Plugin) ValidateBankConfig(bankID string, bankCfg config.BankConfig, strictMode bool) error {
	if bankCfg.ToggleMode == nil {
		return nil
	}
	expected := control.Momentary
	if *bankCfg.ToggleMode {
		expected = control.Toggle
	}

	for controlID, cc := range bankCfg.Controls {
		if len(controlID) < 4 || controlID[:4] != "pad_" {
			continue
		}
		if cc.Type != "" && cc.Type != expected {
			msg := fmt.Sprintf("bank %q has toggle_mode=%v but %q is configured as %s; hardware applies toggle mode per-bank, pad type override will be ignored", bankID, *bankCfg.ToggleMode, controlID, cc.Type)
			if strictMode {
				return fmt.Errorf("%s", msg)
			}
			log.Warn().Msg(msg)
		}
	}
	return nil
}
