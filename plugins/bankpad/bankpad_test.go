package bankpad

import (
	"testing"

	"github.com/padgrid/padgrid/config"
	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/plugin"
)

func TestGetControlDefinitionsCounts(t *testing.T) {
	p := New()
	defs := p.GetControlDefinitions()
	var pads, knobs int
	for _, d := range defs {
		switch d.Category {
		case "pad":
			pads++
		case "knob":
			knobs++
		}
	}
	if pads != BankCount*PadCount {
		t.Fatalf("expected %d pads, got %d", BankCount*PadCount, pads)
	}
	if knobs != BankCount*KnobCount {
		t.Fatalf("expected %d knobs, got %d", BankCount*KnobCount, knobs)
	}
}

func TestTranslateInputFastPathTracksBankFromChannel(t *testing.T) {
	p := New()

	controlID, value, signalType, ok := p.TranslateInput(plugin.NoteOn{Channel: 1, Note: padStartNote, Velocity: 100})
	if !ok || controlID != "pad_1@bank_2" || value != 100 || signalType != "note" {
		t.Fatalf("expected pad_1@bank_2, got (%s, %d, %s, %v)", controlID, value, signalType, ok)
	}
	if p.lastActiveBank != "bank_2" {
		t.Fatalf("expected active bank bank_2, got %s", p.lastActiveBank)
	}
}

func TestTranslateInputRoutesCCToKnobOrPad(t *testing.T) {
	p := New()
	p.lastActiveBank = "bank_1"

	controlID, _, _, ok := p.TranslateInput(plugin.ControlChange{Channel: 0, Control: knobStartCC, Value: 64})
	if !ok || controlID != "knob_1@bank_1" {
		t.Fatalf("expected knob_1@bank_1, got %s", controlID)
	}

	controlID, _, signalType, ok := p.TranslateInput(plugin.ControlChange{Channel: 0, Control: padCCStart, Value: 127})
	if !ok || controlID != "pad_1@bank_1" || signalType != "cc" {
		t.Fatalf("expected pad_1@bank_1 via cc, got (%s, %s)", controlID, signalType)
	}
}

func TestTranslateInputRoutesProgramChangeToPad(t *testing.T) {
	p := New()
	p.lastActiveBank = "bank_3"

	controlID, value, signalType, ok := p.TranslateInput(plugin.ProgramChange{Channel: 2, Program: 3})
	if !ok || controlID != "pad_4@bank_3" || value != 127 || signalType != "pc" {
		t.Fatalf("expected pad_4@bank_3 via pc, got (%s, %d, %s, %v)", controlID, value, signalType, ok)
	}
}

func TestTranslateInputWithNoActiveBankReturnsFalse(t *testing.T) {
	p := New()
	_, _, _, ok := p.TranslateInput(plugin.NoteOn{Channel: 9, Note: padStartNote, Velocity: 100})
	if ok {
		t.Fatalf("expected no routing before a bank has been established")
	}
}

func TestTranslateFeedbackBuildsLEDUpdateSysEx(t *testing.T) {
	p := New()
	isOn := true
	state := control.State{IsOn: &isOn, Color: "red"}

	msgs := p.TranslateFeedback("pad_1@bank_1", state)
	if len(msgs) != 1 {
		t.Fatalf("expected one feedback message, got %d", len(msgs))
	}
	sysex, ok := msgs[0].Message.(plugin.SysEx)
	if !ok || sysex.Data[3] != cmdLEDUpdate {
		t.Fatalf("expected LED update sysex, got %+v", msgs[0].Message)
	}
}

func TestTranslateFeedbackRejectsKnobControls(t *testing.T) {
	p := New()
	if msgs := p.TranslateFeedback("knob_1@bank_1", control.State{}); msgs != nil {
		t.Fatalf("expected no feedback for a knob control, got %+v", msgs)
	}
}

func TestValidateBankConfigRejectsConflictingToggleMode(t *testing.T) {
	toggleMode := true
	bankCfg := config.BankConfig{
		ToggleMode: &toggleMode,
		Controls: map[string]config.ControlConfig{
			"pad_1": {Type: control.Momentary},
		},
	}

	p := New()
	if err := p.ValidateBankConfig("bank_1", bankCfg, true); err == nil {
		t.Fatalf("expected strict validation to reject conflicting toggle mode")
	}
	if err := p.ValidateBankConfig("bank_1", bankCfg, false); err != nil {
		t.Fatalf("expected permissive validation to warn, not error: %v", err)
	}
}
