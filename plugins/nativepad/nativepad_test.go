package nativepad

import (
	"testing"

	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/plugin"
)

func TestGetControlDefinitionsCounts(t *testing.T) {
	p := New()
	defs := p.GetControlDefinitions()
	var pads, encoders, buttons int
	for _, d := range defs {
		switch d.Category {
		case "pad":
			pads++
		case "encoder":
			encoders++
		case "transport":
			buttons++
		}
	}
	if pads != PadCount {
		t.Fatalf("expected %d pads, got %d", PadCount, pads)
	}
	if encoders != EncoderCount {
		t.Fatalf("expected %d encoders, got %d", EncoderCount, encoders)
	}
	if buttons != len(transportButtons) {
		t.Fatalf("expected %d transport buttons, got %d", len(transportButtons), buttons)
	}
}

func TestTranslateInputDecodesEncoderDeltas(t *testing.T) {
	p := New()

	controlID, delta, signalType, ok := p.TranslateInput(plugin.ControlChange{Channel: encoderChannel, Control: encoderStartCC, Value: 6})
	if !ok || controlID != "encoder_1" || delta != 6 || signalType != "relative" {
		t.Fatalf("expected CW delta +6 for encoder_1, got (%s, %d, %s, %v)", controlID, delta, signalType, ok)
	}

	controlID, delta, _, ok = p.TranslateInput(plugin.ControlChange{Channel: encoderChannel, Control: encoderStartCC, Value: 70})
	if !ok || controlID != "encoder_1" || delta != -6 {
		t.Fatalf("expected CCW delta -6 for encoder_1, got (%s, %d, %v)", controlID, delta, ok)
	}
}

func TestComputeControlStateAccumulatesEncoderPosition(t *testing.T) {
	p := New()
	p.encoderPositions["encoder_1"] = 64

	decision := p.ComputeControlState("encoder_1", 10, control.State{})
	state, ok := decision.Replacement()
	if !ok {
		t.Fatalf("expected a replace decision for encoder input")
	}
	if state.Value == nil || *state.Value != 74 {
		t.Fatalf("expected accumulated position 74, got %+v", state.Value)
	}

	decision = p.ComputeControlState("encoder_1", -100, control.State{})
	state, _ = decision.Replacement()
	if state.Value == nil || *state.Value != 0 {
		t.Fatalf("expected clamp to 0, got %+v", state.Value)
	}
}

func TestComputeControlStateDefersForNonEncoders(t *testing.T) {
	p := New()
	decision := p.ComputeControlState("pad_1", 127, control.State{})
	if !decision.IsDefault() {
		t.Fatalf("expected default decision for non-encoder control")
	}
}

func TestTranslateFeedbackPadEmitsFourMessages(t *testing.T) {
	p := New()
	isOn := true
	state := control.State{IsOn: &isOn, Color: "red"}

	msgs := p.TranslateFeedback("pad_1", state)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 feedback messages for pad RGB, got %d", len(msgs))
	}
	note, ok := msgs[0].Message.(plugin.NoteOn)
	if !ok || note.Channel != padChannel || note.Velocity != ledSolid {
		t.Fatalf("expected solid state message on pad channel, got %+v", msgs[0].Message)
	}
}

func TestTranslateFeedbackTransportButton(t *testing.T) {
	p := New()
	isOn := true
	state := control.State{IsOn: &isOn}

	msgs := p.TranslateFeedback("play", state)
	if len(msgs) != 1 {
		t.Fatalf("expected one feedback message, got %d", len(msgs))
	}
	cc, ok := msgs[0].Message.(plugin.ControlChange)
	if !ok || cc.Value != 127 {
		t.Fatalf("expected CC value 127 for active button, got %+v", msgs[0].Message)
	}
}
