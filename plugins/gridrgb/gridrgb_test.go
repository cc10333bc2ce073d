package gridrgb

import (
	"testing"

	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/plugin"
)

func TestGetControlDefinitionsCounts(t *testing.T) {
	p := New()
	defs := p.GetControlDefinitions()
	var pads, faders, tracks, scenes, shift int
	for _, d := range defs {
		switch {
		case isPad(d.ControlID):
			pads++
		case hasPrefix(d.ControlID, "fader_"):
			faders++
		case hasPrefix(d.ControlID, "track_"):
			tracks++
		case hasPrefix(d.ControlID, "scene_"):
			scenes++
		case d.ControlID == "shift":
			shift++
		}
	}
	if pads != 64 {
		t.Fatalf("expected 64 pads, got %d", pads)
	}
	if faders != FaderCount || tracks != TrackButtonCount || scenes != SceneButtonCount || shift != 1 {
		t.Fatalf("unexpected control counts: faders=%d tracks=%d scenes=%d shift=%d", faders, tracks, scenes, shift)
	}
}

func TestTranslateFeedbackSolidPadUsesSysEx(t *testing.T) {
	p := New()
	isOn := true
	state := control.State{ControlID: "pad_0_0", IsOn: &isOn, Color: "red"}

	msgs := p.TranslateFeedback("pad_0_0", state)
	if len(msgs) != 1 {
		t.Fatalf("expected one feedback message, got %d", len(msgs))
	}
	sysex, ok := msgs[0].Message.(plugin.SysEx)
	if !ok {
		t.Fatalf("expected sysex message for solid pad, got %T", msgs[0].Message)
	}
	if sysex.Data[3] != cmdRGBLighting {
		t.Fatalf("expected RGB lighting command, got %#x", sysex.Data[3])
	}
}

func TestTranslateFeedbackPulsePadUsesNoteOn(t *testing.T) {
	p := New()
	isOn := true
	pulse := control.LEDMode{Animation: control.Pulse}
	state := control.State{ControlID: "pad_1_2", IsOn: &isOn, Color: "blue", LEDMode: &pulse}

	msgs := p.TranslateFeedback("pad_1_2", state)
	if len(msgs) != 1 {
		t.Fatalf("expected one feedback message, got %d", len(msgs))
	}
	noteOn, ok := msgs[0].Message.(plugin.NoteOn)
	if !ok {
		t.Fatalf("expected note on message for pulse pad, got %T", msgs[0].Message)
	}
	if noteOn.Channel != ledChannelPulse {
		t.Fatalf("expected pulse channel %d, got %d", ledChannelPulse, noteOn.Channel)
	}
}

func TestTranslateFeedbackTrackButton(t *testing.T) {
	p := New()
	isOn := true
	state := control.State{ControlID: "track_1", IsOn: &isOn}

	msgs := p.TranslateFeedback("track_1", state)
	if len(msgs) != 1 {
		t.Fatalf("expected one feedback message, got %d", len(msgs))
	}
	noteOn, ok := msgs[0].Message.(plugin.NoteOn)
	if !ok {
		t.Fatalf("expected note on message, got %T", msgs[0].Message)
	}
	if noteOn.Note != trackButtonStart || noteOn.Velocity != singleLEDOn {
		t.Fatalf("unexpected track button message: %+v", noteOn)
	}
}

func TestParseIntroResponse(t *testing.T) {
	data := []byte{sysexManufacturer, sysexAllDevices, sysexProductID, cmdIntroResponse, 0x00, 0x09,
		10, 20, 30, 40, 50, 60, 70, 80, 90}
	positions, ok := parseIntroResponse(data)
	if !ok {
		t.Fatalf("expected successful parse")
	}
	if len(positions) != FaderCount || positions[0] != 10 || positions[8] != 90 {
		t.Fatalf("unexpected positions: %v", positions)
	}
}

func TestParseIntroResponseRejectsShortData(t *testing.T) {
	if _, ok := parseIntroResponse([]byte{0x00, 0x00}); ok {
		t.Fatalf("expected short data to be rejected")
	}
}
