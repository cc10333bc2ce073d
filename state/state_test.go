package state

import (
	"testing"

	"github.com/padgrid/padgrid/control"
)

func newTestController() (*Controller, control.Control) {
	caps := control.ControllerCapabilities{}
	c := New(caps)
	def := control.Definition{ControlID: "pad_1", ControlType: control.Toggle, Capabilities: control.Capabilities{SupportsColor: true, ColorPalette: []string{"red", "green"}}}
	ctrl := control.NewToggle(def)
	c.RegisterControl(ctrl)
	return c, ctrl
}

func TestUpdateStateRecordsHistory(t *testing.T) {
	c, _ := newTestController()
	if _, err := c.UpdateState("pad_1", 127); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hist := c.GetHistory(0)
	if len(hist) != 1 || hist[0].ControlID != "pad_1" {
		t.Fatalf("expected one history entry, got %+v", hist)
	}
}

func TestUpdateStateUnknownControl(t *testing.T) {
	c, _ := newTestController()
	if _, err := c.UpdateState("missing", 1); err == nil {
		t.Fatalf("expected error for unknown control")
	}
}

func TestHistoryBounded(t *testing.T) {
	c, _ := newTestController()
	for i := 0; i < historyCap+10; i++ {
		c.UpdateState("pad_1", i%128)
	}
	hist := c.GetHistory(0)
	if len(hist) != historyCap {
		t.Fatalf("expected history capped at %d, got %d", historyCap, len(hist))
	}
}

func TestGetHistoryLimit(t *testing.T) {
	c, _ := newTestController()
	for i := 0; i < 5; i++ {
		c.UpdateState("pad_1", i)
	}
	hist := c.GetHistory(2)
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
}

func TestDiscoveredUndiscovered(t *testing.T) {
	c, _ := newTestController()
	if got := c.GetUndiscoveredControls(); len(got) != 1 {
		t.Fatalf("expected pad_1 undiscovered, got %v", got)
	}
	c.UpdateState("pad_1", 127)
	if got := c.GetDiscoveredControls(); len(got) != 1 {
		t.Fatalf("expected pad_1 discovered, got %v", got)
	}
}

func TestBankStateNoFeedbackIsNoop(t *testing.T) {
	bs := NewBankState(false)
	bs.SetActiveBank(control.Toggle, "bank_2")
	if got := bs.GetActiveBank(control.Toggle); got != "" {
		t.Fatalf("expected no-op, got %q", got)
	}
}

func TestBankStateWithFeedback(t *testing.T) {
	bs := NewBankState(true)
	bs.SetActiveBank(control.Toggle, "bank_2")
	if got := bs.GetActiveBank(control.Toggle); got != "bank_2" {
		t.Fatalf("expected bank_2, got %q", got)
	}
}

func TestValidateColor(t *testing.T) {
	c, _ := newTestController()
	if !c.ValidateColor("pad_1", "red") {
		t.Fatalf("expected red to be valid")
	}
	if c.ValidateColor("pad_1", "purple") {
		t.Fatalf("expected purple to be rejected")
	}
}

func TestSetControlStateOverridesDirectly(t *testing.T) {
	c, _ := newTestController()
	isOn := true
	s := control.State{ControlID: "pad_1", IsOn: &isOn}
	got, err := c.SetControlState("pad_1", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !*got.IsOn {
		t.Fatalf("expected override to stick")
	}
	cur, _ := c.GetState("pad_1")
	if !*cur.IsOn {
		t.Fatalf("expected stored state to reflect override")
	}
}
