package callback

import (
	"testing"

	"github.com/padgrid/padgrid/control"
)

func TestDispatchOrderMostToLeastSpecific(t *testing.T) {
	m := New()
	var order []string

	m.RegisterGlobal(func(id string, s control.State) { order = append(order, "global") }, "")
	m.RegisterType(control.Toggle, func(id string, s control.State) { order = append(order, "type") }, "")
	m.RegisterCategory("pad", func(id string, s control.State) { order = append(order, "category") }, "")
	m.RegisterControl("pad_1", func(s control.State) { order = append(order, "control") }, "")

	m.OnControlChange("pad_1", control.State{ControlID: "pad_1"}, control.Toggle, "default", "pad")

	expected := []string{"control", "category", "type", "global"}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}
	for i, e := range expected {
		if order[i] != e {
			t.Fatalf("expected order %v, got %v", expected, order)
		}
	}
}

func TestSignalTypeFiltering(t *testing.T) {
	m := New()
	fired := false
	m.RegisterControl("pad_1", func(s control.State) { fired = true }, "cc")

	m.OnControlChange("pad_1", control.State{}, control.Toggle, "note", "")
	if fired {
		t.Fatalf("callback should not fire for mismatched signal type")
	}

	m.OnControlChange("pad_1", control.State{}, control.Toggle, "cc", "")
	if !fired {
		t.Fatalf("callback should fire for matching signal type")
	}
}

func TestPanicIsolated(t *testing.T) {
	m := New()
	secondFired := false
	m.RegisterGlobal(func(id string, s control.State) { panic("boom") }, "")
	m.RegisterGlobal(func(id string, s control.State) { secondFired = true }, "")

	m.OnControlChange("pad_1", control.State{}, control.Toggle, "default", "")
	if !secondFired {
		t.Fatalf("second callback should still fire after first panics")
	}
}

func TestBankDispatch(t *testing.T) {
	m := New()
	var got string
	m.RegisterBank(control.Toggle, func(bankID string) { got = bankID })
	m.OnBankChange(control.Toggle, "bank_2")
	if got != "bank_2" {
		t.Fatalf("expected bank_2, got %q", got)
	}
}

func TestClearAll(t *testing.T) {
	m := New()
	m.RegisterGlobal(func(id string, s control.State) {}, "")
	m.RegisterBank(control.Toggle, func(string) {})
	m.ClearAll()
	counts := m.GetCallbackCounts()
	if counts.Global != 0 || counts.Bank != 0 {
		t.Fatalf("expected zero counts after ClearAll, got %+v", counts)
	}
}

func TestGetCallbackCounts(t *testing.T) {
	m := New()
	m.RegisterGlobal(func(id string, s control.State) {}, "")
	m.RegisterControl("pad_1", func(s control.State) {}, "")
	m.RegisterType(control.Toggle, func(id string, s control.State) {}, "")
	counts := m.GetCallbackCounts()
	if counts.Global != 1 || counts.Control != 1 || counts.Type != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestReentrantRegistrationDoesNotDeadlock(t *testing.T) {
	m := New()
	m.RegisterGlobal(func(id string, s control.State) {
		m.RegisterGlobal(func(id string, s control.State) {}, "")
	}, "")
	m.OnControlChange("pad_1", control.State{}, control.Toggle, "default", "")
}
