package control

import "testing"

func TestToggleFlipsOnPressOnly(t *testing.T) {
	def := Definition{ControlID: "pad_1", ControlType: Toggle, OnColor: "red", OffColor: "off"}
	c := NewToggle(def)

	s := c.UpdateFromMIDI(127)
	if !*s.IsOn {
		t.Fatalf("expected on after press")
	}
	if s.Color != "red" {
		t.Fatalf("expected on_color, got %s", s.Color)
	}

	s = c.UpdateFromMIDI(0)
	if !*s.IsOn {
		t.Fatalf("release must not change toggle state")
	}

	s = c.UpdateFromMIDI(127)
	if *s.IsOn {
		t.Fatalf("second press should flip back off")
	}
}

func TestToggleDiscoveryStampedOnce(t *testing.T) {
	def := Definition{ControlID: "pad_1"}
	c := NewToggle(def)

	s1 := c.UpdateFromMIDI(127)
	if !s1.IsDiscovered || s1.FirstDiscoveredAt.IsZero() {
		t.Fatalf("expected discovery to be stamped")
	}
	first := s1.FirstDiscoveredAt

	s2 := c.UpdateFromMIDI(0)
	if !s2.FirstDiscoveredAt.Equal(first) {
		t.Fatalf("first_discovered_at must not change after first update")
	}
}

func TestMomentaryTracksPressRelease(t *testing.T) {
	def := Definition{ControlID: "btn_1", OnColor: "green", OffColor: "off"}
	c := NewMomentary(def)

	s := c.UpdateFromMIDI(100)
	if !*s.IsOn || s.Color != "green" {
		t.Fatalf("expected on+green on press")
	}

	s = c.UpdateFromMIDI(0)
	if *s.IsOn || s.Color != "off" {
		t.Fatalf("expected off on release")
	}
}

func TestContinuousNormalizes(t *testing.T) {
	def := Definition{ControlID: "fader_1", MinValue: 0, MaxValue: 127}
	c := NewContinuous(def)

	s := c.UpdateFromMIDI(127)
	if s.Value == nil || *s.Value != 127 {
		t.Fatalf("expected raw value 127")
	}
	if s.NormalizedValue == nil || *s.NormalizedValue != 1.0 {
		t.Fatalf("expected normalized 1.0, got %v", s.NormalizedValue)
	}

	s = c.UpdateFromMIDI(0)
	if *s.NormalizedValue != 0.0 {
		t.Fatalf("expected normalized 0.0, got %v", *s.NormalizedValue)
	}
}

func TestContinuousZeroSpanDoesNotPanic(t *testing.T) {
	def := Definition{ControlID: "fixed", MinValue: 10, MaxValue: 10}
	c := NewContinuous(def)
	s := c.UpdateFromMIDI(10)
	if *s.NormalizedValue != 0.0 {
		t.Fatalf("expected normalized 0.0 for zero span, got %v", *s.NormalizedValue)
	}
}

func TestDefinitionValidateTypeModesMismatch(t *testing.T) {
	def := Definition{
		ControlID:   "pad_1",
		ControlType: Toggle,
		TypeModes: &TypeModes{
			SupportedTypes: []Type{Momentary, Continuous},
			DefaultType:    Momentary,
		},
	}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected validation error for control_type/type_modes mismatch")
	}
}

func TestTypeModesValidateEmptySupportedTypes(t *testing.T) {
	m := TypeModes{SupportedTypes: nil, DefaultType: Toggle}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for empty supported_types")
	}
}
