package generic

import "testing"

func TestGetControlDefinitionsCoversFullRange(t *testing.T) {
	p := New()
	defs := p.GetControlDefinitions()
	if len(defs) != 256 {
		t.Fatalf("expected 256 controls (128 notes + 128 ccs), got %d", len(defs))
	}
}

func TestInputMappingsMatchAnyChannel(t *testing.T) {
	p := New()
	mappings := p.GetInputMappings()
	var note60, cc10 int
	for _, m := range mappings {
		if m.Channel != nil {
			t.Fatalf("expected channel-agnostic mapping, got %+v", m)
		}
		if m.Note != nil && *m.Note == 60 {
			note60++
		}
		if m.Control != nil && *m.Control == 10 {
			cc10++
		}
	}
	if note60 != 2 {
		t.Fatalf("expected note-on/off pair for note 60, got %d", note60)
	}
	if cc10 != 1 {
		t.Fatalf("expected single cc mapping for cc 10, got %d", cc10)
	}
}

func TestNameAndCapabilities(t *testing.T) {
	p := New()
	if p.Name() == "" {
		t.Fatalf("expected non-empty name")
	}
	if p.Capabilities().GridRows != 0 {
		t.Fatalf("expected no grid layout for a flat note/cc controller")
	}
}
