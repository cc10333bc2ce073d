package plugin

import (
	"github.com/padgrid/padgrid/config"
	"github.com/padgrid/padgrid/control"
)

// Base supplies default implementations for every optional Plugin method,
// mirroring the reference plugin base class's default (often no-op)
// bodies. Concrete plugins embed Base and override what they need; Name,
// Capabilities, Init, GetControlDefinitions, and GetInputMappings have no
// useful default and must always be supplied by the embedding type.
type Base struct {
	InputMappings    []MIDIMapping
	FeedbackMappings []FeedbackMapping
	BankMappings     []BankMapping
	Banks            []control.BankDefinition
	Patterns         []string
}

// PortPatterns returns the configured auto-detection patterns, if any.
func (b Base) PortPatterns() []string { return b.Patterns }

// ConfigurePrograms defaults to a no-op; override for devices with
// persistent configuration support.
func (b Base) ConfigurePrograms(SendFunc, *config.ControllerConfig) error { return nil }

// Shutdown defaults to a no-op.
func (b Base) Shutdown(SendFunc) {}

// ValidateBankConfig defaults to accepting any bank configuration.
func (b Base) ValidateBankConfig(string, config.BankConfig, bool) error { return nil }

// GetFeedbackMappings returns the static feedback mapping table.
func (b Base) GetFeedbackMappings() []FeedbackMapping { return b.FeedbackMappings }

// GetBankDefinitions returns the static bank list.
func (b Base) GetBankDefinitions() []control.BankDefinition { return b.Banks }

// GetBankMappings returns the static bank mapping table.
func (b Base) GetBankMappings() []BankMapping { return b.BankMappings }

// ComputeControlState defaults to deferring to the control's own
// transition logic.
func (b Base) ComputeControlState(string, int, control.State) Decision { return DefaultDecision() }

// TranslateInput walks InputMappings in order and returns the first match.
func (b Base) TranslateInput(msg Message) (string, int, string, bool) {
	for _, m := range b.InputMappings {
		if !m.Matches(msg) {
			continue
		}
		value, ok := extractValue(msg)
		if !ok {
			continue
		}
		return m.ControlID, m.TransformValue(value), m.signalTypeOrDefault(), true
	}
	return "", 0, "", false
}

// TranslateFeedback walks FeedbackMappings for controlID and builds one
// message per match, with no inter-message delay. Override for plugins
// with real pacing or color requirements.
func (b Base) TranslateFeedback(controlID string, state control.State) []FeedbackDelay {
	var out []FeedbackDelay
	for _, m := range b.FeedbackMappings {
		if m.ControlID != controlID {
			continue
		}
		if msg, ok := buildFeedbackMessage(m, state); ok {
			out = append(out, FeedbackDelay{Message: msg})
		}
	}
	return out
}

// TranslateFeedbackBatch concatenates per-control TranslateFeedback results.
// Override for devices that support combining several updates into one
// message.
func (b Base) TranslateFeedbackBatch(updates []StateUpdate) []FeedbackDelay {
	var out []FeedbackDelay
	for _, u := range updates {
		out = append(out, b.TranslateFeedback(u.ControlID, u.State)...)
	}
	return out
}

// TranslateBankSwitch walks BankMappings and returns the first match.
func (b Base) TranslateBankSwitch(msg Message) (string, bool) {
	for _, m := range b.BankMappings {
		if m.Matches(msg) {
			return m.BankID, true
		}
	}
	return "", false
}

func extractValue(msg Message) (int, bool) {
	switch v := msg.(type) {
	case NoteOn:
		return int(v.Velocity), true
	case NoteOff:
		return int(v.Velocity), true
	case ControlChange:
		return int(v.Value), true
	case Polytouch:
		return int(v.Value), true
	case Aftertouch:
		return int(v.Value), true
	case PitchBend:
		return int((int(v.Pitch) + 8192) * 127 / 16383), true
	}
	return 0, false
}

func buildFeedbackMessage(m FeedbackMapping, state control.State) (Message, bool) {
	value := 0
	switch m.ValueSource {
	case SourceIsOn:
		if state.IsOn != nil && *state.IsOn {
			value = 127
		}
	case SourceColor:
		value = 0 // color feedback is device-specific; plugins override TranslateFeedback
	default:
		if state.Value != nil {
			value = *state.Value
		}
	}

	switch m.Type {
	case TypeNoteOn:
		return NoteOn{Channel: m.Channel, Note: m.Note, Velocity: uint8(value)}, true
	case TypeControlChange:
		return ControlChange{Channel: m.Channel, Control: m.Control, Value: uint8(value)}, true
	}
	return nil, false
}
