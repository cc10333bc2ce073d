// Package plugin defines the device plugin contract (C7): the interface
// every supported controller implements, the default MIDI mapping tables
// plugins can rely on instead of hand-writing translation logic, and the
// tagged-variant Message type used throughout.
package plugin

import (
	"context"
	"time"

	"github.com/padgrid/padgrid/config"
	"github.com/padgrid/padgrid/control"
)

// MIDIMapping maps one inbound MIDI message pattern to a control ID.
type MIDIMapping struct {
	Type    MessageType
	Channel *uint8 // nil = any channel
	Note    *uint8 // for note/polytouch messages
	Control *uint8 // for CC messages

	ControlID string

	Invert bool
	Scale  *float64

	SignalType string // defaults to "default" when empty
}

// Matches reports whether msg satisfies this mapping's pattern.
func (m MIDIMapping) Matches(msg Message) bool {
	if msg.messageType() != m.Type {
		return false
	}
	switch v := msg.(type) {
	case NoteOn:
		return matchChNote(m, v.Channel, v.Note)
	case NoteOff:
		return matchChNote(m, v.Channel, v.Note)
	case Polytouch:
		return matchChNote(m, v.Channel, v.Note)
	case ControlChange:
		if m.Channel != nil && *m.Channel != v.Channel {
			return false
		}
		if m.Control != nil && *m.Control != v.Control {
			return false
		}
		return true
	case ProgramChange:
		return m.Channel == nil || *m.Channel == v.Channel
	case Aftertouch:
		return m.Channel == nil || *m.Channel == v.Channel
	case PitchBend:
		return m.Channel == nil || *m.Channel == v.Channel
	case SysEx:
		return true
	}
	return false
}

func matchChNote(m MIDIMapping, channel, note uint8) bool {
	if m.Channel != nil && *m.Channel != channel {
		return false
	}
	if m.Note != nil && *m.Note != note {
		return false
	}
	return true
}

// TransformValue applies Invert/Scale to a raw extracted value, clamped to
// the MIDI 0-127 range.
func (m MIDIMapping) TransformValue(value int) int {
	result := value
	if m.Invert {
		result = 127 - result
	}
	if m.Scale != nil {
		result = int(float64(result) * *m.Scale)
	}
	if result < 0 {
		result = 0
	}
	if result > 127 {
		result = 127
	}
	return result
}

func (m MIDIMapping) signalTypeOrDefault() string {
	if m.SignalType == "" {
		return "default"
	}
	return m.SignalType
}

// ValueSource selects which field of a control's state a FeedbackMapping draws from.
type ValueSource string

const (
	SourceValue ValueSource = "value"
	SourceIsOn  ValueSource = "is_on"
	SourceColor ValueSource = "color"
)

// FeedbackMapping maps a control's state back to an outbound MIDI message
// template.
type FeedbackMapping struct {
	ControlID string

	Type    MessageType
	Channel uint8
	Note    uint8
	Control uint8

	ValueSource ValueSource
}

// BankMapping maps an inbound MIDI message pattern to a bank switch event.
type BankMapping struct {
	Type    MessageType
	Channel *uint8
	Note    *uint8
	Control *uint8
	Value   *uint8

	BankID string
}

// Matches reports whether msg triggers this bank switch.
func (m BankMapping) Matches(msg Message) bool {
	if msg.messageType() != m.Type {
		return false
	}
	var channel, note, ctrl uint8
	var value *uint8
	switch v := msg.(type) {
	case NoteOn:
		channel, note, value = v.Channel, v.Note, &v.Velocity
	case NoteOff:
		channel, note, value = v.Channel, v.Note, &v.Velocity
	case ControlChange:
		channel, ctrl, value = v.Channel, v.Control, &v.Value
	default:
		return false
	}
	if m.Channel != nil && *m.Channel != channel {
		return false
	}
	if m.Note != nil && *m.Note != note {
		return false
	}
	if m.Control != nil && *m.Control != ctrl {
		return false
	}
	if m.Value != nil && (value == nil || *m.Value != *value) {
		return false
	}
	return true
}

// Decision is compute_control_state's result: a plugin either lets the
// orchestrator fall back to the control's own transition logic (Default),
// supplies a pre-computed state to use instead (Replace), or suppresses
// the update entirely, including its callback dispatch (Suppress).
type Decision struct {
	kind  decisionKind
	state control.State
}

type decisionKind int

const (
	kindDefault decisionKind = iota
	kindReplace
	kindSuppress
)

// DefaultDecision lets the control compute its own new state.
func DefaultDecision() Decision { return Decision{kind: kindDefault} }

// ReplaceDecision supplies a pre-computed state to store in place of the
// control's own transition logic, and still triggers callbacks.
func ReplaceDecision(s control.State) Decision { return Decision{kind: kindReplace, state: s} }

// SuppressDecision discards this MIDI event: no state change, no callback.
func SuppressDecision() Decision { return Decision{kind: kindSuppress} }

// IsDefault reports whether the orchestrator should use the control's own
// transition logic.
func (d Decision) IsDefault() bool { return d.kind == kindDefault }

// IsSuppressed reports whether this event should be dropped entirely.
func (d Decision) IsSuppressed() bool { return d.kind == kindSuppress }

// Replacement returns the plugin-computed state and true when this is a
// Replace decision.
func (d Decision) Replacement() (control.State, bool) { return d.state, d.kind == kindReplace }

// SendFunc sends one MIDI message to the device.
type SendFunc func(Message) bool

// ReceiveFunc blocks up to timeout for the next inbound MIDI message,
// bypassing normal callback dispatch. Used during initialization handshakes.
type ReceiveFunc func(ctx context.Context, timeout time.Duration) (Message, bool)

// FeedbackDelay pairs a feedback message with the pacing delay that must
// follow it before the next message is sent.
type FeedbackDelay struct {
	Message Message
	Delay   time.Duration
}

// StateUpdate is one control's requested state in a batch feedback call.
type StateUpdate struct {
	ControlID string
	State     control.State
}

// Plugin is the full device plugin contract every supported controller
// implements.
type Plugin interface {
	// Name identifies the controller this plugin drives.
	Name() string

	// PortPatterns lists substrings to match against MIDI port names for
	// auto-detection. May be empty.
	PortPatterns() []string

	// Capabilities declares controller-level capabilities.
	Capabilities() control.ControllerCapabilities

	// Init brings the device to a known state: clears LEDs, queries
	// current hardware state, and returns any values discovered during
	// that process (e.g. fader positions learned from an intro handshake),
	// keyed by control ID.
	Init(ctx context.Context, send SendFunc, receive ReceiveFunc) (discovered map[string]int, err error)

	// ConfigurePrograms writes persistent configuration into device memory.
	// Only meaningful when Capabilities().SupportsPersistentConfig is true.
	ConfigurePrograms(send SendFunc, cfg *config.ControllerConfig) error

	// Shutdown runs cleanup on disconnect. May be a no-op.
	Shutdown(send SendFunc)

	// ValidateBankConfig checks a bank's configuration against
	// hardware-specific constraints.
	ValidateBankConfig(bankID string, bank config.BankConfig, strictMode bool) error

	// GetControlDefinitions returns every control this device exposes.
	GetControlDefinitions() []control.Definition

	// GetInputMappings returns the MIDI-to-control mapping table.
	GetInputMappings() []MIDIMapping

	// GetFeedbackMappings returns the control-to-MIDI mapping table. May
	// be empty for plugins that override TranslateFeedback directly.
	GetFeedbackMappings() []FeedbackMapping

	// GetBankDefinitions returns this device's banks. Empty if bank-less.
	GetBankDefinitions() []control.BankDefinition

	// GetBankMappings returns the MIDI patterns that trigger bank switches.
	GetBankMappings() []BankMapping

	// TranslateInput converts an inbound message to (controlID, value,
	// signalType), or ok=false if no mapping matches.
	TranslateInput(msg Message) (controlID string, value int, signalType string, ok bool)

	// TranslateFeedback converts a control's state into outbound MIDI
	// messages paced by per-message delays.
	TranslateFeedback(controlID string, state control.State) []FeedbackDelay

	// TranslateFeedbackBatch converts several controls' states into
	// outbound messages in one pass, letting devices that support combined
	// updates (e.g. one SysEx block for an entire pad grid) emit a single
	// message instead of one per control. The default implementation just
	// concatenates per-control TranslateFeedback results.
	TranslateFeedbackBatch(updates []StateUpdate) []FeedbackDelay

	// TranslateBankSwitch returns the bank ID this message switches to, if any.
	TranslateBankSwitch(msg Message) (bankID string, ok bool)

	// ComputeControlState lets a plugin override how a control's state is
	// derived from a raw MIDI value, instead of the control's own
	// transition logic.
	ComputeControlState(controlID string, value int, current control.State) Decision
}
