// Package control defines the core control type model: control types,
// capability declarations, definitions, and state snapshots shared by
// every device plugin and the orchestrator.
package control

import (
	"fmt"
	"time"
)

// Type identifies the fundamental behavior of a physical control.
type Type string

const (
	Toggle     Type = "toggle"
	Momentary  Type = "momentary"
	Continuous Type = "continuous"
)

// AnimationType is an LED animation pattern a device may support.
type AnimationType string

const (
	Solid AnimationType = "solid"
	Blink AnimationType = "blink"
	Pulse AnimationType = "pulse"
)

// LEDMode pairs an animation with an optional frequency hint in pulses per second.
type LEDMode struct {
	Animation AnimationType
	Frequency *int
}

// ColorMode describes how a control's LED accepts color.
type ColorMode string

const (
	ColorModeRGB      ColorMode = "rgb"
	ColorModeVelocity ColorMode = "velocity"
	ColorModeIndexed  ColorMode = "indexed"
	ColorModeNone     ColorMode = "none"
)

// Capabilities declares the hardware feedback/value-setting abilities of a
// single control. Most MIDI controls can send input but cannot receive
// state updates; these flags describe the asymmetry precisely.
type Capabilities struct {
	SupportsFeedback    bool
	RequiresFeedback    bool
	SupportsLED         bool
	SupportsColor       bool
	ColorMode           ColorMode
	ColorPalette        []string
	SupportedLEDModes   []LEDMode
	SupportsValueSet    bool
	RequiresDiscovery   bool
}

// TypeModes defines which control types a single physical control supports
// and, if more than one, the plugin's recommended default.
type TypeModes struct {
	SupportedTypes       []Type
	DefaultType          Type
	RequiresHardwareSync bool
}

// Validate checks the invariants pydantic enforced on the Python model.
func (m TypeModes) Validate() error {
	if len(m.SupportedTypes) == 0 {
		return fmt.Errorf("control: type modes: supported_types cannot be empty")
	}
	found := false
	for _, t := range m.SupportedTypes {
		if t == m.DefaultType {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("control: type modes: default_type %q must be in supported_types", m.DefaultType)
	}
	return nil
}

// IndexingScheme describes how a controller's control IDs are laid out.
type IndexingScheme string

const (
	Indexing1D IndexingScheme = "1d"
	Indexing2D IndexingScheme = "2d"
)

// ControllerCapabilities declares capabilities that apply to an entire
// controller rather than an individual control.
type ControllerCapabilities struct {
	SupportsBankFeedback          bool
	IndexingScheme                IndexingScheme
	GridRows                      int
	GridCols                      int
	SupportsPersistentConfig      bool
	PostInitDelay                 time.Duration
	FeedbackMessageDelay          time.Duration
}

// BankDefinition describes one bank of controls on a bank-switchable controller.
type BankDefinition struct {
	BankID      string
	ControlType Type
	DisplayName string
}

// Definition is the immutable metadata describing a single physical control.
type Definition struct {
	ControlID    string
	ControlType  Type
	Category     string
	Capabilities Capabilities
	BankID       string
	DisplayName  string

	MinValue int
	MaxValue int

	TypeModes *TypeModes

	SignalTypes []string

	OnColor  string
	OffColor string

	OnLEDMode  *LEDMode
	OffLEDMode *LEDMode
}

// Validate enforces that ControlType matches TypeModes.DefaultType when both
// are present, mirroring the pydantic model validator.
func (d Definition) Validate() error {
	if d.TypeModes != nil {
		if err := d.TypeModes.Validate(); err != nil {
			return err
		}
		if d.ControlType != d.TypeModes.DefaultType {
			return fmt.Errorf("control: definition %q: control_type %q must match type_modes.default_type %q",
				d.ControlID, d.ControlType, d.TypeModes.DefaultType)
		}
	}
	return nil
}

// State is an immutable snapshot of a control's value at a point in time.
// Callers must never mutate a State in place; every transition produces a
// new value.
type State struct {
	ControlID string
	Timestamp time.Time

	IsDiscovered      bool
	FirstDiscoveredAt time.Time

	Value           *int
	NormalizedValue *float64
	IsOn            *bool
	Color           string
	LEDMode         *LEDMode

	// Previous is the control's state immediately before this one, so
	// callbacks can see both sides of a transition in one dispatch. Never
	// chained beyond one level back.
	Previous *State
}

// CapabilityError is returned when an operation is attempted that the
// controller or control does not support, and strict mode is enabled.
type CapabilityError struct {
	Op string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("control: unsupported operation: %s", e.Op)
}
