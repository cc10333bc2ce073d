package control

import (
	"sync"
	"time"
)

// Control is the behavior contract for a single physical control: it
// tracks discovery and computes new state from inbound MIDI values.
type Control interface {
	Definition() Definition
	State() State
	UpdateFromMIDI(value int) State
	SetState(State)
}

// base implements the shared locking, discovery-tracking, and state storage
// every concrete control type needs; concrete types embed it and supply
// computeNewState.
type base struct {
	mu         sync.RWMutex
	definition Definition
	state      State
	compute    func(value int) State
}

func (b *base) Definition() Definition {
	return b.definition
}

func (b *base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// SetState directly overrides the control's stored state, bypassing the
// normal compute path. Used when a plugin computes state itself rather
// than relying on the control's default transition logic.
func (b *base) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Previous == nil {
		prev := b.state
		prev.Previous = nil
		s.Previous = &prev
	}
	b.state = s
}

// UpdateFromMIDI computes the control-specific new state, stamps discovery
// tracking exactly once, and stores the result.
func (b *base) UpdateFromMIDI(value int) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	firstDiscoveredAt := b.state.FirstDiscoveredAt
	if !b.state.IsDiscovered {
		firstDiscoveredAt = time.Now()
	}

	prev := b.state
	prev.Previous = nil

	newState := b.compute(value)
	newState.IsDiscovered = true
	newState.FirstDiscoveredAt = firstDiscoveredAt
	newState.Previous = &prev

	b.state = newState
	return b.state
}

func boolPtr(v bool) *bool       { return &v }
func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

// NewToggle constructs a Toggle control: it flips its on/off state on
// press (value > 0) and ignores release.
func NewToggle(def Definition) Control {
	b := &base{definition: def}
	b.state = State{
		ControlID: def.ControlID,
		IsOn:      boolPtr(false),
		Color:     def.OffColor,
	}
	b.compute = func(value int) State {
		wasOn := b.state.IsOn != nil && *b.state.IsOn
		newIsOn := wasOn
		if value > 0 {
			newIsOn = !wasOn
		}

		color := def.OffColor
		ledMode := def.OffLEDMode
		if newIsOn {
			color = def.OnColor
			ledMode = def.OnLEDMode
		}

		return State{
			ControlID: def.ControlID,
			Timestamp: time.Now(),
			IsOn:      boolPtr(newIsOn),
			Value:     intPtr(value),
			Color:     color,
			LEDMode:   ledMode,
		}
	}
	return b
}

// NewMomentary constructs a Momentary control: each update is a trigger
// event with no persistent memory of prior state beyond on/off display.
func NewMomentary(def Definition) Control {
	b := &base{definition: def}
	b.state = State{
		ControlID: def.ControlID,
		IsOn:      boolPtr(false),
		Color:     def.OffColor,
	}
	b.compute = func(value int) State {
		triggered := value > 0
		color := def.OffColor
		ledMode := def.OffLEDMode
		if triggered {
			color = def.OnColor
			ledMode = def.OnLEDMode
		}
		return State{
			ControlID: def.ControlID,
			Timestamp: time.Now(),
			Value:     intPtr(value),
			IsOn:      boolPtr(triggered),
			Color:     color,
			LEDMode:   ledMode,
		}
	}
	return b
}

// NewContinuous constructs a Continuous control: it tracks both the raw
// MIDI value and its normalized [0,1] position within [MinValue,MaxValue].
func NewContinuous(def Definition) Control {
	b := &base{definition: def}
	b.state = State{ControlID: def.ControlID}
	b.compute = func(value int) State {
		span := def.MaxValue - def.MinValue
		normalized := 0.0
		if span > 0 {
			normalized = float64(value-def.MinValue) / float64(span)
		}
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 1 {
			normalized = 1
		}
		return State{
			ControlID:       def.ControlID,
			Timestamp:       time.Now(),
			Value:           intPtr(value),
			NormalizedValue: floatPtr(normalized),
		}
	}
	return b
}
