// Package state provides thread-safe, centralized state tracking for all
// controls on a connected controller: progressive discovery, bounded
// change history, and bank tracking.
package state

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/padgrid/padgrid/control"
)

const historyCap = 1000

// BankState tracks the active bank per control type. Most controllers do
// not report bank changes over MIDI, so tracking is gated on the
// controller's SupportsBankFeedback capability; when unsupported, sets are
// silent no-ops and gets always return "".
type BankState struct {
	mu              sync.RWMutex
	supportsFeedback bool
	activeBanks     map[control.Type]string
}

// NewBankState constructs a BankState for a controller with the given
// bank-feedback capability.
func NewBankState(supportsFeedback bool) *BankState {
	return &BankState{
		supportsFeedback: supportsFeedback,
		activeBanks: map[control.Type]string{
			control.Toggle:     "",
			control.Momentary:  "",
			control.Continuous: "",
		},
	}
}

// SetActiveBank records the active bank for a control type. No-op if bank
// feedback is not supported.
func (b *BankState) SetActiveBank(t control.Type, bankID string) {
	if !b.supportsFeedback {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeBanks[t] = bankID
}

// GetActiveBank returns the active bank for a control type, or "" if bank
// tracking is unsupported or no bank has been recorded.
func (b *BankState) GetActiveBank(t control.Type) string {
	if !b.supportsFeedback {
		return ""
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.activeBanks[t]
}

// SupportsBankTracking reports whether bank tracking is available.
func (b *BankState) SupportsBankTracking() bool {
	return b.supportsFeedback
}

// HistoryEntry is one recorded state transition.
type HistoryEntry struct {
	ID        uuid.UUID
	ControlID string
	State     control.State
}

// Controller is the centralized, thread-safe registry of every control's
// definition and current state, plus bounded change history and bank
// tracking.
type Controller struct {
	mu           sync.RWMutex
	capabilities control.ControllerCapabilities
	controls     map[string]control.Control
	bankState    *BankState

	history    []HistoryEntry
	historyPos int
	historyLen int
}

// New constructs an empty state registry for a controller with the given
// capabilities.
func New(capabilities control.ControllerCapabilities) *Controller {
	return &Controller{
		capabilities: capabilities,
		controls:     map[string]control.Control{},
		bankState:    NewBankState(capabilities.SupportsBankFeedback),
		history:      make([]HistoryEntry, historyCap),
	}
}

// Capabilities returns the controller-level capabilities this state
// registry was built with.
func (c *Controller) Capabilities() control.ControllerCapabilities {
	return c.capabilities
}

// RegisterControl adds a control to the registry, keyed by its control ID.
func (c *Controller) RegisterControl(ctrl control.Control) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls[ctrl.Definition().ControlID] = ctrl
}

// GetControl returns the control for controlID, or nil if unregistered.
func (c *Controller) GetControl(controlID string) control.Control {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.controls[controlID]
}

func (c *Controller) appendHistory(controlID string, s control.State) {
	entry := HistoryEntry{ID: uuid.New(), ControlID: controlID, State: s}
	c.history[c.historyPos] = entry
	c.historyPos = (c.historyPos + 1) % historyCap
	if c.historyLen < historyCap {
		c.historyLen++
	}
}

// UpdateState feeds a raw MIDI value through the named control's normal
// state-transition logic, records it in history, and returns the new state.
func (c *Controller) UpdateState(controlID string, value int) (control.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctrl, ok := c.controls[controlID]
	if !ok {
		return control.State{}, fmt.Errorf("state: unknown control: %s", controlID)
	}

	newState := ctrl.UpdateFromMIDI(value)
	c.appendHistory(controlID, newState)
	return newState, nil
}

// SetControlState directly overrides a control's stored state, for use
// when a plugin computes state itself via its own logic rather than the
// control's default transition rules.
func (c *Controller) SetControlState(controlID string, newState control.State) (control.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctrl, ok := c.controls[controlID]
	if !ok {
		return control.State{}, fmt.Errorf("state: unknown control: %s", controlID)
	}

	ctrl.SetState(newState)
	c.appendHistory(controlID, newState)
	return newState, nil
}

// GetState returns the current state of controlID and whether it was found.
func (c *Controller) GetState(controlID string) (control.State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctrl, ok := c.controls[controlID]
	if !ok {
		return control.State{}, false
	}
	return ctrl.State(), true
}

// GetAllStates returns a snapshot of every registered control's current state.
func (c *Controller) GetAllStates() map[string]control.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]control.State, len(c.controls))
	for id, ctrl := range c.controls {
		out[id] = ctrl.State()
	}
	return out
}

// GetAllDefinitions returns a snapshot of every registered control's definition.
func (c *Controller) GetAllDefinitions() map[string]control.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]control.Definition, len(c.controls))
	for id, ctrl := range c.controls {
		out[id] = ctrl.Definition()
	}
	return out
}

// GetDiscoveredControls returns the IDs of controls whose state has been
// observed at least once.
func (c *Controller) GetDiscoveredControls() []string {
	return c.filterControls(func(ctrl control.Control) bool { return ctrl.State().IsDiscovered })
}

// GetUndiscoveredControls returns the IDs of controls with no observed
// state yet.
func (c *Controller) GetUndiscoveredControls() []string {
	return c.filterControls(func(ctrl control.Control) bool { return !ctrl.State().IsDiscovered })
}

// GetControlsByType returns the IDs of all controls of the given type.
func (c *Controller) GetControlsByType(t control.Type) []string {
	return c.filterControls(func(ctrl control.Control) bool { return ctrl.Definition().ControlType == t })
}

func (c *Controller) filterControls(pred func(control.Control) bool) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for id, ctrl := range c.controls {
		if pred(ctrl) {
			out = append(out, id)
		}
	}
	return out
}

// GetHistory returns recorded state transitions, oldest first. If limit is
// positive, only the most recent limit entries are returned.
func (c *Controller) GetHistory(limit int) []HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ordered := make([]HistoryEntry, c.historyLen)
	start := c.historyPos - c.historyLen
	if start < 0 {
		start += historyCap
	}
	for i := 0; i < c.historyLen; i++ {
		ordered[i] = c.history[(start+i)%historyCap]
	}

	if limit > 0 && limit < len(ordered) {
		return ordered[len(ordered)-limit:]
	}
	return ordered
}

// ClearHistory discards all recorded state transitions.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyPos = 0
	c.historyLen = 0
}

// SetActiveBank records the active bank for a control type (no-op if the
// controller does not support bank feedback).
func (c *Controller) SetActiveBank(t control.Type, bankID string) {
	c.bankState.SetActiveBank(t, bankID)
}

// GetActiveBank returns the active bank for a control type.
func (c *Controller) GetActiveBank(t control.Type) string {
	return c.bankState.GetActiveBank(t)
}

// IsBankTrackingSupported reports whether the controller reports bank
// changes over MIDI.
func (c *Controller) IsBankTrackingSupported() bool {
	return c.bankState.SupportsBankTracking()
}

// CanSetFeedback reports whether controlID supports receiving feedback.
func (c *Controller) CanSetFeedback(controlID string) bool {
	return c.checkCapability(controlID, func(cap control.Capabilities) bool { return cap.SupportsFeedback })
}

// CanSetValue reports whether controlID supports direct value setting
// (e.g. a motorized fader).
func (c *Controller) CanSetValue(controlID string) bool {
	return c.checkCapability(controlID, func(cap control.Capabilities) bool { return cap.SupportsValueSet })
}

// CanSetColor reports whether controlID supports color feedback.
func (c *Controller) CanSetColor(controlID string) bool {
	return c.checkCapability(controlID, func(cap control.Capabilities) bool { return cap.SupportsColor })
}

func (c *Controller) checkCapability(controlID string, pred func(control.Capabilities) bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctrl, ok := c.controls[controlID]
	if !ok {
		return false
	}
	return pred(ctrl.Definition().Capabilities)
}

// ValidateColor checks whether color is permitted for controlID's palette.
// A control with SupportsColor=false always rejects; a control with no
// declared palette accepts any color.
func (c *Controller) ValidateColor(controlID, colorName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctrl, ok := c.controls[controlID]
	if !ok {
		return false
	}
	cap := ctrl.Definition().Capabilities
	if !cap.SupportsColor {
		return false
	}
	if cap.ColorPalette == nil {
		return true
	}
	for _, p := range cap.ColorPalette {
		if p == colorName {
			return true
		}
	}
	return false
}
