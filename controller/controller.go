// Package controller provides Controller, the user-facing API that wires a
// device plugin, its MIDI transport, capability-aware state tracking, and
// callback dispatch into one coherent object.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/padgrid/padgrid/callback"
	"github.com/padgrid/padgrid/config"
	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/internal/logx"
	"github.com/padgrid/padgrid/midiio"
	"github.com/padgrid/padgrid/plugin"
	"github.com/padgrid/padgrid/registry"
	"github.com/padgrid/padgrid/state"
)

var log = logx.Get("controller")

const postConfigureDelay = 200 * time.Millisecond

// StateRequest describes a programmatic feedback update for one control.
// Fields left nil are not applied; this mirrors set_state's **kwargs, where
// an absent key is distinct from an explicit zero value.
type StateRequest struct {
	IsOn    *bool
	Value   *int
	Color   *string
	LEDMode *control.LEDMode
}

// BatchEntry pairs a control ID with its requested state for SetStates.
type BatchEntry struct {
	ControlID string
	Request   StateRequest
}

// Controller is the primary entry point for driving a MIDI controller: it
// owns the plugin, MIDI transport, state registry, and callback dispatch.
type Controller struct {
	plugin     plugin.Plugin
	strictMode bool
	connected  bool

	controllerConfig *config.ControllerConfig
	configResolver   *config.Resolver

	state     *state.Controller
	callbacks *callback.Manager
	midi      *midiio.Interface
}

// New constructs a Controller bound to p. cfg may be nil to use plugin
// defaults throughout. In strict mode, unsupported operations (including
// bank configurations the plugin rejects) return errors instead of being
// logged and ignored.
func New(p plugin.Plugin, cfg *config.ControllerConfig, strictMode bool) (*Controller, error) {
	if p == nil {
		return nil, fmt.Errorf("controller: plugin must not be nil")
	}

	if cfg != nil && cfg.IsBankAware() {
		for bankID, bank := range cfg.Banks {
			if err := p.ValidateBankConfig(bankID, bank, strictMode); err != nil {
				return nil, err
			}
		}
	}

	return &Controller{
		plugin:           p,
		strictMode:       strictMode,
		controllerConfig: cfg,
		configResolver:   config.NewResolver(cfg),
		callbacks:        callback.New(),
	}, nil
}

// Detect auto-detects a plugin by matching available MIDI port names
// against every registered plugin's port patterns.
func Detect(r *registry.Registry, cfg *config.ControllerConfig, strictMode bool) (*Controller, error) {
	p := r.Detect("")
	if p == nil {
		return nil, fmt.Errorf("controller: no controller auto-detected")
	}
	return New(p, cfg, strictMode)
}

// Plugin returns the bound plugin.
func (c *Controller) Plugin() plugin.Plugin { return c.plugin }

// IsConnected reports whether Connect has completed successfully.
func (c *Controller) IsConnected() bool { return c.connected }

// Capabilities returns the connected controller's capabilities, or the zero
// value if not yet connected.
func (c *Controller) Capabilities() control.ControllerCapabilities {
	if c.state == nil {
		return control.ControllerCapabilities{}
	}
	return c.state.Capabilities()
}

// Connect opens the MIDI ports (auto-detected from the plugin's port
// patterns when empty), brings the device to a known state via the
// plugin's Init hook, programs persistent configuration when supported,
// and lights every control with a configured off color.
func (c *Controller) Connect(ctx context.Context, inputPort, outputPort string) error {
	if c.connected {
		log.Warn().Msg("already connected")
		return nil
	}

	if inputPort == "" || outputPort == "" {
		foundIn, foundOut := registry.FindPorts(c.plugin)
		if inputPort == "" {
			inputPort = foundIn
		}
		if outputPort == "" {
			outputPort = foundOut
		}
		if inputPort == "" && outputPort == "" {
			return fmt.Errorf("controller: could not find MIDI ports for plugin %q", c.plugin.Name())
		}
	}

	c.midi = midiio.New(c.onRawMIDIMessage)
	if err := c.midi.Connect(inputPort, outputPort); err != nil {
		c.midi = nil
		return err
	}

	capabilities := c.plugin.Capabilities()
	c.state = state.New(capabilities)

	for _, def := range c.plugin.GetControlDefinitions() {
		ctrl, err := c.createControl(def)
		if err != nil {
			c.midi.Disconnect()
			c.midi = nil
			c.state = nil
			return err
		}
		c.state.RegisterControl(ctrl)
	}

	log.Info().Str("plugin", c.plugin.Name()).Msg("initializing controller")
	discovered, err := c.plugin.Init(ctx, c.sendMessage, c.receiveMessage)
	if err != nil {
		c.midi.Disconnect()
		c.midi = nil
		c.state = nil
		return fmt.Errorf("controller: plugin init: %w", err)
	}
	for controlID, value := range discovered {
		if c.state.GetControl(controlID) != nil {
			if _, err := c.state.UpdateState(controlID, value); err != nil {
				log.Debug().Err(err).Str("control", controlID).Msg("failed to apply discovered value")
			}
		}
	}

	if c.controllerConfig != nil && capabilities.SupportsPersistentConfig {
		log.Info().Msg("programming persistent configuration into device")
		if err := c.plugin.ConfigurePrograms(c.sendMessage, c.controllerConfig); err != nil {
			log.Error().Err(err).Msg("failed to program persistent configuration")
		}
		time.Sleep(postConfigureDelay)
	}

	if capabilities.PostInitDelay > 0 {
		log.Debug().Dur("delay", capabilities.PostInitDelay).Msg("waiting for device init to complete")
		time.Sleep(capabilities.PostInitDelay)
	}

	c.lightInitialOffColors(capabilities.FeedbackMessageDelay)

	c.connected = true
	log.Info().Str("plugin", c.plugin.Name()).Str("input", inputPort).Str("output", outputPort).Msg("connected")
	return nil
}

func (c *Controller) lightInitialOffColors(feedbackDelay time.Duration) {
	log.Debug().Msg("setting initial LED states from configuration")
	for _, def := range c.plugin.GetControlDefinitions() {
		ctrl := c.state.GetControl(def.ControlID)
		if ctrl == nil {
			continue
		}
		resolved := ctrl.Definition()
		if !resolved.Capabilities.SupportsFeedback || resolved.OffColor == "" {
			continue
		}

		off := false
		zero := 0
		feedbackState := control.State{
			ControlID: resolved.ControlID,
			IsOn:      &off,
			Value:     &zero,
			Color:     resolved.OffColor,
			LEDMode:   resolved.OffLEDMode,
		}
		c.sendFeedback(c.plugin.TranslateFeedback(resolved.ControlID, feedbackState), feedbackDelay)
	}
}

// Disconnect runs the plugin's shutdown hook and closes the MIDI ports.
func (c *Controller) Disconnect() {
	if !c.connected {
		return
	}

	if c.plugin != nil && c.midi != nil {
		log.Info().Str("plugin", c.plugin.Name()).Msg("shutting down controller")
		c.plugin.Shutdown(c.sendMessage)
	}

	if c.midi != nil {
		c.midi.Disconnect()
		c.midi = nil
	}

	c.connected = false
	log.Info().Msg("controller disconnected")
}

// Reconfigure reprograms the device's persistent configuration, replacing
// the active configuration if a new one is given.
func (c *Controller) Reconfigure(cfg *config.ControllerConfig) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	if !c.state.Capabilities().SupportsPersistentConfig {
		return fmt.Errorf("controller: plugin %q does not support persistent configuration", c.plugin.Name())
	}

	if cfg != nil {
		c.controllerConfig = cfg
		c.configResolver = config.NewResolver(cfg)
	}
	use := cfg
	if use == nil {
		use = c.controllerConfig
	}
	if use == nil {
		log.Warn().Msg("no configuration available to program")
		return nil
	}

	log.Info().Msg("reprogramming device with new configuration")
	if err := c.plugin.ConfigurePrograms(c.sendMessage, use); err != nil {
		return err
	}
	log.Info().Msg("device reconfiguration complete")
	return nil
}

// GetState returns a control's current state.
func (c *Controller) GetState(controlID string) (control.State, bool) {
	if err := c.ensureConnected(); err != nil {
		return control.State{}, false
	}
	return c.state.GetState(controlID)
}

// GetAllStates returns every control's current state.
func (c *Controller) GetAllStates() map[string]control.State {
	if err := c.ensureConnected(); err != nil {
		return nil
	}
	return c.state.GetAllStates()
}

// GetDiscoveredControls returns IDs of controls with an observed state.
func (c *Controller) GetDiscoveredControls() []string {
	if err := c.ensureConnected(); err != nil {
		return nil
	}
	return c.state.GetDiscoveredControls()
}

// GetUndiscoveredControls returns IDs of controls with no observed state yet.
func (c *Controller) GetUndiscoveredControls() []string {
	if err := c.ensureConnected(); err != nil {
		return nil
	}
	return c.state.GetUndiscoveredControls()
}

// GetControls returns every control definition the plugin exposes.
func (c *Controller) GetControls() []control.Definition {
	if err := c.ensureConnected(); err != nil || c.plugin == nil {
		return nil
	}
	return c.plugin.GetControlDefinitions()
}

// SetState programmatically sets a control's feedback state, validating
// capabilities first. In strict mode, an unsupported operation returns a
// *control.CapabilityError; in permissive mode it is logged and silently
// skipped.
func (c *Controller) SetState(controlID string, req StateRequest) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	ctrl := c.state.GetControl(controlID)
	if ctrl == nil {
		return fmt.Errorf("controller: unknown control: %s", controlID)
	}
	caps := ctrl.Definition().Capabilities

	if !caps.SupportsFeedback {
		return c.handleUnsupportedOperation(fmt.Sprintf("control %q does not support feedback", controlID))
	}
	if req.Value != nil && !caps.SupportsValueSet {
		return c.handleUnsupportedOperation(fmt.Sprintf("control %q does not support value setting (not motorized)", controlID))
	}
	if req.Color != nil {
		if !caps.SupportsColor {
			return c.handleUnsupportedOperation(fmt.Sprintf("control %q does not support color", controlID))
		}
		if !c.state.ValidateColor(controlID, *req.Color) {
			return c.handleUnsupportedOperation(fmt.Sprintf(
				"color %q not in palette %v for control %q", *req.Color, caps.ColorPalette, controlID))
		}
	}

	feedbackState := c.buildFeedbackState(ctrl, req)
	delay := c.state.Capabilities().FeedbackMessageDelay
	c.sendFeedback(c.plugin.TranslateFeedback(controlID, feedbackState), delay)
	return nil
}

// CanSetState reports whether SetState would succeed, without raising or
// logging anything.
func (c *Controller) CanSetState(controlID string, req StateRequest) bool {
	if !c.connected || c.state == nil {
		return false
	}
	ctrl := c.state.GetControl(controlID)
	if ctrl == nil {
		return false
	}
	caps := ctrl.Definition().Capabilities
	if !caps.SupportsFeedback {
		return false
	}
	if req.Value != nil && !caps.SupportsValueSet {
		return false
	}
	if req.Color != nil {
		if !caps.SupportsColor {
			return false
		}
		if !c.state.ValidateColor(controlID, *req.Color) {
			return false
		}
	}
	return true
}

// SetStates applies several feedback updates in one batch, validating every
// entry before sending anything (fail-fast is relaxed to skip-and-continue
// for per-entry capability failures, matching SetState's semantics). The
// plugin's TranslateFeedbackBatch is used so devices that support combined
// updates can emit fewer messages. Internal control state is synced to
// match what was sent, so auto-feedback triggered by a later physical
// press uses the values just set rather than stale defaults.
func (c *Controller) SetStates(updates []BatchEntry) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	var batch []plugin.StateUpdate
	var applied []BatchEntry

	for _, u := range updates {
		ctrl := c.state.GetControl(u.ControlID)
		if ctrl == nil {
			return fmt.Errorf("controller: unknown control: %s", u.ControlID)
		}
		caps := ctrl.Definition().Capabilities

		if !caps.SupportsFeedback {
			if err := c.handleUnsupportedOperation(fmt.Sprintf("control %q does not support feedback", u.ControlID)); err != nil {
				return err
			}
			continue
		}
		if u.Request.Color != nil {
			if !caps.SupportsColor {
				if err := c.handleUnsupportedOperation(fmt.Sprintf("control %q does not support color", u.ControlID)); err != nil {
					return err
				}
				continue
			}
			if !c.state.ValidateColor(u.ControlID, *u.Request.Color) {
				if err := c.handleUnsupportedOperation(fmt.Sprintf("color %q not valid for %q", *u.Request.Color, u.ControlID)); err != nil {
					return err
				}
				continue
			}
		}
		if u.Request.Value != nil && !caps.SupportsValueSet {
			if err := c.handleUnsupportedOperation(fmt.Sprintf("control %q does not support value setting", u.ControlID)); err != nil {
				return err
			}
			continue
		}

		batch = append(batch, plugin.StateUpdate{ControlID: u.ControlID, State: c.buildFeedbackState(ctrl, u.Request)})
		applied = append(applied, u)
	}

	if len(batch) == 0 {
		return nil
	}

	defaultDelay := c.state.Capabilities().FeedbackMessageDelay
	c.sendFeedback(c.plugin.TranslateFeedbackBatch(batch), defaultDelay)

	for _, u := range applied {
		ctrl := c.state.GetControl(u.ControlID)
		if ctrl == nil {
			continue
		}
		current := ctrl.State()
		newState := mergeRequest(current, u.Request)
		if _, err := c.state.SetControlState(u.ControlID, newState); err != nil {
			log.Debug().Err(err).Str("control", u.ControlID).Msg("failed to sync state after batch set")
		}
	}

	return nil
}

func (c *Controller) buildFeedbackState(ctrl control.Control, req StateRequest) control.State {
	def := ctrl.Definition()

	isOn := false
	if req.IsOn != nil {
		isOn = *req.IsOn
	}

	ledMode := req.LEDMode
	if ledMode == nil {
		if isOn {
			ledMode = def.OnLEDMode
		} else {
			ledMode = def.OffLEDMode
		}
	}

	s := control.State{ControlID: def.ControlID, IsOn: req.IsOn, Value: req.Value, LEDMode: ledMode}
	if req.Color != nil {
		s.Color = *req.Color
	}
	return s
}

func mergeRequest(current control.State, req StateRequest) control.State {
	next := current
	next.Previous = nil
	if req.IsOn != nil {
		next.IsOn = req.IsOn
	}
	if req.Value != nil {
		next.Value = req.Value
	}
	if req.Color != nil {
		next.Color = *req.Color
	}
	if req.LEDMode != nil {
		next.LEDMode = req.LEDMode
	}
	next.Timestamp = time.Now()
	return next
}

// GetActiveBank returns the active bank for controlType, or "" if bank
// tracking is unsupported or unknown.
func (c *Controller) GetActiveBank(controlType control.Type) string {
	if err := c.ensureConnected(); err != nil {
		return ""
	}
	return c.state.GetActiveBank(controlType)
}

// SetActiveBank records the active bank for controlType. Silent no-op if
// the controller does not support bank tracking.
func (c *Controller) SetActiveBank(controlType control.Type, bankID string) {
	if err := c.ensureConnected(); err != nil {
		return
	}
	c.state.SetActiveBank(controlType, bankID)
}

// OnControl registers a callback for one control. signalType filters by
// message category ("note", "cc", "pc"); empty matches every signal type.
func (c *Controller) OnControl(controlID string, fn callback.ControlFunc, signalType string) {
	c.callbacks.RegisterControl(controlID, fn, signalType)
}

// OnType registers a callback for every control of a given type.
func (c *Controller) OnType(controlType control.Type, fn callback.TypeFunc, signalType string) {
	c.callbacks.RegisterType(controlType, fn, signalType)
}

// OnCategory registers a callback for every control in a plugin-defined category.
func (c *Controller) OnCategory(category string, fn callback.CategoryFunc, signalType string) {
	c.callbacks.RegisterCategory(category, fn, signalType)
}

// OnGlobal registers a callback for every control change.
func (c *Controller) OnGlobal(fn callback.GlobalFunc, signalType string) {
	c.callbacks.RegisterGlobal(fn, signalType)
}

// OnBankChange registers a callback fired when the plugin reports a bank
// switch for controlType. The active bank returned by GetActiveBank is only
// recorded on controllers that support bank feedback.
func (c *Controller) OnBankChange(controlType control.Type, fn callback.BankFunc) {
	c.callbacks.RegisterBank(controlType, fn)
}

// ProcessEvents drains and dispatches every currently queued MIDI message.
// Call this regularly from an application's main loop. Returns the number
// of messages processed.
func (c *Controller) ProcessEvents() int {
	if c.midi == nil {
		return 0
	}
	return c.midi.ProcessPending()
}

func (c *Controller) ensureConnected() error {
	if !c.connected {
		return fmt.Errorf("controller: not connected, call Connect first")
	}
	return nil
}

func (c *Controller) handleUnsupportedOperation(msg string) error {
	if c.strictMode {
		return &control.CapabilityError{Op: msg}
	}
	log.Warn().Msg(msg)
	return nil
}

func (c *Controller) createControl(def control.Definition) (control.Control, error) {
	resolved, err := c.configResolver.Resolve(def.ControlID, def)
	if err != nil {
		var capErr *control.CapabilityError
		if !errors.As(err, &capErr) {
			return nil, err
		}
		if err := c.handleUnsupportedOperation(capErr.Error()); err != nil {
			return nil, err
		}
		resolved = config.Resolved{Type: def.ControlType}
		if def.TypeModes != nil {
			resolved.Type = def.TypeModes.DefaultType
		}
	}

	resolvedDef := def
	resolvedDef.ControlType = resolved.Type
	if resolved.OnColor != "" {
		resolvedDef.OnColor = resolved.OnColor
	}
	if resolved.OffColor != "" {
		resolvedDef.OffColor = resolved.OffColor
	}

	supported := def.Capabilities.SupportedLEDModes
	validateMode := func(label string, mode *control.LEDMode) (*control.LEDMode, error) {
		ok := false
		if supported == nil {
			ok = mode.Animation == control.Solid
		} else {
			for _, m := range supported {
				if m.Animation == mode.Animation {
					ok = true
					break
				}
			}
		}
		if ok {
			return mode, nil
		}
		msg := fmt.Sprintf("control %q does not support LED mode %q for %s", def.ControlID, mode.Animation, label)
		if err := c.handleUnsupportedOperation(msg); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if resolved.OnLEDMode != nil {
		mode, err := validateMode("on_led_mode", resolved.OnLEDMode)
		if err != nil {
			return nil, err
		}
		resolvedDef.OnLEDMode = mode
	}
	if resolved.OffLEDMode != nil {
		mode, err := validateMode("off_led_mode", resolved.OffLEDMode)
		if err != nil {
			return nil, err
		}
		resolvedDef.OffLEDMode = mode
	}

	switch resolved.Type {
	case control.Toggle:
		return control.NewToggle(resolvedDef), nil
	case control.Momentary:
		return control.NewMomentary(resolvedDef), nil
	case control.Continuous:
		return control.NewContinuous(resolvedDef), nil
	default:
		return nil, fmt.Errorf("controller: unknown control type: %s", resolved.Type)
	}
}

func (c *Controller) sendMessage(msg plugin.Message) bool {
	if c.midi == nil {
		return false
	}
	return c.midi.Send(plugin.ToGoMidi(msg))
}

func (c *Controller) receiveMessage(ctx context.Context, timeout time.Duration) (plugin.Message, bool) {
	if c.midi == nil {
		return nil, false
	}
	raw, ok := c.midi.ReceiveMessage(ctx, timeout)
	if !ok {
		return nil, false
	}
	return plugin.FromGoMidi(raw)
}

func (c *Controller) sendFeedback(messages []plugin.FeedbackDelay, defaultDelay time.Duration) {
	for _, fd := range messages {
		c.sendMessage(fd.Message)
		delay := fd.Delay
		if delay == 0 {
			delay = defaultDelay
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

// applyBankLeds resends feedback for every control in bankID using its
// current state, syncing hardware LEDs after a bank switch is detected.
func (c *Controller) applyBankLeds(bankID string) {
	if c.plugin == nil || c.state == nil {
		return
	}

	delay := c.state.Capabilities().FeedbackMessageDelay
	for _, def := range c.plugin.GetControlDefinitions() {
		if def.BankID != bankID {
			continue
		}
		ctrl := c.state.GetControl(def.ControlID)
		if ctrl == nil {
			continue
		}
		resolved := ctrl.Definition()
		if !resolved.Capabilities.SupportsFeedback {
			continue
		}

		s := ctrl.State()
		isOn := s.IsOn != nil && *s.IsOn
		color := resolved.OffColor
		if isOn {
			color = resolved.OnColor
		}
		if color == "" {
			continue
		}
		s.Color = color
		c.sendFeedback(c.plugin.TranslateFeedback(def.ControlID, s), delay)
	}
	log.Debug().Str("bank", bankID).Msg("applied LED colors for bank")
}

// onRawMIDIMessage is the single entry point for inbound MIDI traffic,
// invoked from ProcessEvents on the application's own goroutine (never
// concurrently). It checks for a bank switch first, then falls through to
// the normal control-input translation and callback dispatch pipeline.
func (c *Controller) onRawMIDIMessage(raw gomidi.Message) {
	if c.plugin == nil || c.state == nil {
		return
	}

	msg, ok := plugin.FromGoMidi(raw)
	if !ok {
		return
	}

	if bankID, ok := c.plugin.TranslateBankSwitch(msg); ok {
		controlType := c.bankControlType(bankID)
		c.state.SetActiveBank(controlType, bankID)
		c.callbacks.OnBankChange(controlType, bankID)
		c.applyBankLeds(bankID)
		return
	}

	controlID, value, signalType, ok := c.plugin.TranslateInput(msg)
	if !ok {
		log.Debug().Msg("no mapping found for MIDI message")
		return
	}

	ctrl := c.state.GetControl(controlID)
	if ctrl == nil {
		log.Debug().Str("control", controlID).Msg("control not found")
		return
	}

	prevState := ctrl.State()

	decision := c.plugin.ComputeControlState(controlID, value, prevState)
	if decision.IsSuppressed() {
		return
	}

	var newState control.State
	var err error
	if replacement, ok := decision.Replacement(); ok {
		newState, err = c.state.SetControlState(controlID, replacement)
	} else {
		newState, err = c.state.UpdateState(controlID, value)
	}
	if err != nil {
		log.Error().Err(err).Str("control", controlID).Msg("error updating state")
		return
	}

	def := ctrl.Definition()
	if !controlStateChanged(def.ControlType, prevState, newState) {
		log.Debug().Str("control", controlID).Msg("no state change, suppressing callback and feedback")
		return
	}

	c.callbacks.OnControlChange(controlID, newState, def.ControlType, signalType, def.Category)

	if def.Capabilities.RequiresFeedback {
		delay := c.state.Capabilities().FeedbackMessageDelay
		c.sendFeedback(c.plugin.TranslateFeedback(controlID, newState), delay)
	}
}

// controlStateChanged reports whether prev and next differ on the fields
// that matter for the control's type: is_on/color for discrete controls
// (toggle, momentary), value/normalized_value for continuous ones.
func controlStateChanged(ctrlType control.Type, prev, next control.State) bool {
	if ctrlType == control.Continuous {
		return !intPtrEqual(prev.Value, next.Value) || !floatPtrEqual(prev.NormalizedValue, next.NormalizedValue)
	}
	return !boolPtrEqual(prev.IsOn, next.IsOn) || prev.Color != next.Color
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// bankControlType finds the control type declared for bankID among the
// plugin's bank definitions, defaulting to Toggle (matching the most
// common bank-switchable control) when unknown.
func (c *Controller) bankControlType(bankID string) control.Type {
	for _, b := range c.plugin.GetBankDefinitions() {
		if b.BankID == bankID {
			return b.ControlType
		}
	}
	return control.Toggle
}
