// Package config resolves user-supplied control configuration (colors,
// LED modes, control type overrides) against a plugin's control
// definitions, following exact-match-then-wildcard precedence with
// bank-aware and flat configuration modes.
package config

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/internal/logx"
)

var log = logx.Get("config")

// Error is raised when configuration is invalid or conflicts with hardware
// constraints.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func newConfigError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// LEDModeConfig is the user-facing spelling of control.LEDMode.
type LEDModeConfig struct {
	Animation string `yaml:"animation"`
	Frequency *int   `yaml:"frequency,omitempty"`
}

func (m LEDModeConfig) toControl() *control.LEDMode {
	if m.Animation == "" {
		return nil
	}
	return &control.LEDMode{Animation: control.AnimationType(m.Animation), Frequency: m.Frequency}
}

// ControlConfig is a single control's requested type and feedback colors.
type ControlConfig struct {
	Type      control.Type  `yaml:"type"`
	Color     string        `yaml:"color,omitempty"`
	OffColor  string        `yaml:"off_color,omitempty"`
	LEDMode   LEDModeConfig `yaml:"led_mode,omitempty"`
	OffLEDMode LEDModeConfig `yaml:"off_led_mode,omitempty"`
}

func (c ControlConfig) validate(controlID string) error {
	for _, m := range []string{string(c.LEDMode.Animation), string(c.OffLEDMode.Animation)} {
		if m != "" && m != string(control.Solid) && m != string(control.Pulse) && m != string(control.Blink) {
			return newConfigError("control %q: led_mode must be solid, pulse, or blink, got %q", controlID, m)
		}
	}
	return nil
}

// BankConfig maps control IDs or glob patterns ("pad_*") to their configuration.
type BankConfig struct {
	Controls   map[string]ControlConfig `yaml:"controls"`
	ToggleMode *bool                    `yaml:"toggle_mode,omitempty"`
}

var controlIDPattern = regexp.MustCompile(`^[A-Za-z0-9_*]+$`)

func (b BankConfig) validate() error {
	for key := range b.Controls {
		if !controlIDPattern.MatchString(key) {
			return newConfigError("invalid control ID pattern: %q", key)
		}
	}
	return nil
}

// ControllerConfig is the root user configuration for a controller. Exactly
// one of Banks or Controls must be set.
type ControllerConfig struct {
	Banks    map[string]BankConfig    `yaml:"banks,omitempty"`
	Controls map[string]ControlConfig `yaml:"controls,omitempty"`
}

// Validate enforces the banks/controls mutual exclusivity.
func (c *ControllerConfig) Validate() error {
	if c.Banks != nil && c.Controls != nil {
		return newConfigError("cannot specify both 'banks' and 'controls', use one mode")
	}
	if c.Banks == nil && c.Controls == nil {
		return newConfigError("must specify either 'banks' or 'controls'")
	}
	for bankID, b := range c.Banks {
		if err := b.validate(); err != nil {
			return fmt.Errorf("bank %q: %w", bankID, err)
		}
	}
	return nil
}

// IsBankAware reports whether this configuration uses bank-aware mode.
func (c *ControllerConfig) IsBankAware() bool {
	return c.Banks != nil
}

// Load parses a YAML controller configuration document.
func Load(r io.Reader) (*ControllerConfig, error) {
	var cfg ControllerConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type compiledConfig struct {
	exact     map[string]ControlConfig
	wildcards []wildcardEntry
}

type wildcardEntry struct {
	re  *regexp.Regexp
	cfg ControlConfig
}

func compile(controls map[string]ControlConfig) compiledConfig {
	cc := compiledConfig{exact: map[string]ControlConfig{}}
	for pattern, cfg := range controls {
		if strings.Contains(pattern, "*") {
			re := regexp.MustCompile("^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$")
			cc.wildcards = append(cc.wildcards, wildcardEntry{re: re, cfg: cfg})
		} else {
			cc.exact[pattern] = cfg
		}
	}
	return cc
}

// Resolver resolves effective control type and feedback configuration from
// user config plus plugin-provided defaults.
type Resolver struct {
	bankAware   bool
	flat        *compiledConfig
	bankConfigs map[string]compiledConfig
}

// NewResolver builds a Resolver from an optional user configuration. A nil
// cfg resolves every control to its plugin default.
func NewResolver(cfg *ControllerConfig) *Resolver {
	r := &Resolver{}
	if cfg == nil {
		return r
	}
	if cfg.IsBankAware() {
		r.bankAware = true
		r.bankConfigs = map[string]compiledConfig{}
		for bankID, bc := range cfg.Banks {
			r.bankConfigs[bankID] = compile(bc.Controls)
		}
	} else {
		flat := compile(cfg.Controls)
		r.flat = &flat
	}
	return r
}

// Resolved is the result of resolving one control's configuration.
type Resolved struct {
	Type       control.Type
	OnColor    string
	OffColor   string
	OnLEDMode  *control.LEDMode
	OffLEDMode *control.LEDMode
}

// Resolve determines the effective type and feedback configuration for
// controlID against definition, in the order: bank exact match, bank
// wildcard match, flat exact match (full ID then base ID), flat wildcard
// match (full ID then base ID), plugin default.
func (r *Resolver) Resolve(controlID string, definition control.Definition) (Resolved, error) {
	baseID, bankID := parseControlID(controlID)

	var matched *ControlConfig

	if r.bankAware && bankID != "" {
		if cc, ok := r.bankConfigs[bankID]; ok {
			if cfg, ok := cc.exact[baseID]; ok {
				matched = &cfg
				log.Debug().Str("control", controlID).Str("bank", bankID).Msg("exact match")
			}
			if matched == nil {
				for _, w := range cc.wildcards {
					if w.re.MatchString(baseID) {
						matched = &w.cfg
						log.Debug().Str("control", controlID).Str("bank", bankID).Msg("wildcard match")
						break
					}
				}
			}
		}
	}

	if matched == nil && r.flat != nil {
		for _, id := range []string{controlID, baseID} {
			if cfg, ok := r.flat.exact[id]; ok {
				matched = &cfg
				break
			}
		}
		if matched == nil {
			for _, id := range []string{controlID, baseID} {
				for _, w := range r.flat.wildcards {
					if w.re.MatchString(id) {
						matched = &w.cfg
						break
					}
				}
				if matched != nil {
					break
				}
			}
		}
	}

	if matched == nil {
		log.Debug().Str("control", controlID).Msg("using plugin default")
		return Resolved{Type: definition.ControlType}, nil
	}

	if err := matched.validate(controlID); err != nil {
		return Resolved{}, err
	}

	resolvedType := matched.Type
	if resolvedType == "" {
		resolvedType = definition.ControlType
		if definition.TypeModes != nil {
			resolvedType = definition.TypeModes.DefaultType
		}
	} else if err := validateSupported(controlID, resolvedType, definition); err != nil {
		return Resolved{}, err
	}

	return Resolved{
		Type:       resolvedType,
		OnColor:    matched.Color,
		OffColor:   matched.OffColor,
		OnLEDMode:  matched.LEDMode.toControl(),
		OffLEDMode: matched.OffLEDMode.toControl(),
	}, nil
}

func parseControlID(controlID string) (base, bankID string) {
	if idx := strings.IndexByte(controlID, '@'); idx >= 0 {
		return controlID[:idx], controlID[idx+1:]
	}
	return controlID, ""
}

func validateSupported(controlID string, requested control.Type, definition control.Definition) error {
	if definition.TypeModes == nil {
		if requested != definition.ControlType {
			return &control.CapabilityError{Op: fmt.Sprintf(
				"control %q only supports type %s, but %s was requested",
				controlID, definition.ControlType, requested)}
		}
		return nil
	}
	for _, t := range definition.TypeModes.SupportedTypes {
		if t == requested {
			return nil
		}
	}
	return &control.CapabilityError{Op: fmt.Sprintf(
		"control %q does not support type %s", controlID, requested)}
}
