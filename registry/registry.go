// Package registry provides plugin registration, lookup, and MIDI port
// auto-detection for device plugins.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/padgrid/padgrid/internal/logx"
	"github.com/padgrid/padgrid/midiio"
	"github.com/padgrid/padgrid/plugin"
)

var log = logx.Get("registry")

// Factory constructs a fresh plugin instance. Plugins are registered by
// factory rather than by instance so that detection and validation never
// share mutable state across callers.
type Factory func() plugin.Plugin

// Registry is a lookup table of device plugin factories, keyed by plugin name.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Factory
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{plugins: map[string]Factory{}}
}

// Register adds a plugin factory under the name reported by an instance
// built from it. Re-registering an existing name overwrites it with a warning.
func (r *Registry) Register(factory Factory) {
	p := factory()
	name := p.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[name]; exists {
		log.Warn().Str("plugin", name).Msg("plugin already registered, overwriting")
	}
	r.plugins[name] = factory
	log.Debug().Str("plugin", name).Msg("registered plugin")
}

// Unregister removes a plugin by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[name]; ok {
		delete(r.plugins, name)
		log.Debug().Str("plugin", name).Msg("unregistered plugin")
	}
}

// GetPlugin constructs a fresh plugin instance by name, or nil if unregistered.
func (r *Registry) GetPlugin(name string) plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if factory, ok := r.plugins[name]; ok {
		return factory()
	}
	return nil
}

// ListPlugins returns every registered plugin name.
func (r *Registry) ListPlugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}

// Detect auto-detects a controller plugin by matching registered port
// patterns against available (or a specifically given) MIDI port name.
func (r *Registry) Detect(portName string) plugin.Plugin {
	var portNames []string
	if portName != "" {
		portNames = []string{portName}
	} else {
		portNames = midiio.ListInputPorts()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, factory := range r.plugins {
		p := factory()
		for _, pattern := range p.PortPatterns() {
			for _, available := range portNames {
				if strings.Contains(strings.ToLower(available), strings.ToLower(pattern)) {
					log.Info().Str("plugin", p.Name()).Str("pattern", pattern).Str("port", available).
						Msg("auto-detected controller")
					return p
				}
			}
		}
	}

	log.Warn().Msg("no controller plugin auto-detected")
	return nil
}

// FindPorts locates input and output port names matching p's port patterns.
func FindPorts(p plugin.Plugin) (inputPort, outputPort string) {
	patterns := p.PortPatterns()
	if len(patterns) == 0 {
		return "", ""
	}

	for _, name := range midiio.ListInputPorts() {
		if matchesAny(name, patterns) {
			inputPort = name
			break
		}
	}
	for _, name := range midiio.ListOutputPorts() {
		if matchesAny(name, patterns) {
			outputPort = name
			break
		}
	}
	return inputPort, outputPort
}

func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// ValidatePlugin checks a plugin implementation for completeness, returning
// a list of problems (empty if valid).
func ValidatePlugin(p plugin.Plugin) []string {
	var errs []string

	if p.Name() == "" {
		errs = append(errs, "plugin name must be non-empty")
	}

	controls := p.GetControlDefinitions()
	if len(controls) == 0 {
		errs = append(errs, "plugin must define at least one control")
	}

	mappings := p.GetInputMappings()
	if len(mappings) == 0 {
		errs = append(errs, fmt.Sprintf("plugin %q must define at least one input mapping", p.Name()))
	}

	return errs
}
