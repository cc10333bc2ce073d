// Package callback implements error-isolated callback registration and
// dispatch across five tiers of specificity: per-control, category, type,
// global, and bank-change callbacks.
package callback

import (
	"sync"

	"github.com/padgrid/padgrid/control"
	"github.com/padgrid/padgrid/internal/logx"
)

var log = logx.Get("callback")

// GlobalFunc fires for any control change.
type GlobalFunc func(controlID string, state control.State)

// ControlFunc fires for changes to one specific control.
type ControlFunc func(state control.State)

// TypeFunc fires for all controls of a given type.
type TypeFunc func(controlID string, state control.State)

// CategoryFunc fires for all controls in a category.
type CategoryFunc func(controlID string, state control.State)

// BankFunc fires when the active bank for a control type changes.
type BankFunc func(bankID string)

type entry[F any] struct {
	fn         F
	signalType string // "" means: fire for all signal types
}

// Manager holds every registered callback and dispatches control/bank
// changes to them with signal-type filtering and panic isolation.
type Manager struct {
	mu sync.Mutex

	global   []entry[GlobalFunc]
	control  map[string][]entry[ControlFunc]
	byType   map[control.Type][]entry[TypeFunc]
	category map[string][]entry[CategoryFunc]
	bank     map[control.Type][]BankFunc
}

// New constructs an empty callback manager.
func New() *Manager {
	return &Manager{
		control:  map[string][]entry[ControlFunc]{},
		byType:   map[control.Type][]entry[TypeFunc]{},
		category: map[string][]entry[CategoryFunc]{},
		bank:     map[control.Type][]BankFunc{},
	}
}

// RegisterGlobal registers fn to fire on every control change whose signal
// type matches signalType (empty string matches any signal type).
func (m *Manager) RegisterGlobal(fn GlobalFunc, signalType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = append(m.global, entry[GlobalFunc]{fn, signalType})
	log.Debug().Str("signal_type", orAll(signalType)).Msg("registered global callback")
}

// RegisterControl registers fn to fire on changes to controlID.
func (m *Manager) RegisterControl(controlID string, fn ControlFunc, signalType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.control[controlID] = append(m.control[controlID], entry[ControlFunc]{fn, signalType})
	log.Debug().Str("control", controlID).Str("signal_type", orAll(signalType)).Msg("registered control callback")
}

// RegisterType registers fn to fire on changes to any control of the given type.
func (m *Manager) RegisterType(t control.Type, fn TypeFunc, signalType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byType[t] = append(m.byType[t], entry[TypeFunc]{fn, signalType})
	log.Debug().Str("type", string(t)).Str("signal_type", orAll(signalType)).Msg("registered type callback")
}

// RegisterCategory registers fn to fire on changes to any control in category.
func (m *Manager) RegisterCategory(category string, fn CategoryFunc, signalType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.category[category] = append(m.category[category], entry[CategoryFunc]{fn, signalType})
	log.Debug().Str("category", category).Str("signal_type", orAll(signalType)).Msg("registered category callback")
}

// RegisterBank registers fn to fire when the active bank for t changes.
func (m *Manager) RegisterBank(t control.Type, fn BankFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bank[t] = append(m.bank[t], fn)
	log.Debug().Str("type", string(t)).Msg("registered bank callback")
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

// OnControlChange dispatches a control state change through every tier, in
// order from most specific to least: per-control, category, type, global.
// Callback lists are copied under lock and invoked outside the lock, so a
// callback may safely (un)register other callbacks without deadlocking.
func (m *Manager) OnControlChange(controlID string, state control.State, controlType control.Type, signalType, category string) {
	m.mu.Lock()
	controlCbs := append([]entry[ControlFunc]{}, m.control[controlID]...)
	var categoryCbs []entry[CategoryFunc]
	if category != "" {
		categoryCbs = append([]entry[CategoryFunc]{}, m.category[category]...)
	}
	typeCbs := append([]entry[TypeFunc]{}, m.byType[controlType]...)
	globalCbs := append([]entry[GlobalFunc]{}, m.global...)
	m.mu.Unlock()

	for _, e := range controlCbs {
		if matches(e.signalType, signalType) {
			safeCall(func() { e.fn(state) })
		}
	}
	for _, e := range categoryCbs {
		if matches(e.signalType, signalType) {
			safeCall(func() { e.fn(controlID, state) })
		}
	}
	for _, e := range typeCbs {
		if matches(e.signalType, signalType) {
			safeCall(func() { e.fn(controlID, state) })
		}
	}
	for _, e := range globalCbs {
		if matches(e.signalType, signalType) {
			safeCall(func() { e.fn(controlID, state) })
		}
	}
}

// OnBankChange dispatches a bank change to every registered bank callback
// for t.
func (m *Manager) OnBankChange(t control.Type, bankID string) {
	m.mu.Lock()
	cbs := append([]BankFunc{}, m.bank[t]...)
	m.mu.Unlock()

	for _, fn := range cbs {
		f := fn
		safeCall(func() { f(bankID) })
	}
}

func matches(filter, signalType string) bool {
	return filter == "" || filter == signalType
}

// safeCall invokes fn, recovering and logging any panic so a single
// misbehaving callback cannot take down the dispatch loop or the caller.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("callback panicked")
		}
	}()
	fn()
}

// ClearAll removes every registered callback.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = nil
	m.control = map[string][]entry[ControlFunc]{}
	m.byType = map[control.Type][]entry[TypeFunc]{}
	m.category = map[string][]entry[CategoryFunc]{}
	m.bank = map[control.Type][]BankFunc{}
	log.Debug().Msg("cleared all callbacks")
}

// Counts reports the number of registered callbacks per tier.
type Counts struct {
	Global, Control, Type, Category, Bank int
}

// GetCallbackCounts returns the current registration counts per tier.
func (m *Manager) GetCallbackCounts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := Counts{Global: len(m.global)}
	for _, cbs := range m.control {
		c.Control += len(cbs)
	}
	for _, cbs := range m.byType {
		c.Type += len(cbs)
	}
	for _, cbs := range m.category {
		c.Category += len(cbs)
	}
	for _, cbs := range m.bank {
		c.Bank += len(cbs)
	}
	return c
}
