package state

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// GameState is a game-level screen state.
type GameState string

const (
	Title      GameState = "TITLE"
	Dialogue   GameState = "DIALOGUE"
	Choice     GameState = "CHOICE"
	Transition GameState = "TRANSITION"
	OOXX       GameState = "OOXX"
	Result     GameState = "RESULT"
	Death      GameState = "DEATH"
)

// States lists every game state in declaration order.
var States = []GameState{Title, Dialogue, Choice, Transition, OOXX, Result, Death}

// allowed is the transition allow-list. Self-transitions are always legal
// and are not listed.
var allowed = map[GameState][]GameState{
	Title:      {Dialogue, Transition},
	Dialogue:   {Choice, Death, Transition, Title},
	Choice:     {Dialogue, Transition, OOXX},
	Transition: {Dialogue, OOXX, Result, Title, Death},
	OOXX:       {Result, Transition, Title},
	Result:     {Transition, Title},
	Death:      {Transition, Title},
}

// Allowed returns the legal successors of from, excluding from itself.
func Allowed(from GameState) []GameState {
	return slices.Clone(allowed[from])
}

// Valid reports whether s is a known state.
func (s GameState) Valid() bool {
	_, ok := allowed[s]
	return ok
}

// ErrInvalidTransition is matched by every *StateError.
var ErrInvalidTransition = errors.New("invalid transition")

// StateError names an illegal transition pair.
type StateError struct {
	From GameState
	To   GameState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Change describes one accepted transition.
type Change struct {
	Prev GameState      `json:"prev"`
	Next GameState      `json:"next"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Listener is notified synchronously of every accepted transition.
type Listener func(Change)

// Machine is the game state controller. All mutation goes through
// Transition.
type Machine struct {
	mu        sync.Mutex
	current   GameState
	listeners map[uint64]Listener
	nextID    uint64
}

// NewMachine creates a machine in initial, or in Title when initial is empty.
func NewMachine(initial GameState) *Machine {
	if initial == "" {
		initial = Title
	}
	return &Machine{
		current:   initial,
		listeners: make(map[uint64]Listener),
	}
}

// Current returns the current state.
func (m *Machine) Current() GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CanTransition reports whether next is legal from the current state
// without changing anything.
func (m *Machine) CanTransition(next GameState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return canTransition(m.current, next)
}

func canTransition(from, to GameState) bool {
	succ, ok := allowed[from]
	if !ok {
		return false
	}
	return to == from || slices.Contains(succ, to)
}

// Transition moves to next and notifies listeners in subscription order.
// An illegal request returns a *StateError and changes nothing. Listener
// panics are not recovered.
func (m *Machine) Transition(next GameState, meta map[string]any) error {
	m.mu.Lock()
	prev := m.current
	if !canTransition(prev, next) {
		m.mu.Unlock()
		return &StateError{From: prev, To: next}
	}
	m.current = next
	listeners := m.snapshot()
	m.mu.Unlock()

	change := Change{Prev: prev, Next: next, Meta: meta}
	for _, l := range listeners {
		l(change)
	}
	return nil
}

// TryTransition commits next only when it is legal and reports whether it
// did.
func (m *Machine) TryTransition(next GameState, meta map[string]any) bool {
	return m.Transition(next, meta) == nil
}

// Subscribe registers l and returns a function that removes it. The
// returned function is safe to call more than once.
func (m *Machine) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// snapshot returns listeners ordered by subscription. Callers hold mu.
func (m *Machine) snapshot() []Listener {
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = m.listeners[id]
	}
	return out
}
