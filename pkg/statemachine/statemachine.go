package statemachine

import (
	"sync"
)

// StateFn represents a state function following Rob Pike's pattern: the
// state is the function, and each invocation returns the next state
// function (or nil to terminate).
type StateFn[T any] func(*T) StateFn[T]

// StateMachine is a small, thread-safe wrapper that drives an entity
// through StateFn transitions.
type StateMachine[T any] struct {
	entity  *T
	stateFn StateFn[T]
	mutex   sync.RWMutex
}

// NewStateMachine creates a new state machine for the given entity.
func NewStateMachine[T any](entity *T, initialStateFn StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		stateFn: initialStateFn,
	}
}

// Step executes the current state function once and transitions to the
// state it returns. Returns false once the machine has terminated.
func (sm *StateMachine[T]) Step() bool {
	sm.mutex.RLock()
	currentStateFn := sm.stateFn
	sm.mutex.RUnlock()

	if currentStateFn == nil {
		return false
	}

	nextStateFn := currentStateFn(sm.entity)

	sm.mutex.Lock()
	sm.stateFn = nextStateFn
	sm.mutex.Unlock()
	return nextStateFn != nil
}

// Dispatch sets the given state function as current and executes it once,
// transitioning to the state it returns.
func (sm *StateMachine[T]) Dispatch(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()

	if stateFn == nil {
		return
	}

	nextStateFn := stateFn(sm.entity)

	sm.mutex.Lock()
	sm.stateFn = nextStateFn
	sm.mutex.Unlock()
}

// GetCurrentState returns the current state function.
func (sm *StateMachine[T]) GetCurrentState() StateFn[T] {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.stateFn
}

// SetState replaces the current state function without executing it.
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()
}
