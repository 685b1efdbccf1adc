package models

import "fmt"

// Lifecycle is the soft-delete state carried by users, task statuses and
// tasks. Rows are never removed; they move between active and deleted.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

// Valid reports whether s is a known lifecycle state.
func (s Lifecycle) Valid() bool {
	return s == LifecycleActive || s == LifecycleDeleted
}

// LifecycleEvent names a soft-delete transition.
type LifecycleEvent string

const (
	EventDelete  LifecycleEvent = "delete"
	EventRestore LifecycleEvent = "restore"
)

// Transition applies a lifecycle event to a state. Deleting an already
// deleted entity (or restoring an active one) is rejected; there are no
// self transitions.
func Transition(state Lifecycle, event LifecycleEvent) (Lifecycle, error) {
	switch event {
	case EventDelete:
		if state != LifecycleActive {
			return state, fmt.Errorf("cannot delete entity in state %q", state)
		}
		return LifecycleDeleted, nil
	case EventRestore:
		if state != LifecycleDeleted {
			return state, fmt.Errorf("cannot restore entity in state %q", state)
		}
		return LifecycleActive, nil
	default:
		return state, fmt.Errorf("unknown lifecycle event %q", event)
	}
}

// Scope selects which lifecycle states a lookup should match.
type Scope int

const (
	ScopeAny Scope = iota
	ScopeActive
	ScopeDeleted
)
