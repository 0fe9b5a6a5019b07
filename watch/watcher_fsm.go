package watch

import "fmt"

// watcherState represents a small finite state machine. It has the following transitions:
// ∅           → Registering
// Registering → Watching
// Registering → Closed
// Watching    → Closing
// Closing     → Closed
//
// The meaning of each state is described above the state's definition below.
type watcherState string

const (
	// Registering is the initial state. The watcher is taking the directory
	// lock and creating its socket.
	watcherStateRegistering watcherState = "registering"
	// Watching is the state of a watcher whose socket is registered and which
	// is serving notifications.
	watcherStateWatching watcherState = "watching"
	// Closing is the state of a watcher that has stopped accepting and is
	// waiting for in-flight notifications to finish.
	watcherStateClosing watcherState = "closing"
	// Closed is terminal.
	watcherStateClosed watcherState = "closed"
)

var validTransitions = map[watcherState][]watcherState{
	watcherStateRegistering: {
		watcherStateWatching,
		watcherStateClosed,
	},
	watcherStateWatching: {
		watcherStateClosing,
	},
	watcherStateClosing: {
		watcherStateClosed,
	},
	watcherStateClosed: {},
}

func (w *watcherState) canTransitionTo(state watcherState) error {
	validTargets := validTransitions[*w]

	for _, target := range validTargets {
		if target == state {
			return nil
		}
	}
	return fmt.Errorf("unable to transition from %s to %s", *w, state)
}

func (w *watcherState) transitionTo(state watcherState) error {
	if err := w.canTransitionTo(state); err != nil {
		return err
	}
	*w = state
	return nil
}
