package sheetshot

import "github.com/bft-labs/sheetshot/internal/app"

// State is the lifecycle state of a scheduled Sheetshot instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// CanStart reports whether Start may be called in this state.
func (s State) CanStart() bool { return s == StateStopped || s == StateCrashed }

// CanStop reports whether Stop may be called in this state.
func (s State) CanStop() bool { return s == StateStarting || s == StateRunning }

// IsRunning reports whether the scheduler loop is active.
func (s State) IsRunning() bool { return s == StateRunning }

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
