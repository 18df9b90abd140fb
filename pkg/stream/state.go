package stream

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a stream.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "stopped":
		*s = Stopped
	case "running":
		*s = Running
	case "paused":
		*s = Paused
	default:
		return fmt.Errorf("stream: unknown state %q", b)
	}
	return nil
}

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current state.
	ErrInvalidTransition = errors.New("stream: invalid state transition")

	// ErrAlreadyRunning is returned by Start when a session is active.
	ErrAlreadyRunning = fmt.Errorf("%w: already running", ErrInvalidTransition)
)
