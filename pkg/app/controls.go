package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teslashibe/go-facecam/pkg/display"
	"github.com/teslashibe/go-facecam/pkg/snapshot"
	"github.com/teslashibe/go-facecam/pkg/stream"
	"github.com/teslashibe/go-facecam/pkg/web"
)

// Action is a user command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionStartOrPause
	ActionStop
	ActionCapture
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionStartOrPause:
		return "start-or-pause"
	case ActionStop:
		return "stop"
	case ActionCapture:
		return "capture"
	case ActionQuit:
		return "quit"
	default:
		return "none"
	}
}

// KeyHelp is shown on the stopped placeholder.
const KeyHelp = "space: start/pause  x: stop  c: capture  q: quit"

// KeyAction maps a key code to its action.
func KeyAction(key int) Action {
	switch key {
	case display.KeySpace, 's', 'S':
		return ActionStartOrPause
	case 'x', 'X':
		return ActionStop
	case 'c', 'C':
		return ActionCapture
	case 'q', 'Q', display.KeyEscape:
		return ActionQuit
	default:
		return ActionNone
	}
}

// Controls turns user actions into lifecycle calls. Start and pause share
// one button: it starts a stopped stream and toggles pause otherwise.
type Controls struct {
	ctrl   web.Controller
	logger *slog.Logger
}

// NewControls creates the control mapping for ctrl.
func NewControls(ctrl web.Controller, logger *slog.Logger) *Controls {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controls{ctrl: ctrl, logger: logger.With("component", "controls")}
}

// StartOrPause starts a stopped stream, otherwise toggles pause.
func (c *Controls) StartOrPause() error {
	if c.ctrl.Status().State == stream.Stopped {
		err := c.ctrl.Start()
		// Lost a race with another control surface
		if errors.Is(err, stream.ErrAlreadyRunning) {
			_, err = c.ctrl.TogglePause()
		}
		return err
	}
	_, err := c.ctrl.TogglePause()
	return err
}

// Do runs one action and returns its error.
func (c *Controls) Do(a Action) error {
	switch a {
	case ActionStartOrPause:
		return c.StartOrPause()
	case ActionStop:
		return c.ctrl.Stop()
	case ActionCapture:
		path, err := c.ctrl.Capture()
		if err == nil {
			c.logger.Info("snapshot captured", "path", path)
		}
		return err
	}
	return nil
}

// HandleKey runs the action bound to key. It returns false when the user
// asked to quit. Failures are logged; none of them end the loop.
func (c *Controls) HandleKey(key int) bool {
	a := KeyAction(key)
	switch a {
	case ActionNone:
		return true
	case ActionQuit:
		c.logger.Info("quit requested")
		return false
	}

	if err := c.Do(a); err != nil {
		level := slog.LevelError
		if errors.Is(err, stream.ErrInvalidTransition) || errors.Is(err, snapshot.ErrNoFrameAvailable) {
			level = slog.LevelWarn
		}
		c.logger.Log(context.Background(), level, "action failed", "action", a.String(), "error", err)
	}
	return true
}
