package web

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/hub"
	"github.com/teslashibe/go-facecam/pkg/snapshot"
	"github.com/teslashibe/go-facecam/pkg/stream"
)

// errorStatus maps lifecycle errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, stream.ErrInvalidTransition), errors.Is(err, snapshot.ErrNoFrameAvailable):
		return fiber.StatusConflict
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	level := slog.LevelWarn
	if status == fiber.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.UserContext(), level, "request failed", "path", c.Path(), "status", status, "error", err)
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.ctrl.Start(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

// handlePause toggles between running and paused.
func (s *Server) handlePause(c *fiber.Ctx) error {
	if _, err := s.ctrl.TogglePause(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.ctrl.Stop(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	path, err := s.ctrl.Capture()
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path": path,
	})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.cameras.GetConfigJSON())
}

// handleUpdateCamera applies a partial update or a preset. It takes
// effect on the next stream start.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}
	if err := s.cameras.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.logger.Info("camera config updated", "config", s.cameras.GetConfig())
	return c.JSON(s.cameras.GetConfigJSON())
}

func (s *Server) handleListPresets(c *fiber.Ctx) error {
	return c.JSON(camera.PresetNames())
}

// handleEventsWS streams lifecycle events as JSON text messages.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	// Current state first so watchers need not poll
	st := s.ctrl.Status()
	if err := c.WriteJSON(stream.Event{Type: stream.EventStatus, State: st.State, Session: st.Session, Time: time.Now()}); err != nil {
		return
	}

	client := hub.NewClient(s.events, c)
	if client == nil {
		return
	}
	client.Run()
}
