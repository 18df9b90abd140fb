// Package web provides the HTTP control surface: stream lifecycle
// commands, snapshots, capture settings, metrics and a websocket feed of
// lifecycle events. It never serves frames.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/hub"
	"github.com/teslashibe/go-facecam/pkg/stream"
)

// Controller is the stream lifecycle the server drives.
type Controller interface {
	Start() error
	TogglePause() (stream.State, error)
	Stop() error
	Capture() (string, error)
	Status() stream.Status
}

var _ Controller = (*stream.Scheduler)(nil)

// Server is the control API server.
type Server struct {
	app     *fiber.App
	ctrl    Controller
	cameras *camera.Manager
	events  *hub.Hub
	logger  *slog.Logger
}

// NewServer creates the control server. cameras and gatherer may be nil,
// which disables the camera settings routes and /metrics.
func NewServer(ctrl Controller, cameras *camera.Manager, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:    ctrl,
		cameras: cameras,
		logger:  logger.With("component", "web"),
	}
	s.events = hub.New("events", logger)

	app := fiber.New(fiber.Config{
		AppName:               "facecam",
		DisableStartupMessage: true,
	})

	// CORS for local tooling
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/stream/start", s.handleStart)
	api.Post("/stream/pause", s.handlePause)
	api.Post("/stream/stop", s.handleStop)
	api.Post("/snapshot", s.handleSnapshot)

	if cameras != nil {
		api.Get("/camera", s.handleGetCamera)
		api.Put("/camera", s.handleUpdateCamera)
		api.Get("/camera/presets", s.handleListPresets)
	}

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Publish sends a lifecycle event to every websocket client.
func (s *Server) Publish(ev stream.Event) {
	if err := s.events.BroadcastJSON(ev); err != nil {
		s.logger.Warn("failed to encode event", "error", err)
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.events.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", "addr", ln.Addr().String())
		errc <- s.app.Listener(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	cancel()
	<-s.events.Done()
	if err := s.app.Shutdown(); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
