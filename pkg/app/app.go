// Package app wires the capture pipeline, display, control API and
// metrics into one application instance owned by the entry point.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-facecam/internal/config"
	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/camera/device"
	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/detection/opencv"
	"github.com/teslashibe/go-facecam/pkg/display"
	"github.com/teslashibe/go-facecam/pkg/snapshot"
	"github.com/teslashibe/go-facecam/pkg/stream"
	"github.com/teslashibe/go-facecam/pkg/web"
)

// App is the facecam application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config config.Config
	logger *slog.Logger

	registry  *prometheus.Registry
	cameras   *camera.Manager
	detector  detection.Detector
	snapshots *snapshot.Writer
	scheduler *stream.Scheduler
	controls  *Controls

	// Exactly one surface is set
	window   *display.Window
	headless *display.Headless

	server *web.Server

	closeOnce sync.Once
}

// New creates an application from a validated configuration.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		config: cfg,
		logger: logger,
	}, nil
}

// Init builds every component. A missing detector model fails here.
// Call this after New() and before Run().
func (a *App) Init() error {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	camCfg, err := a.config.CameraSettings()
	if err != nil {
		return err
	}
	a.cameras = camera.NewManager(camCfg)
	a.cameras.OnConfigChange = func(cfg camera.Config) error {
		a.logger.Info("camera settings changed, applied on next start",
			"device", cfg.DeviceIndex, "width", cfg.Width, "height", cfg.Height)
		return nil
	}

	a.detector, err = opencv.New(a.config.DetectorSettings(), a.logger)
	if err != nil {
		return fmt.Errorf("detector init: %w", err)
	}

	snapCfg, err := a.config.SnapshotSettings()
	if err != nil {
		return err
	}
	a.snapshots = snapshot.NewWriter(snapCfg, a.logger)

	var surface stream.Surface
	if a.config.Display.Headless {
		a.headless = display.NewHeadless()
		surface = a.headless
	} else {
		a.window = display.NewWindow(a.config.Display.Title, a.logger)
		a.window.SetHint(KeyHelp)
		surface = a.window
	}

	opts, err := a.config.StreamOptions()
	if err != nil {
		return err
	}
	opts.Logger = a.logger
	opts.Metrics = stream.NewMetrics(a.registry)

	// The device index is read from the manager so the control API can
	// switch cameras between sessions.
	base := device.NewOpener(a.cameras, a.logger)
	opener := camera.OpenerFunc(func(int) (camera.Source, error) {
		return base.Open(a.cameras.GetConfig().DeviceIndex)
	})

	a.scheduler = stream.New(opener, a.detector, surface, a.snapshots, opts)
	a.controls = NewControls(a.scheduler, a.logger)

	if a.config.Web.Listen != "" {
		a.server = web.NewServer(a.scheduler, a.cameras, a.registry, a.logger)
	}

	a.logger.Info("facecam initialized",
		"detector", a.config.Detector.Backend,
		"camera", camCfg.Backend,
		"device", camCfg.DeviceIndex,
		"headless", a.config.Display.Headless,
		"web", a.config.Web.Listen)
	return nil
}

// Scheduler returns the stream scheduler.
func (a *App) Scheduler() *stream.Scheduler {
	return a.scheduler
}

// Controls returns the key and button mapping.
func (a *App) Controls() *Controls {
	return a.controls
}

// Headless returns the headless surface, or nil when a window is used.
func (a *App) Headless() *display.Headless {
	return a.headless
}

// Run starts the background tasks and blocks until ctx is cancelled or
// the user quits from the window.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := a.scheduler.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.dispatchEvents(ctx, events)
	}()

	errc := make(chan error, 1)
	if a.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.ListenAndServe(ctx, a.config.Web.Listen); err != nil {
				a.logger.Error("control API stopped", "error", err)
				errc <- err
				cancel()
			}
		}()
	}

	if a.config.Stream.AutoStart {
		if err := a.scheduler.Start(); err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("stream start: %w", err)
		}
	}

	if a.window != nil {
		if err := a.window.Run(ctx, a.controls.HandleKey); err != nil {
			a.logger.Error("display failed", "error", err)
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	wg.Wait()
	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

// dispatchEvents forwards lifecycle events to the window and the control
// API until ctx is done.
func (a *App) dispatchEvents(ctx context.Context, events <-chan stream.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == stream.EventStateChanged {
				a.logger.Info("stream state changed", "from", ev.Previous, "to", ev.State, "session", ev.Session)
				if a.window != nil {
					a.window.SetState(ev.State)
				}
			}
			if a.server != nil {
				a.server.Publish(ev)
			}
		}
	}
}

// Shutdown stops the stream and releases the detector. It is safe to call
// more than once.
func (a *App) Shutdown() error {
	var err error
	a.closeOnce.Do(func() {
		a.logger.Info("shutting down")
		if a.scheduler != nil {
			err = errors.Join(err, a.scheduler.Stop())
		}
		if a.detector != nil {
			err = errors.Join(err, a.detector.Close())
		}
	})
	return err
}
