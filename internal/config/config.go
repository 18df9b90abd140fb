// Package config loads facecam settings from facecam.yaml, FACECAM_*
// environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"

	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/render"
	"github.com/teslashibe/go-facecam/pkg/snapshot"
	"github.com/teslashibe/go-facecam/pkg/stream"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. FACECAM_WEB_LISTEN.
	EnvPrefix = "FACECAM"

	// FileName is the config file searched for in the default dirs.
	FileName = "facecam.yaml"
)

// DefaultModelURL is where --fetch-model downloads the frontal face
// cascade from.
const DefaultModelURL = "https://raw.githubusercontent.com/opencv/opencv/4.x/data/haarcascades/haarcascade_frontalface_default.xml"

type LogConfig struct {
	Level  string `fig:"level"`
	Format string `fig:"format"`
}

type CameraConfig struct {
	Backend   string `fig:"backend"`
	Device    int    `fig:"device"`
	Preset    string `fig:"preset"`
	Width     int    `fig:"width"`
	Height    int    `fig:"height"`
	Framerate int    `fig:"framerate"`
	LockDir   string `fig:"lock_dir"`
}

type DetectorConfig struct {
	Backend      string  `fig:"backend"`
	ModelPath    string  `fig:"model_path"`
	ModelURL     string  `fig:"model_url"`
	ScaleFactor  float64 `fig:"scale_factor"`
	MinNeighbors int     `fig:"min_neighbors"`
	Confidence   float64 `fig:"confidence"`
}

type StreamConfig struct {
	// Interval between ticks. Zero follows the camera framerate.
	Interval time.Duration `fig:"interval"`
	LiveFlip string        `fig:"live_flip"`

	// AutoStart starts streaming at launch instead of waiting for a
	// start command.
	AutoStart bool `fig:"autostart"`
}

type DisplayConfig struct {
	Headless bool    `fig:"headless"`
	Title    string  `fig:"title"`
	Scale    float64 `fig:"scale"`
}

type SnapshotConfig struct {
	Dir         string `fig:"dir"`
	Flip        string `fig:"flip"`
	UniqueNames bool   `fig:"unique_names"`
	Label       bool   `fig:"label"`
}

type WebConfig struct {
	// Listen is the control API address. Empty disables the API.
	Listen string `fig:"listen"`
}

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig      `fig:"log"`
	Camera   CameraConfig   `fig:"camera"`
	Detector DetectorConfig `fig:"detector"`
	Stream   StreamConfig   `fig:"stream"`
	Display  DisplayConfig  `fig:"display"`
	Snapshot SnapshotConfig `fig:"snapshot"`
	Web      WebConfig      `fig:"web"`
}

// Default returns the built-in configuration: 320x240 capture on device
// 0, the Haar cascade, 30 ticks per second and ./screenshots.
func Default() Config {
	cam := camera.DefaultConfig()
	det := detection.DefaultConfig()
	snap := snapshot.DefaultConfig()

	return Config{
		Log: LogConfig{Level: "info"},
		Camera: CameraConfig{
			Backend:   string(cam.Backend),
			Device:    cam.DeviceIndex,
			Width:     cam.Width,
			Height:    cam.Height,
			Framerate: cam.Framerate,
		},
		Detector: DetectorConfig{
			Backend:      det.Backend,
			ModelPath:    det.ModelPath,
			ModelURL:     DefaultModelURL,
			ScaleFactor:  det.ScaleFactor,
			MinNeighbors: det.MinNeighbors,
			Confidence:   det.ConfidenceThresh,
		},
		Stream: StreamConfig{
			LiveFlip: render.DefaultLiveFlip.String(),
		},
		Display: DisplayConfig{
			Title: "facecam",
			Scale: 1.0,
		},
		Snapshot: SnapshotConfig{
			Dir:  snap.Dir,
			Flip: snap.Flip.String(),
		},
	}
}

// Load reads path, or FileName from ".", "configs" and "$HOME/.facecam"
// when path is empty, then applies FACECAM_* variables. A missing default
// file is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	opts := []fig.Option{fig.UseEnv(EnvPrefix)}
	if path != "" {
		opts = append(opts, fig.File(filepath.Base(path)), fig.Dirs(filepath.Dir(path)))
	} else {
		dirs := []string{".", "configs"}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".facecam"))
		}
		opts = append(opts, fig.File(FileName), fig.Dirs(dirs...))
	}

	err := fig.Load(&cfg, opts...)
	if path == "" && errors.Is(err, fig.ErrFileNotFound) {
		cfg = Default()
		err = fig.Load(&cfg, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// AddFlags binds command-line overrides to c. Flag defaults are the
// current values, so only flags given on the command line change c.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.Log.Format, "log.format", c.Log.Format, "Log format (text, json)")

	fs.StringVar(&c.Camera.Backend, "camera.backend", c.Camera.Backend, "Capture backend (device, mock)")
	fs.IntVarP(&c.Camera.Device, "camera.device", "d", c.Camera.Device, "Camera device index")
	fs.StringVar(&c.Camera.Preset, "camera.preset", c.Camera.Preset, "Capture preset (default, vga, 720p, 1080p)")
	fs.IntVar(&c.Camera.Width, "camera.width", c.Camera.Width, "Requested frame width")
	fs.IntVar(&c.Camera.Height, "camera.height", c.Camera.Height, "Requested frame height")
	fs.IntVar(&c.Camera.Framerate, "camera.framerate", c.Camera.Framerate, "Requested frame rate")

	fs.StringVar(&c.Detector.Backend, "detector.backend", c.Detector.Backend, "Face detector (cascade, yunet, mock)")
	fs.StringVarP(&c.Detector.ModelPath, "detector.model", "m", c.Detector.ModelPath, "Face detection model file")

	fs.DurationVar(&c.Stream.Interval, "stream.interval", c.Stream.Interval, "Tick interval, 0 follows the camera framerate")
	fs.StringVar(&c.Stream.LiveFlip, "stream.flip", c.Stream.LiveFlip, "Live buffer flip (none, vertical, horizontal, both)")
	fs.BoolVar(&c.Stream.AutoStart, "autostart", c.Stream.AutoStart, "Start streaming at launch")

	fs.BoolVar(&c.Display.Headless, "headless", c.Display.Headless, "Run without a window")
	fs.Float64Var(&c.Display.Scale, "display.scale", c.Display.Scale, "Display scale factor")

	fs.StringVarP(&c.Snapshot.Dir, "snapshot.dir", "o", c.Snapshot.Dir, "Snapshot folder (must exist)")
	fs.BoolVar(&c.Snapshot.UniqueNames, "snapshot.unique", c.Snapshot.UniqueNames, "Add milliseconds to snapshot names")

	fs.StringVar(&c.Web.Listen, "web.listen", c.Web.Listen, "Control API address, empty to disable")
}

// Parse loads the configuration named by --config (or the default
// search) and applies the remaining flags on top. extra may register
// command-specific flags on the same set.
func Parse(name string, args []string, extra func(fs *pflag.FlagSet)) (Config, error) {
	pre := pflag.NewFlagSet(name, pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}
	path := pre.StringP("config", "c", "", "")
	_ = pre.Parse(args)

	cfg, err := Load(*path)
	if err != nil {
		return Config{}, err
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", *path, "Config file path")
	cfg.AddFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CameraSettings returns the capture configuration. A preset, when set,
// replaces the explicit width, height and framerate.
func (c Config) CameraSettings() (camera.Config, error) {
	cfg := camera.DefaultConfig()
	if c.Camera.Preset != "" {
		preset := camera.GetPreset(c.Camera.Preset)
		if preset == nil {
			return camera.Config{}, fmt.Errorf("unknown camera preset %q", c.Camera.Preset)
		}
		cfg = *preset
	} else {
		cfg.Width, cfg.Height, cfg.Framerate = c.Camera.Width, c.Camera.Height, c.Camera.Framerate
	}
	cfg.Backend = camera.Backend(c.Camera.Backend)
	cfg.DeviceIndex = c.Camera.Device
	cfg.LockDir = c.Camera.LockDir
	return cfg, nil
}

// DetectorSettings returns the detector configuration.
func (c Config) DetectorSettings() detection.Config {
	cfg := detection.DefaultConfig()
	cfg.Backend = c.Detector.Backend
	cfg.ModelPath = c.Detector.ModelPath
	if c.Detector.ScaleFactor > 0 {
		cfg.ScaleFactor = c.Detector.ScaleFactor
	}
	if c.Detector.MinNeighbors > 0 {
		cfg.MinNeighbors = c.Detector.MinNeighbors
	}
	if c.Detector.Confidence > 0 {
		cfg.ConfidenceThresh = c.Detector.Confidence
	}
	return cfg
}

// SnapshotSettings returns the snapshot writer configuration.
func (c Config) SnapshotSettings() (snapshot.Config, error) {
	flip, err := render.ParseFlip(c.Snapshot.Flip)
	if err != nil {
		return snapshot.Config{}, err
	}
	return snapshot.Config{
		Dir:         c.Snapshot.Dir,
		Flip:        flip,
		UniqueNames: c.Snapshot.UniqueNames,
		Label:       c.Snapshot.Label,
	}, nil
}

// StreamOptions returns scheduler options without logger or metrics.
func (c Config) StreamOptions() (stream.Options, error) {
	flip, err := render.ParseFlip(c.Stream.LiveFlip)
	if err != nil {
		return stream.Options{}, err
	}
	interval := c.Stream.Interval
	if interval == 0 {
		cam, err := c.CameraSettings()
		if err != nil {
			return stream.Options{}, err
		}
		interval = cam.FrameInterval()
	}
	return stream.Options{
		Interval:    interval,
		DeviceIndex: c.Camera.Device,
		LiveFlip:    flip,
		Converter:   render.NewConverter(c.Display.Scale),
	}, nil
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	cam, err := c.CameraSettings()
	if err != nil {
		errs = append(errs, err)
	} else {
		for _, msg := range cam.Validate() {
			errs = append(errs, fmt.Errorf("camera: %s", msg))
		}
	}

	switch c.Detector.Backend {
	case detection.BackendCascade, detection.BackendYuNet, detection.BackendMock:
	default:
		errs = append(errs, fmt.Errorf("detector.backend must be cascade, yunet or mock"))
	}
	if c.Detector.Backend != detection.BackendMock && c.Detector.ModelPath == "" {
		errs = append(errs, fmt.Errorf("detector.model_path is required"))
	}

	if c.Stream.Interval < 0 {
		errs = append(errs, fmt.Errorf("stream.interval must not be negative"))
	}
	live, liveErr := render.ParseFlip(c.Stream.LiveFlip)
	if liveErr != nil {
		errs = append(errs, liveErr)
	}
	snap, snapErr := render.ParseFlip(c.Snapshot.Flip)
	if snapErr != nil {
		errs = append(errs, snapErr)
	}
	if liveErr == nil && snapErr == nil && live == snap {
		errs = append(errs, fmt.Errorf("snapshot.flip must differ from stream.live_flip (both %s)", live))
	}

	if c.Display.Scale <= 0 {
		errs = append(errs, fmt.Errorf("display.scale must be positive"))
	}
	if c.Snapshot.Dir == "" {
		errs = append(errs, fmt.Errorf("snapshot.dir is required"))
	}

	return errors.Join(errs...)
}
