package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/render"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default should be valid: %v", err)
	}
	if cfg.Detector.ModelPath != "models/haarcascade_frontalface_default.xml" {
		t.Errorf("ModelPath: got %q", cfg.Detector.ModelPath)
	}
	if cfg.Snapshot.Dir != "screenshots" {
		t.Errorf("Snapshot.Dir: got %q", cfg.Snapshot.Dir)
	}
	if cfg.Display.Scale != 1.0 {
		t.Errorf("Display.Scale: got %v", cfg.Display.Scale)
	}
	if cfg.Web.Listen != "" {
		t.Errorf("Web.Listen should be disabled by default, got %q", cfg.Web.Listen)
	}

	opts, err := cfg.StreamOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.LiveFlip != render.FlipVertical || opts.Interval != time.Second/30 {
		t.Errorf("StreamOptions: got %+v", opts)
	}

	snap, err := cfg.SnapshotSettings()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Flip != render.FlipHorizontal {
		t.Errorf("snapshot flip: got %v", snap.Flip)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"same flips", func(c *Config) { c.Snapshot.Flip = c.Stream.LiveFlip }, "must differ"},
		{"bad flip", func(c *Config) { c.Stream.LiveFlip = "diagonal" }, "unknown flip"},
		{"negative interval", func(c *Config) { c.Stream.Interval = -time.Millisecond }, "stream.interval"},
		{"zero scale", func(c *Config) { c.Display.Scale = 0 }, "display.scale"},
		{"no snapshot dir", func(c *Config) { c.Snapshot.Dir = "" }, "snapshot.dir"},
		{"bad detector", func(c *Config) { c.Detector.Backend = "dlib" }, "detector.backend"},
		{"no model", func(c *Config) { c.Detector.ModelPath = "" }, "model_path"},
		{"bad camera width", func(c *Config) { c.Camera.Width = 10 }, "width"},
		{"bad camera backend", func(c *Config) { c.Camera.Backend = "v4l" }, "backend must be"},
		{"bad preset", func(c *Config) { c.Camera.Preset = "8k" }, "unknown camera preset"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Display.Scale = -1
	cfg.Snapshot.Dir = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "display.scale") || !strings.Contains(err.Error(), "snapshot.dir") {
		t.Errorf("expected both problems, got %v", err)
	}
}

func TestValidate_MockDetectorNeedsNoModel(t *testing.T) {
	cfg := Default()
	cfg.Detector.Backend = "mock"
	cfg.Detector.ModelPath = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCameraSettings(t *testing.T) {
	cfg := Default()
	cfg.Camera.Device = 2
	cfg.Camera.Backend = "mock"
	cfg.Camera.Preset = camera.PresetVGA

	cam, err := cfg.CameraSettings()
	if err != nil {
		t.Fatal(err)
	}
	if cam.Width != 640 || cam.Height != 480 || cam.DeviceIndex != 2 || cam.Backend != camera.BackendMock {
		t.Errorf("CameraSettings: got %+v", cam)
	}
}

func TestStreamOptions_IntervalFollowsFramerate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		interval time.Duration
	}{
		{"default", func(c *Config) {}, time.Second / 30},
		{"framerate", func(c *Config) { c.Camera.Framerate = 15 }, time.Second / 15},
		{"explicit", func(c *Config) { c.Camera.Framerate = 15; c.Stream.Interval = 50 * time.Millisecond }, 50 * time.Millisecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			opts, err := cfg.StreamOptions()
			if err != nil {
				t.Fatal(err)
			}
			if opts.Interval != tc.interval {
				t.Errorf("Interval: got %v, want %v", opts.Interval, tc.interval)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
camera:
  device: 1
  backend: mock
detector:
  model_path: /opt/models/face.xml
stream:
  interval: 50ms
snapshot:
  dir: /tmp/shots
  unique_names: true
web:
  listen: 127.0.0.1:8090
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Device != 1 || cfg.Camera.Backend != "mock" {
		t.Errorf("camera: %+v", cfg.Camera)
	}
	if cfg.Detector.ModelPath != "/opt/models/face.xml" {
		t.Errorf("model path: %q", cfg.Detector.ModelPath)
	}
	if cfg.Stream.Interval != 50*time.Millisecond {
		t.Errorf("interval: %v", cfg.Stream.Interval)
	}
	if !cfg.Snapshot.UniqueNames || cfg.Snapshot.Dir != "/tmp/shots" {
		t.Errorf("snapshot: %+v", cfg.Snapshot)
	}
	if cfg.Web.Listen != "127.0.0.1:8090" {
		t.Errorf("web: %+v", cfg.Web)
	}

	// Unset keys keep their defaults
	if cfg.Camera.Width != 320 || cfg.Display.Scale != 1.0 {
		t.Errorf("defaults lost: %+v %+v", cfg.Camera, cfg.Display)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FACECAM_SNAPSHOT_DIR", "/var/shots")
	t.Setenv("FACECAM_CAMERA_DEVICE", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Snapshot.Dir != "/var/shots" || cfg.Camera.Device != 3 {
		t.Errorf("env not applied: %+v %+v", cfg.Snapshot, cfg.Camera)
	}
	if cfg.Detector.ModelPath == "" {
		t.Error("defaults lost")
	}
}

func TestParse_FlagsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facecam.yaml")
	if err := os.WriteFile(path, []byte("camera:\n  device: 1\nweb:\n  listen: :9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fetch bool
	cfg, err := Parse("facecam", []string{"--config", path, "-d", "4", "--headless", "--fetch-model"}, func(fs *pflag.FlagSet) {
		fs.BoolVar(&fetch, "fetch-model", false, "")
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Camera.Device != 4 {
		t.Errorf("flag should override file: device %d", cfg.Camera.Device)
	}
	if cfg.Web.Listen != ":9000" {
		t.Errorf("file value lost: %q", cfg.Web.Listen)
	}
	if !cfg.Display.Headless || !fetch {
		t.Errorf("flags not applied: headless=%v fetch=%v", cfg.Display.Headless, fetch)
	}
}

func TestParse_UnknownFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := Parse("facecam", []string{"--bogus"}, nil); err == nil {
		t.Error("expected error for unknown flag")
	}
}
