// Package camera defines capture sources, their settings and a mock
// backend. The OpenCV device backend is in camera/device.
package camera

import "time"

// Backend selects how frames are captured.
type Backend string

const (
	// BackendDevice reads from a local camera through OpenCV.
	BackendDevice Backend = "device"

	// BackendMock replays synthetic frames. Used in tests and demos.
	BackendMock Backend = "mock"
)

// Config holds capture parameters.
type Config struct {
	Backend Backend `json:"backend"`

	// DeviceIndex is the OS camera index (0, 1, ...).
	DeviceIndex int `json:"device_index"`

	// === Resolution ===
	// Requested from the driver; the device may pick the nearest mode.
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS

	// LockDir holds the per-device lock files that keep a second process
	// from opening the same camera. Empty uses os.TempDir().
	LockDir string `json:"lock_dir"`
}

// Capture limits
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the 320x240 capture the detector is tuned for.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendDevice,
		DeviceIndex: 0,
		Width:       320,
		Height:      240,
		Framerate:   30,
	}
}

// FrameInterval returns the time between frames at the configured rate.
func (c *Config) FrameInterval() time.Duration {
	if c.Framerate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Framerate)
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Backend {
	case BackendDevice, BackendMock:
	default:
		errors = append(errors, "backend must be device or mock")
	}

	if c.DeviceIndex < 0 {
		errors = append(errors, "device_index must not be negative")
	}

	// Resolution
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}

	return errors
}
