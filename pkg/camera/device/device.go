// Package device captures frames from a local camera through OpenCV and
// holds an exclusive lock on it while open.
package device

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/frame"
)

var _ camera.Source = (*Source)(nil)

// Source reads frames from a local camera through OpenCV.
type Source struct {
	index  int
	logger *slog.Logger

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	mat      gocv.Mat // reused between reads
	lock     *flock.Flock
	width    int // fixed by the first frame
	height   int
	released bool
}

// LockPath returns the lock file guarding device index.
func LockPath(dir string, index int) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("facecam-video%d.lock", index))
}

// Open opens the camera at cfg.DeviceIndex for exclusive use.
func Open(cfg camera.Config, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lock := flock.New(LockPath(cfg.LockDir, cfg.DeviceIndex))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock device %d: %v", camera.ErrDeviceUnavailable, cfg.DeviceIndex, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: device %d is in use by another process", camera.ErrDeviceUnavailable, cfg.DeviceIndex)
	}

	capture, err := gocv.VideoCaptureDevice(cfg.DeviceIndex)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("%w: device %d: %v", camera.ErrDeviceUnavailable, cfg.DeviceIndex, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		lock.Unlock()
		return nil, fmt.Errorf("%w: device %d did not open", camera.ErrDeviceUnavailable, cfg.DeviceIndex)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	// Keep the driver queue short so paused ticks do not build a backlog
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &Source{
		index:   cfg.DeviceIndex,
		logger:  logger.With("component", "camera", "device", cfg.DeviceIndex),
		capture: capture,
		mat:     gocv.NewMat(),
		lock:    lock,
	}, nil
}

// Read grabs one frame and copies it into a new Frame.
func (d *Source) Read() (*frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, camera.ErrEndOfStream
	}
	if !d.capture.Read(&d.mat) || d.mat.Empty() {
		return nil, camera.ErrFrameUnavailable
	}
	if d.mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: unexpected pixel type %v", camera.ErrFrameUnavailable, d.mat.Type())
	}

	w, h := d.mat.Cols(), d.mat.Rows()
	if d.width == 0 {
		d.width, d.height = w, h
		d.logger.Info("camera streaming", "width", w, "height", h)
	} else if w != d.width || h != d.height {
		return nil, fmt.Errorf("%w: frame size changed to %dx%d from %dx%d",
			camera.ErrFrameUnavailable, w, h, d.width, d.height)
	}

	// ToBytes copies, so the Mat can be reused on the next read
	return frame.FromBGR(w, h, d.mat.ToBytes())
}

// Release closes the device and drops the lock. Safe to call repeatedly.
func (d *Source) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true

	d.mat.Close()
	err := d.capture.Close()
	if uerr := d.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	d.logger.Info("camera released")
	return err
}

// NewOpener returns a camera.Opener for the configured backend. The
// manager is consulted on every Open so configuration changes apply to the
// next stream start.
func NewOpener(m *camera.Manager, logger *slog.Logger) camera.Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return camera.OpenerFunc(func(deviceIndex int) (camera.Source, error) {
		cfg := m.GetConfig()
		cfg.DeviceIndex = deviceIndex
		if errs := cfg.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("invalid camera config: %v", errs)
		}

		logger.Info("opening camera",
			"backend", cfg.Backend,
			"device", cfg.DeviceIndex,
			"width", cfg.Width,
			"height", cfg.Height,
			"fps", cfg.Framerate,
		)

		switch cfg.Backend {
		case camera.BackendMock:
			return camera.NewPatternSource(cfg.Width, cfg.Height), nil
		case camera.BackendDevice:
			return Open(cfg, logger)
		default:
			return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
		}
	})
}
