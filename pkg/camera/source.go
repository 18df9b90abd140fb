package camera

import (
	"errors"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// Sentinel errors for capture.
var (
	// ErrDeviceUnavailable is returned by Open when the camera cannot be
	// opened or is held by another process.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")

	// ErrFrameUnavailable is returned by Read when no frame is ready.
	// It is transient; the next read may succeed.
	ErrFrameUnavailable = errors.New("camera: frame unavailable")

	// ErrEndOfStream is returned by Read once the source has no more frames.
	ErrEndOfStream = errors.New("camera: end of stream")
)

// Source is an open capture device.
type Source interface {
	// Read returns a newly allocated frame.
	Read() (*frame.Frame, error)

	// Release frees the device. Calling it more than once is a no-op.
	Release() error
}

// Opener opens capture sources by device index.
type Opener interface {
	Open(deviceIndex int) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(deviceIndex int) (Source, error)

// Open calls f.
func (f OpenerFunc) Open(deviceIndex int) (Source, error) {
	return f(deviceIndex)
}
