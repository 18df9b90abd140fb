// Package detection defines the face detector contract and a mock.
// The OpenCV backends live in detection/opencv so packages that only
// consume a Detector build without cgo.
package detection

import (
	"errors"
	"fmt"
	"os"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// ErrModelMissing is returned when the classifier model cannot be found
// or loaded. It is fatal at startup.
var ErrModelMissing = errors.New("detection: model missing")

// Detector is the interface for face detection backends.
// Implementations load their model once and reuse it for every call.
type Detector interface {
	// Detect returns candidate face regions in frame pixel coordinates,
	// in the backend's output order. An empty result is not an error.
	Detect(f *frame.Frame) ([]frame.Region, error)

	// Close releases resources
	Close() error
}

// Backend names
const (
	BackendCascade = "cascade"
	BackendYuNet   = "yunet"
	BackendMock    = "mock"
)

// Config holds detector configuration
type Config struct {
	Backend   string // "cascade", "yunet" or "mock"
	ModelPath string // Haar cascade XML or YuNet ONNX

	// Cascade parameters
	ScaleFactor  float64 // Image pyramid step (default 1.3)
	MinNeighbors int     // Overlapping hits required (default 5)

	// YuNet parameters
	ConfidenceThresh float64
	InputWidth       int
	InputHeight      int
}

// DefaultConfig returns the frontal face Haar cascade setup.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendCascade,
		ModelPath:        "models/haarcascade_frontalface_default.xml",
		ScaleFactor:      1.3,
		MinNeighbors:     5,
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// DefaultYuNetConfig returns production defaults for YuNet
func DefaultYuNetConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendYuNet
	cfg.ModelPath = "models/face_detection_yunet.onnx"
	return cfg
}

// CheckModel reports ErrModelMissing when path is empty or absent.
func CheckModel(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no model path configured", ErrModelMissing)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelMissing, path, err)
	}
	return nil
}
