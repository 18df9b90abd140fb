// Package opencv implements face detectors on gocv: a Haar cascade and
// YuNet. Models are loaded once per detector.
package opencv

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-facecam/pkg/detection"
)

var (
	_ detection.Detector = (*CascadeDetector)(nil)
	_ detection.Detector = (*YuNetDetector)(nil)
)

// New creates the detector selected by cfg.Backend.
func New(cfg detection.Config, logger *slog.Logger) (detection.Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Backend == detection.BackendMock {
		logger.Warn("using mock face detector, no faces will be found")
		return detection.NewMock(), nil
	}

	if err := detection.CheckModel(cfg.ModelPath); err != nil {
		return nil, err
	}

	logger.Info("loading face detector", "backend", cfg.Backend, "model", cfg.ModelPath)

	switch cfg.Backend {
	case detection.BackendCascade, "":
		return NewCascade(cfg)
	case detection.BackendYuNet:
		return NewYuNet(cfg)
	default:
		return nil, fmt.Errorf("detection: unsupported backend: %s", cfg.Backend)
	}
}
