// Package snapshot persists single still images of processed frames.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/teslashibe/go-facecam/pkg/annotate"
	"github.com/teslashibe/go-facecam/pkg/frame"
	"github.com/teslashibe/go-facecam/pkg/render"
)

// TimeLayout is the filename timestamp format (YYYYMMDD_HHMMSS).
const TimeLayout = "20060102_150405"

// Extension of persisted snapshots.
const Extension = ".png"

var (
	// ErrNoFrameAvailable is returned when no frame has been processed yet.
	ErrNoFrameAvailable = errors.New("snapshot: no frame available")

	// ErrFolderMissing is returned when the target folder does not exist.
	ErrFolderMissing = errors.New("snapshot: folder does not exist")
)

// Config controls where and how snapshots are written.
type Config struct {
	// Dir must already exist; it is never created.
	Dir string

	// Flip applied before encoding. It differs from the live buffer flip.
	Flip render.FlipMode

	// UniqueNames appends milliseconds to the name so that two snapshots
	// taken within the same second do not overwrite each other.
	UniqueNames bool

	// Label burns the capture timestamp into the top-left corner.
	Label bool
}

// DefaultConfig writes to ./screenshots with the snapshot flip and the
// one-file-per-second naming.
func DefaultConfig() Config {
	return Config{
		Dir:  "screenshots",
		Flip: render.DefaultSnapshotFlip,
	}
}

// Writer encodes frames and writes them under a timestamped name.
type Writer struct {
	cfg    Config
	conv   *render.Converter
	logger *slog.Logger

	// Now returns the capture time. Replaced in tests.
	Now func() time.Time
}

// NewWriter creates a snapshot writer.
func NewWriter(cfg Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		conv:   &render.Converter{},
		logger: logger.With("component", "snapshot"),
		Now:    time.Now,
	}
}

// Config returns the writer configuration.
func (w *Writer) Config() Config {
	return w.cfg
}

// Filename returns the file name used for a snapshot taken at t.
func (w *Writer) Filename(t time.Time) string {
	name := t.Format(TimeLayout)
	if w.cfg.UniqueNames {
		name = fmt.Sprintf("%s_%03d", name, t.Nanosecond()/int(time.Millisecond))
	}
	return name + Extension
}

// Capture encodes f and writes it to <dir>/<timestamp>.png, returning the
// path. A file with the same name is replaced.
func (w *Writer) Capture(f *frame.Frame) (string, error) {
	if f.Empty() {
		return "", ErrNoFrameAvailable
	}

	info, err := os.Stat(w.cfg.Dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFolderMissing, w.cfg.Dir)
	}

	now := w.Now()
	var overlays []render.Overlay
	if w.cfg.Label {
		stamp := now.Format(TimeLayout)
		overlays = append(overlays, func(dst draw.Image) {
			annotate.Caption(dst, image.Pt(4, 4), stamp)
		})
	}
	data, err := w.conv.Encode(f, w.cfg.Flip, overlays...)
	if err != nil {
		return "", err
	}

	// Readers never observe a partial image
	path := filepath.Join(w.cfg.Dir, w.Filename(now))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", path, err)
	}

	w.logger.Info("snapshot saved", "path", path, "bytes", len(data),
		"width", f.Width, "height", f.Height)
	return path, nil
}
