package opencv

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/frame"
)

// CascadeDetector runs an OpenCV Haar cascade on a grayscale copy of the
// frame.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	config     detection.Config
	mu         sync.Mutex // Protects classifier and scratch mats
	gray       gocv.Mat
}

// NewCascade loads the cascade at cfg.ModelPath.
func NewCascade(cfg detection.Config) (*CascadeDetector, error) {
	if err := detection.CheckModel(cfg.ModelPath); err != nil {
		return nil, err
	}
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = 1.3
	}
	if cfg.MinNeighbors <= 0 {
		cfg.MinNeighbors = 5
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.ModelPath) {
		classifier.Close()
		return nil, fmt.Errorf("%w: failed to load cascade %s", detection.ErrModelMissing, cfg.ModelPath)
	}

	return &CascadeDetector{
		classifier: classifier,
		config:     cfg,
		gray:       gocv.NewMat(),
	}, nil
}

// Detect finds faces in f.
func (d *CascadeDetector) Detect(f *frame.Frame) ([]frame.Region, error) {
	if f.Empty() {
		return nil, fmt.Errorf("detection: empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := toMat(f)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	gocv.CvtColor(img, &d.gray, gocv.ColorBGRToGray)

	rects := d.classifier.DetectMultiScaleWithParams(
		d.gray,
		d.config.ScaleFactor,
		d.config.MinNeighbors,
		0,             // flags
		image.Point{}, // min size
		image.Point{}, // max size
	)

	regions := make([]frame.Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, frame.RegionFromRect(r))
	}
	return regions, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gray.Close()
	return d.classifier.Close()
}

// toMat copies a frame into a new 8-bit 3-channel Mat.
func toMat(f *frame.Frame) (gocv.Mat, error) {
	img, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("detection: frame to mat: %w", err)
	}
	return img, nil
}
