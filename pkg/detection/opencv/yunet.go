package opencv

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/frame"
)

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	mu       sync.Mutex // Protects inference
	size     image.Point
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg detection.Config) (*YuNetDetector, error) {
	if err := detection.CheckModel(cfg.ModelPath); err != nil {
		return nil, err
	}

	size := image.Pt(cfg.InputWidth, cfg.InputHeight)

	// Input size is updated per frame when the camera size differs
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",                            // No config file needed for ONNX
		size,                          // Initial input size
		float32(cfg.ConfidenceThresh), // Score threshold
		0.3,                           // NMS threshold
		5000,                          // Top K
		int(gocv.NetBackendDefault),   // Backend
		int(gocv.NetTargetCPU),        // Target
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
		size:     size,
	}, nil
}

// Detect finds faces in f. Regions keep the detector's output order.
func (d *YuNetDetector) Detect(f *frame.Frame) ([]frame.Region, error) {
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

	if size := image.Pt(f.Width, f.Height); size != d.size {
		d.detector.SetInputSize(size)
		d.size = size
	}

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	regions := make([]frame.Region, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		regions = append(regions, frame.Region{
			X:      int(faces.GetFloatAt(r, 0)),
			Y:      int(faces.GetFloatAt(r, 1)),
			Width:  int(faces.GetFloatAt(r, 2)),
			Height: int(faces.GetFloatAt(r, 3)),
		})
	}
	return regions, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
