package opencv

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/frame"
)

func TestNew_ModelMissing(t *testing.T) {
	tests := []struct {
		name string
		cfg  detection.Config
	}{
		{"cascade", detection.Config{Backend: detection.BackendCascade, ModelPath: "/nonexistent/cascade.xml"}},
		{"yunet", detection.Config{Backend: detection.BackendYuNet, ModelPath: "/nonexistent/model.onnx"}},
		{"empty path", detection.Config{Backend: detection.BackendCascade}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg, nil)
			if !errors.Is(err, detection.ErrModelMissing) {
				t.Errorf("New: got %v, want ErrModelMissing", err)
			}
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	model := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(model, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(detection.Config{Backend: "dlib", ModelPath: model}, nil)
	if err == nil || errors.Is(err, detection.ErrModelMissing) {
		t.Errorf("New: got %v, want unsupported backend error", err)
	}
}

func TestNew_Mock(t *testing.T) {
	d, err := New(detection.Config{Backend: detection.BackendMock}, nil)
	if err != nil {
		t.Fatalf("New mock: %v", err)
	}
	regions, err := d.Detect(frame.New(8, 8))
	if err != nil || len(regions) != 0 {
		t.Errorf("mock Detect: got %v, %v", regions, err)
	}
}

// The tests below need real model files and skip when they are not present.

func TestCascade_SolidFrame(t *testing.T) {
	modelPath := findModelPath("haarcascade_frontalface_default.xml")
	if modelPath == "" {
		t.Skip("Haar cascade not found, skipping test")
	}

	cfg := detection.DefaultConfig()
	cfg.ModelPath = modelPath

	d, err := NewCascade(cfg)
	if err != nil {
		t.Fatalf("NewCascade failed: %v", err)
	}
	defer d.Close()

	f := frame.New(320, 240)
	f.Fill(f.Bounds(), frame.BGR{B: 255})

	regions, err := d.Detect(f)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) > 0 {
		t.Errorf("Expected no detections in solid color frame, got %d", len(regions))
	}

	if _, err := d.Detect(&frame.Frame{}); err == nil {
		t.Error("Expected error for empty frame")
	}
}

func TestYuNet_SolidFrame(t *testing.T) {
	modelPath := findModelPath("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := detection.DefaultYuNetConfig()
	cfg.ModelPath = modelPath

	d, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer d.Close()

	f := frame.New(320, 240)
	f.Fill(f.Bounds(), frame.BGR{B: 100, G: 100, R: 100})

	// Run concurrent detections
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			regions, err := d.Detect(f)
			if err != nil {
				t.Errorf("Concurrent detection failed: %v", err)
			}
			if len(regions) > 0 {
				t.Errorf("Expected no detections, got %d", len(regions))
			}
		}()
	}
	wg.Wait()
}

// Helper functions

func findModelPath(name string) string {
	if cwd, err := os.Getwd(); err == nil {
		// Walk up to find models directory
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			modelPath := filepath.Join(dir, "models", name)
			if _, err := os.Stat(modelPath); err == nil {
				return modelPath
			}
		}
	}
	return ""
}
