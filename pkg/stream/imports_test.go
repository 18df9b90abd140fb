package stream

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/teslashibe/go-facecam"

// The pipeline core must build and test without OpenCV; only the device,
// detector and window backends link gocv.
func TestCoreDoesNotImportOpenCV(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatal(err)
	}

	core := []string{"pkg/stream", "pkg/web", "pkg/snapshot", "internal/config"}
	seen := map[string]bool{}
	var visit func(pkg string, chain []string)
	visit = func(pkg string, chain []string) {
		if seen[pkg] {
			return
		}
		seen[pkg] = true

		files, err := filepath.Glob(filepath.Join(root, pkg, "*.go"))
		if err != nil {
			t.Fatal(err)
		}
		for _, file := range files {
			if strings.HasSuffix(file, "_test.go") {
				continue
			}
			f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ImportsOnly)
			if err != nil {
				t.Fatal(err)
			}
			for _, imp := range f.Imports {
				path, _ := strconv.Unquote(imp.Path.Value)
				if strings.HasPrefix(path, "gocv.io/") {
					t.Errorf("%s imports %s via %v", filepath.Base(file), path, append(chain, pkg))
				}
				if rel, ok := strings.CutPrefix(path, modulePath+"/"); ok {
					visit(rel, append(chain, pkg))
				}
			}
		}
	}

	for _, pkg := range core {
		if _, err := os.Stat(filepath.Join(root, pkg)); err != nil {
			t.Fatalf("missing package %s: %v", pkg, err)
		}
		visit(pkg, nil)
	}
	if !seen["pkg/camera"] || !seen["pkg/detection"] {
		t.Errorf("expected the core to reach camera and detection, saw %v", seen)
	}
}
