package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/snapshot"
	"github.com/teslashibe/go-facecam/pkg/stream"
)

// fakeController records calls and returns canned errors.
type fakeController struct {
	mu       sync.Mutex
	state    stream.State
	startErr error
	pauseErr error
	stopErr  error
	capErr   error
	path     string
	calls    []string
}

func (f *fakeController) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeController) Start() error {
	f.record("start")
	if f.startErr == nil {
		f.state = stream.Running
	}
	return f.startErr
}

func (f *fakeController) TogglePause() (stream.State, error) {
	f.record("pause")
	if f.pauseErr != nil {
		return f.state, f.pauseErr
	}
	if f.state == stream.Running {
		f.state = stream.Paused
	} else {
		f.state = stream.Running
	}
	return f.state, nil
}

func (f *fakeController) Stop() error {
	f.record("stop")
	f.state = stream.Stopped
	return f.stopErr
}

func (f *fakeController) Capture() (string, error) {
	f.record("capture")
	return f.path, f.capErr
}

func (f *fakeController) Status() stream.Status {
	return stream.Status{State: f.state, Session: "abc"}
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return resp.StatusCode, out
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transition", stream.ErrInvalidTransition, http.StatusConflict},
		{"already running", stream.ErrAlreadyRunning, http.StatusConflict},
		{"no frame", snapshot.ErrNoFrameAvailable, http.StatusConflict},
		{"wrapped no frame", fmt.Errorf("x: %w", snapshot.ErrNoFrameAvailable), http.StatusConflict},
		{"device", fmt.Errorf("open: %w", camera.ErrDeviceUnavailable), http.StatusServiceUnavailable},
		{"folder", snapshot.ErrFolderMissing, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorStatus(tc.err); got != tc.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestLifecycleRoutes(t *testing.T) {
	ctrl := &fakeController{path: "screenshots/20240309_140507.png"}
	s := NewServer(ctrl, nil, nil, nil)

	code, body := do(t, s, http.MethodGet, "/api/status", "")
	if code != http.StatusOK || body["state"] != "stopped" {
		t.Fatalf("status: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPost, "/api/stream/start", "")
	if code != http.StatusOK || body["state"] != "running" {
		t.Errorf("start: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPost, "/api/stream/pause", "")
	if code != http.StatusOK || body["state"] != "paused" {
		t.Errorf("pause: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPost, "/api/snapshot", "")
	if code != http.StatusCreated || body["path"] != ctrl.path {
		t.Errorf("snapshot: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPost, "/api/stream/stop", "")
	if code != http.StatusOK || body["state"] != "stopped" {
		t.Errorf("stop: %d %v", code, body)
	}

	want := []string{"start", "pause", "capture", "stop"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls: got %v, want %v", ctrl.calls, want)
	}
}

func TestLifecycleErrors(t *testing.T) {
	tests := []struct {
		name string
		ctrl *fakeController
		path string
		want int
	}{
		{"start busy", &fakeController{startErr: stream.ErrAlreadyRunning}, "/api/stream/start", http.StatusConflict},
		{"start no device", &fakeController{startErr: camera.ErrDeviceUnavailable}, "/api/stream/start", http.StatusServiceUnavailable},
		{"pause stopped", &fakeController{pauseErr: stream.ErrInvalidTransition}, "/api/stream/pause", http.StatusConflict},
		{"snapshot no frame", &fakeController{capErr: snapshot.ErrNoFrameAvailable}, "/api/snapshot", http.StatusConflict},
		{"snapshot folder", &fakeController{capErr: snapshot.ErrFolderMissing}, "/api/snapshot", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(tc.ctrl, nil, nil, nil)
			code, body := do(t, s, http.MethodPost, tc.path, "")
			if code != tc.want {
				t.Errorf("got %d, want %d", code, tc.want)
			}
			if body["error"] == nil {
				t.Error("expected an error message")
			}
		})
	}
}

func TestCameraRoutes(t *testing.T) {
	mgr := camera.NewManager(camera.DefaultConfig())
	s := NewServer(&fakeController{}, mgr, nil, nil)

	code, body := do(t, s, http.MethodGet, "/api/camera", "")
	if code != http.StatusOK || body["width"] != float64(320) {
		t.Fatalf("get camera: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPut, "/api/camera", `{"preset":"vga"}`)
	if code != http.StatusOK || body["width"] != float64(640) {
		t.Errorf("preset: %d %v", code, body)
	}
	if mgr.GetConfig().Height != 480 {
		t.Errorf("manager not updated: %+v", mgr.GetConfig())
	}

	code, _ = do(t, s, http.MethodPut, "/api/camera", `{"width":10}`)
	if code != http.StatusBadRequest {
		t.Errorf("invalid width: got %d", code)
	}

	code, _ = do(t, s, http.MethodPut, "/api/camera", `{"preset":"8k"}`)
	if code != http.StatusBadRequest {
		t.Errorf("unknown preset: got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/camera/presets", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	json.NewDecoder(resp.Body).Decode(&names)
	resp.Body.Close()
	if len(names) != len(camera.PresetNames()) {
		t.Errorf("presets: got %v", names)
	}
}

func TestCameraRoutesDisabled(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil, nil)
	if code, _ := do(t, s, http.MethodGet, "/api/camera", ""); code != http.StatusNotFound {
		t.Errorf("got %d, want 404", code)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	stream.NewMetrics(reg).Ticks.WithLabelValues(stream.ResultPublished).Add(3)
	s := NewServer(&fakeController{}, nil, reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: got %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), `facecam_ticks_total{result="published"} 3`) {
		t.Errorf("metrics body missing tick counter:\n%s", data)
	}
}

func TestEventsRequireUpgrade(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil, nil)
	if code, _ := do(t, s, http.MethodGet, "/ws/events", ""); code != http.StatusUpgradeRequired {
		t.Errorf("got %d, want 426", code)
	}
}

func TestEventsWebSocket(t *testing.T) {
	ctrl := &fakeController{state: stream.Running}
	s := NewServer(ctrl, nil, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-served
	}()

	url := "ws://" + ln.Addr().String() + "/ws/events"
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first stream.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != stream.EventStatus || first.State != stream.Running {
		t.Errorf("first event: %+v", first)
	}

	// The client registers with the hub after the status message
	deadline = time.Now().Add(2 * time.Second)
	for s.events.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.Publish(stream.Event{Type: stream.EventStateChanged, State: stream.Paused, Previous: stream.Running})

	var ev stream.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != stream.EventStateChanged || ev.State != stream.Paused || ev.Previous != stream.Running {
		t.Errorf("event: %+v", ev)
	}
}

func TestEventsWebSocket_Reconnect(t *testing.T) {
	ctrl := &fakeController{state: stream.Running}
	s := NewServer(ctrl, nil, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-served
	}()

	url := "ws://" + ln.Addr().String() + "/ws/events"
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev stream.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if ev.Type != stream.EventStatus {
			t.Errorf("connection %d: first event %+v", i, ev)
		}
		conn.Close()
	}

	// Every connection is unregistered once its peer is gone
	deadline := time.Now().Add(2 * time.Second)
	for s.events.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := s.events.ClientCount(); n != 0 {
		t.Errorf("clients after disconnect: %d", n)
	}
}
