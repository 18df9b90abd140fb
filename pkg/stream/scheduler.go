// Package stream drives the capture pipeline on a fixed interval and owns
// the Stopped/Running/Paused lifecycle.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facecam/pkg/annotate"
	"github.com/teslashibe/go-facecam/pkg/camera"
	"github.com/teslashibe/go-facecam/pkg/detection"
	"github.com/teslashibe/go-facecam/pkg/frame"
	"github.com/teslashibe/go-facecam/pkg/render"
	"github.com/teslashibe/go-facecam/pkg/snapshot"
)

// DefaultInterval is the tick period (30 ticks per second).
const DefaultInterval = time.Second / 30

// Surface receives every published buffer.
type Surface interface {
	SetBuffer(buf render.Buffer)
}

// Clearer is implemented by surfaces that drop their buffer when the
// stream stops. Clear is called under the same lock as ticks, so it never
// races a buffer from the next session.
type Clearer interface {
	Clear()
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func(buf render.Buffer)

// SetBuffer calls f.
func (f SurfaceFunc) SetBuffer(buf render.Buffer) {
	f(buf)
}

// Options configures a Scheduler.
type Options struct {
	Interval    time.Duration
	DeviceIndex int
	LiveFlip    render.FlipMode
	Converter   *render.Converter
	Metrics     *Metrics
	Logger      *slog.Logger
}

// DefaultOptions returns 30 ticks per second on device 0 with the live
// flip.
func DefaultOptions() Options {
	return Options{
		Interval: DefaultInterval,
		LiveFlip: render.DefaultLiveFlip,
	}
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State     State         `json:"state"`
	Session   string        `json:"session,omitempty"`
	Interval  time.Duration `json:"interval_ns"`
	Ticks     uint64        `json:"ticks"`
	Published uint64        `json:"published"`
	Dropped   uint64        `json:"dropped"`
	Failed    uint64        `json:"failed"`
	HasFrame  bool          `json:"has_frame"`
	LastFrame *time.Time    `json:"last_frame,omitempty"`
}

// session is one Start..Stop span.
type session struct {
	id     uuid.UUID
	source camera.Source
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs acquire, detect, annotate, convert and publish once per
// tick while Running. Ticks and control calls are serialized by one mutex,
// so a control call only ever observes completed ticks.
type Scheduler struct {
	opener    camera.Opener
	detector  detection.Detector
	surface   Surface
	snapshots *snapshot.Writer
	converter *render.Converter
	opts      Options
	metrics   *Metrics
	logger    *slog.Logger
	events    broadcaster

	mu        sync.Mutex
	state     State
	sess      *session
	last      *frame.Frame
	lastAt    time.Time
	ticks     uint64
	published uint64
	dropped   uint64
	failed    uint64
}

// New creates a stopped scheduler.
func New(opener camera.Opener, detector detection.Detector, surface Surface, snapshots *snapshot.Writer, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Converter == nil {
		opts.Converter = &render.Converter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if surface == nil {
		surface = SurfaceFunc(func(render.Buffer) {})
	}

	s := &Scheduler{
		opener:    opener,
		detector:  detector,
		surface:   surface,
		snapshots: snapshots,
		converter: opts.Converter,
		opts:      opts,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("component", "stream"),
	}
	s.metrics.state(Stopped)
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns counters and the current session.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		Interval:  s.opts.Interval,
		Ticks:     s.ticks,
		Published: s.published,
		Dropped:   s.dropped,
		Failed:    s.failed,
		HasFrame:  s.last != nil,
	}
	if !s.lastAt.IsZero() {
		at := s.lastAt
		st.LastFrame = &at
	}
	if s.sess != nil {
		st.Session = s.sess.id.String()
	}
	return st
}

// Subscribe returns a channel of lifecycle events and a function that
// unsubscribes and closes it.
func (s *Scheduler) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// Start opens the capture source and arms the ticker. It is only valid
// from Stopped; otherwise it returns ErrAlreadyRunning.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Stopped {
		return ErrAlreadyRunning
	}

	src, err := s.opener.Open(s.opts.DeviceIndex)
	if err != nil {
		s.logger.Error("failed to open capture source", "device", s.opts.DeviceIndex, "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.New(),
		source: src,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.sess = sess
	s.ticks, s.published, s.dropped, s.failed = 0, 0, 0, 0

	go s.run(ctx, sess)

	s.logger.Info("stream started", "session", sess.id, "interval", s.opts.Interval)
	s.setState(Running)
	return nil
}

// TogglePause switches between Running and Paused and returns the new
// state. The ticker keeps running while paused.
func (s *Scheduler) TogglePause() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Running:
		s.setState(Paused)
	case Paused:
		s.setState(Running)
	default:
		return s.state, fmt.Errorf("%w: cannot pause while %s", ErrInvalidTransition, s.state)
	}
	s.logger.Info("stream toggled", "state", s.state)
	return s.state, nil
}

// Stop disarms the ticker, releases the source and discards the last
// frame. Stopping a stopped scheduler does nothing.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return nil
	}

	sess := s.sess
	sess.cancel()
	err := sess.source.Release()
	if err != nil {
		s.logger.Warn("failed to release capture source", "error", err)
	}
	s.logger.Info("stream stopped", "session", sess.id, "published", s.published)
	if c, ok := s.surface.(Clearer); ok {
		c.Clear()
	}
	s.setState(Stopped)
	s.sess = nil
	s.last = nil
	s.lastAt = time.Time{}
	s.mu.Unlock()

	// The loop may be waiting on mu; wait outside it.
	<-sess.done
	return err
}

// Capture writes the last processed frame as a snapshot and returns its
// path. With no processed frame it returns snapshot.ErrNoFrameAvailable,
// which also matches ErrInvalidTransition while Stopped.
func (s *Scheduler) Capture() (string, error) {
	s.mu.Lock()
	state, last := s.state, s.last
	var sessID string
	if s.sess != nil {
		sessID = s.sess.id.String()
	}
	s.mu.Unlock()

	var (
		path string
		err  error
	)
	switch {
	case state == Stopped:
		err = fmt.Errorf("%w: %w", snapshot.ErrNoFrameAvailable, ErrInvalidTransition)
	case last == nil:
		err = snapshot.ErrNoFrameAvailable
	case s.snapshots == nil:
		err = fmt.Errorf("stream: snapshots disabled")
	default:
		// Frames are never mutated once stored, so no lock is needed here.
		path, err = s.snapshots.Capture(last)
	}

	s.metrics.snapshot(err)
	ev := Event{Type: EventSnapshot, State: state, Previous: state, Session: sessID, Path: path, Time: time.Now()}
	if err != nil {
		ev.Error = err.Error()
		s.logger.Warn("snapshot failed", "error", err)
	}
	s.events.publish(ev)
	return path, err
}

// setState must be called with mu held.
func (s *Scheduler) setState(next State) {
	prev := s.state
	s.state = next
	s.metrics.state(next)

	ev := Event{Type: EventStateChanged, State: next, Previous: prev, Time: time.Now()}
	if s.sess != nil {
		ev.Session = s.sess.id.String()
	}
	s.events.publish(ev)
}

func (s *Scheduler) run(ctx context.Context, sess *session) {
	defer close(sess.done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(sess) {
				return
			}
		}
	}
}

// tick processes one frame for sess. It returns false once sess is no
// longer the active session.
func (s *Scheduler) tick(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != sess || s.state == Stopped {
		return false
	}

	s.ticks++
	start := time.Now()
	result := s.step(sess.source)
	s.metrics.tick(result, time.Since(start))
	return true
}

// step must be called with mu held. Failures are logged and skip the
// tick; they never change the state.
func (s *Scheduler) step(src camera.Source) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.failed++
			s.logger.Error("tick panicked", "panic", r)
			result = ResultError
		}
	}()

	f, err := src.Read()
	if s.state == Paused {
		// Keep draining the device so resuming shows a fresh frame.
		s.dropped++
		return ResultPaused
	}
	if err != nil {
		s.logger.Debug("frame read failed", "error", err)
		return ResultReadError
	}

	regions, err := s.detector.Detect(f)
	if err != nil {
		s.failed++
		s.logger.Warn("face detection failed", "error", err)
		return ResultError
	}
	s.metrics.faces(len(regions))

	annotated, _ := annotate.Process(f, regions)

	buf, err := s.converter.ToBuffer(annotated, s.opts.LiveFlip)
	if err != nil {
		s.failed++
		s.logger.Warn("buffer conversion failed", "error", err)
		return ResultError
	}

	s.surface.SetBuffer(buf)
	s.last = annotated
	s.lastAt = time.Now()
	s.published++
	return ResultPublished
}
