// Package session owns the learner-facing state: the timed recording
// session, the success flag for the current target sign, and the persisted
// peak score.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/prediction"
	"github.com/ayusman/signvision/internal/sign"
	"github.com/ayusman/signvision/internal/store"
)

// DefaultCountdown is the length of a recording session in seconds.
const DefaultCountdown = 5

// PeakStore persists the best confidence per normalized sign identifier.
// Max must apply the update atomically per key.
type PeakStore interface {
	Get(sign string) (float64, error)
	Max(sign string, v float64) (float64, error)
	Delete(sign string) error
}

// Capture gates frame transmission to the classifier.
type Capture interface {
	SetCapture(enabled bool, tag string)
}

// Camera is the capture device switch.
type Camera interface {
	Open() error
	Close() error
}

// Config configures a Controller.
type Config struct {
	// Countdown is the recording length in seconds. Defaults to 5.
	Countdown int

	// SuccessThreshold defaults to 90.
	SuccessThreshold float64

	// Target is the initially selected sign.
	Target string

	Store   PeakStore
	Capture Capture
	Camera  Camera

	// NewTag generates capture tags. Defaults to uuid.NewString.
	NewTag func() string

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Controller serializes capture, countdown and prediction events behind one
// mutex and publishes snapshots to subscribers.
type Controller struct {
	countdown int
	threshold float64
	store     PeakStore
	capture   Capture
	camera    Camera
	newTag    func() string
	metrics   *observe.Metrics
	log       *slog.Logger

	restart chan struct{}

	mu    sync.Mutex
	state Snapshot
	subs  map[chan Snapshot]struct{}
}

// New creates a controller in the Idle state with the camera off.
func New(cfg Config) *Controller {
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = SuccessThreshold
	}
	if cfg.Capture == nil {
		cfg.Capture = nopCapture{}
	}
	if cfg.Camera == nil {
		cfg.Camera = nopCamera{}
	}
	if cfg.NewTag == nil {
		cfg.NewTag = uuid.NewString
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Controller{
		countdown: cfg.Countdown,
		threshold: cfg.SuccessThreshold,
		store:     cfg.Store,
		capture:   cfg.Capture,
		camera:    cfg.Camera,
		newTag:    cfg.NewTag,
		metrics:   cfg.Metrics,
		log:       cfg.Logger.With("component", "session"),
		restart:   make(chan struct{}, 1),
		subs:      make(map[chan Snapshot]struct{}),
		state: Snapshot{
			State:   StateIdle,
			Target:  cfg.Target,
			Label:   WaitingLabel,
			Session: cfg.NewTag(),
		},
	}
	c.state.Peak = c.loadPeak(cfg.Target)
	return c
}

// Start begins a recording session: the countdown is set, the camera is
// switched on and frames are tagged with a fresh session id. Starting while
// already recording restarts the countdown. If the camera cannot be opened
// the controller stays Idle and the error is returned.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CameraOn {
		if err := c.camera.Open(); err != nil {
			c.log.Warn("camera unavailable", "err", err)
			return fmt.Errorf("start session: %w", err)
		}
		c.state.CameraOn = true
	}

	if c.state.State != StateRecording {
		c.metrics.Recording.Add(context.Background(), 1)
	}
	c.state.State = StateRecording
	c.state.Remaining = c.countdown
	c.state.Session = c.newTag()
	c.capture.SetCapture(true, c.state.Session)

	select {
	case c.restart <- struct{}{}:
	default:
	}

	c.log.Info("recording started", "sign", c.state.Target, "session", c.state.Session)
	c.publishLocked()
	return nil
}

// Tick advances the countdown by one second. When it reaches zero the
// session ends and the camera is switched off.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.State != StateRecording {
		return
	}
	c.state.Remaining--
	if c.state.Remaining <= 0 {
		c.state.Remaining = 0
		c.state.State = StateIdle
		c.metrics.Recording.Add(context.Background(), -1)
		c.stopCameraLocked()
		c.log.Info("recording finished", "sign", c.state.Target, "peak", c.state.Peak)
	}
	c.publishLocked()
}

// HandlePrediction applies one prediction. Predictions tagged with a session
// other than the current one are dropped.
func (c *Controller) HandlePrediction(p prediction.Prediction) {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Session != "" && p.Session != c.state.Session {
		c.metrics.RecordDrop(ctx, "stale")
		return
	}
	if math.IsNaN(p.Confidence) || math.IsInf(p.Confidence, 0) {
		c.metrics.RecordDrop(ctx, "malformed")
		return
	}

	matched, success := EvaluateWith(c.state.Target, p, c.threshold)
	c.state.Label = p.Label
	c.state.Confidence = p.Confidence
	c.state.Success = success

	if matched && c.state.State == StateRecording {
		c.updatePeakLocked(ctx, p.Confidence)
	}
	c.publishLocked()
}

func (c *Controller) updatePeakLocked(ctx context.Context, confidence float64) {
	c.state.Peak = max(c.state.Peak, confidence)

	key := sign.Normalize(c.state.Target)
	if c.store == nil || key == "" {
		return
	}
	stored, err := c.store.Max(key, confidence)
	if err != nil {
		c.metrics.RecordStoreError(ctx, "max")
		c.log.Warn("failed to persist peak score", "sign", key, "err", err)
		return
	}
	c.metrics.PeakUpdates.Add(ctx, 1)
	c.state.Peak = max(c.state.Peak, stored)
}

// Reset deletes the persisted peak for the current target and clears the
// displayed prediction.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := sign.Normalize(c.state.Target)
	if c.store != nil && key != "" {
		if err := c.store.Delete(key); err != nil && !errors.Is(err, store.ErrNotFound) {
			c.metrics.RecordStoreError(context.Background(), "delete")
			c.log.Warn("failed to delete peak score", "sign", key, "err", err)
		}
	}

	c.state.Peak = 0
	c.state.Label = WaitingLabel
	c.state.Confidence = 0
	c.state.Success = false
	c.log.Info("score reset", "sign", c.state.Target)
	c.publishLocked()
}

// SetTarget selects a new target sign. The peak is reloaded for it, the
// success flag is cleared and frames in flight for the previous target are
// invalidated. The recording state is untouched.
func (c *Controller) SetTarget(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Target = target
	c.state.Peak = c.loadPeak(target)
	c.state.Success = false
	c.state.Session = c.newTag()
	c.capture.SetCapture(c.state.CameraOn, c.state.Session)
	c.publishLocked()
}

// SetCamera switches the camera on or off independently of the recording
// session. Switching it off stops frame transmission immediately.
func (c *Controller) SetCamera(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on == c.state.CameraOn {
		return nil
	}
	if on {
		if err := c.camera.Open(); err != nil {
			c.log.Warn("camera unavailable", "err", err)
			return fmt.Errorf("open camera: %w", err)
		}
		c.state.CameraOn = true
		c.capture.SetCapture(true, c.state.Session)
	} else {
		c.stopCameraLocked()
	}
	c.publishLocked()
	return nil
}

// SetConnected records whether the classifier channel is open.
func (c *Controller) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Connected == connected {
		return
	}
	c.state.Connected = connected
	c.publishLocked()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that receives the latest snapshot after every
// change, starting with the current one. Slow readers only see the most
// recent value. Call the returned function to unsubscribe.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- c.state
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
		})
	}
}

// Run drives the countdown once per second until ctx is cancelled. Each
// Start realigns the ticker so the first tick lands one second later.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.restart:
			ticker.Reset(time.Second)
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Controller) stopCameraLocked() {
	if !c.state.CameraOn {
		return
	}
	// Predictions for frames already in flight carry the old tag.
	c.state.Session = c.newTag()
	c.capture.SetCapture(false, c.state.Session)
	if err := c.camera.Close(); err != nil {
		c.log.Warn("failed to close camera", "err", err)
	}
	c.state.CameraOn = false
}

func (c *Controller) loadPeak(target string) float64 {
	key := sign.Normalize(target)
	if c.store == nil || key == "" {
		return 0
	}
	v, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.metrics.RecordStoreError(context.Background(), "get")
			c.log.Warn("failed to load peak score", "sign", key, "err", err)
		}
		return 0
	}
	return v
}

func (c *Controller) publishLocked() {
	c.state.Version++
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.state
	}
}

type nopCapture struct{}

func (nopCapture) SetCapture(bool, string) {}

type nopCamera struct{}

func (nopCamera) Open() error  { return nil }
func (nopCamera) Close() error { return nil }
