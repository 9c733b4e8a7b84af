package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/signvision/internal/capture"
	"github.com/ayusman/signvision/internal/engine"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/stream"
)

// pipeline is the in-process prediction source: on every tick it reads a
// camera frame, runs the recognizer and hands any prediction to the sink.
// It mirrors the stream client's gating so the session controller can drive
// either one.
type pipeline struct {
	camera     capture.Camera
	recognizer *engine.Recognizer
	sink       stream.Handler
	interval   time.Duration
	metrics    *observe.Metrics
	log        *slog.Logger

	restart chan struct{}

	mu      sync.Mutex
	enabled bool
	tag     string
}

func newPipeline(cam capture.Camera, rec *engine.Recognizer, sink stream.Handler, interval time.Duration, m *observe.Metrics, log *slog.Logger) *pipeline {
	if interval <= 0 {
		interval = stream.DefaultFrameInterval
	}
	return &pipeline{
		camera:     cam,
		recognizer: rec,
		sink:       sink,
		interval:   interval,
		metrics:    m,
		log:        log.With("component", "pipeline"),
		restart:    make(chan struct{}, 1),
	}
}

// SetCapture gates frame processing. A changed tag or state clears the
// frame window and restarts the ticker.
func (p *pipeline) SetCapture(enabled bool, tag string) {
	p.mu.Lock()
	changed := p.enabled != enabled || p.tag != tag
	p.enabled = enabled
	p.tag = tag
	p.mu.Unlock()

	if changed {
		select {
		case p.restart <- struct{}{}:
		default:
		}
	}
}

// Run is the main detection loop. The in-process classifier is always
// reachable, so the sink is reported connected for the lifetime of Run.
func (p *pipeline) Run(ctx context.Context) error {
	p.sink.SetConnected(true)
	defer p.sink.SetConnected(false)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.restart:
			p.recognizer.Reset()
			ticker.Reset(p.interval)
		case <-ticker.C:
			p.step(ctx)
		}
	}
}

func (p *pipeline) step(ctx context.Context) {
	p.mu.Lock()
	enabled, tag := p.enabled, p.tag
	p.mu.Unlock()

	if !enabled {
		p.metrics.RecordSkip(ctx, stream.SkipCaptureOff)
		return
	}

	frame, err := p.camera.ReadFrame()
	if err != nil {
		p.metrics.RecordSkip(ctx, stream.SkipNoFrame)
		return
	}
	pred, ok, err := p.recognizer.Recognize(ctx, frame)
	frame.Close()
	if err != nil {
		p.log.Debug("recognition failed", "err", err)
		return
	}
	p.metrics.FramesSent.Add(ctx, 1)
	if !ok {
		return
	}

	pred.Session = tag
	p.metrics.RecordPrediction(ctx, pred.Source)
	p.sink.HandlePrediction(pred)
}
