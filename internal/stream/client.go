// Package stream implements the client side of the inference engine
// channel: camera frames go out at a fixed cadence over a persistent
// websocket and predictions come back asynchronously.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/prediction"
)

// ErrClosed is returned by Run once the client has already run.
var ErrClosed = errors.New("stream: client closed")

// Default timing parameters.
const (
	DefaultFrameInterval = 200 * time.Millisecond
	DefaultReconnectMin  = 1 * time.Second
	DefaultReconnectMax  = 30 * time.Second

	writeWait = 2 * time.Second
)

// Skip reasons reported on the frames-skipped counter.
const (
	SkipCaptureOff   = "capture_off"
	SkipDisconnected = "disconnected"
	SkipNoFrame      = "no_frame"
	SkipWriteError   = "write_error"
)

// FrameSource yields the current camera frame as a JPEG data URL.
type FrameSource interface {
	Frame() (string, error)
}

// Handler consumes what arrives over the channel. Calls are made from a
// single goroutine in arrival order.
type Handler interface {
	HandlePrediction(p prediction.Prediction)
	SetConnected(connected bool)
}

// Config configures a Client.
type Config struct {
	// URL is the ws:// or wss:// address of the inference engine.
	URL string

	// FrameInterval is the capture cadence. Defaults to 200ms.
	FrameInterval time.Duration

	// TagFrames wraps each frame in an Envelope carrying the capture tag.
	TagFrames bool

	// ReconnectMin and ReconnectMax bound the exponential reconnect backoff.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Client keeps the engine channel open and streams frames over it.
type Client struct {
	cfg     Config
	source  FrameSource
	handler Handler
	metrics *observe.Metrics
	log     *slog.Logger

	ran     atomic.Bool
	restart chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	capture bool
	tag     string
	seq     uint64
}

// NewClient validates cfg and returns a client that reads frames from
// source and reports to handler.
func NewClient(cfg Config, source FrameSource, handler Handler) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse engine url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("engine url %q: scheme must be ws or wss", cfg.URL)
	}
	if source == nil || handler == nil {
		return nil, errors.New("stream: source and handler are required")
	}

	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = DefaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = max(DefaultReconnectMax, cfg.ReconnectMin)
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:     cfg,
		source:  source,
		handler: handler,
		metrics: cfg.Metrics,
		log:     cfg.Logger.With("component", "stream"),
		restart: make(chan struct{}, 1),
	}, nil
}

// Run keeps the channel connected and drives the capture ticker until ctx
// is cancelled. A client runs at most once.
func (c *Client) Run(ctx context.Context) error {
	if !c.ran.CompareAndSwap(false, true) {
		return ErrClosed
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.connectLoop(ctx) })
	g.Go(func() error { return c.captureLoop(ctx) })
	return g.Wait()
}

// SetCapture gates frame transmission. Disabling capture or changing the
// tag restarts the capture ticker and the frame sequence.
func (c *Client) SetCapture(enabled bool, tag string) {
	c.mu.Lock()
	changed := c.capture != enabled || c.tag != tag
	c.capture = enabled
	c.tag = tag
	if changed {
		c.seq = 0
	}
	c.mu.Unlock()

	if changed {
		select {
		case c.restart <- struct{}{}:
		default:
		}
	}
}

// Connected reports whether the channel is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) connectLoop(ctx context.Context) error {
	backoff := c.cfg.ReconnectMin
	attempt := 0

	for {
		if attempt > 0 {
			c.metrics.Reconnects.Add(ctx, 1)
		}
		attempt++

		conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Debug("engine dial failed", "url", c.cfg.URL, "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, c.cfg.ReconnectMax)
			continue
		}

		c.log.Info("engine connected", "url", c.cfg.URL)
		connectedAt := time.Now()
		c.serve(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}

		// A connection that dropped right away counts as a failed attempt.
		wait := backoff
		if time.Since(connectedAt) >= c.cfg.ReconnectMin {
			backoff, wait = c.cfg.ReconnectMin, c.cfg.ReconnectMin
		} else {
			backoff = min(backoff*2, c.cfg.ReconnectMax)
		}
		c.log.Info("engine disconnected", "url", c.cfg.URL, "retry_in", wait)
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// serve runs the read side of one connection until it fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.setConn(ctx, conn)
	defer c.setConn(ctx, nil)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Debug("engine read failed", "err", err)
			}
			return
		}

		p, err := prediction.Decode(data)
		if err != nil {
			c.metrics.RecordDrop(ctx, "malformed")
			c.log.Debug("dropping engine message", "err", err)
			continue
		}
		c.metrics.RecordPrediction(ctx, p.Source)
		c.handler.HandlePrediction(p)
	}
}

func (c *Client) setConn(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	prev := c.conn
	c.conn = conn
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
		c.metrics.EngineConnected.Add(ctx, -1)
	}
	if conn != nil {
		c.metrics.EngineConnected.Add(ctx, 1)
	}
	c.handler.SetConnected(conn != nil)
}

func (c *Client) captureLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.restart:
			ticker.Reset(c.cfg.FrameInterval)
		case <-ticker.C:
			c.sendFrame(ctx)
		}
	}
}

// sendFrame transmits one frame if capture is on, the channel is open and
// the camera has a frame. Anything else is a silent skip.
func (c *Client) sendFrame(ctx context.Context) {
	c.mu.Lock()
	enabled, conn, tag := c.capture, c.conn, c.tag
	c.mu.Unlock()

	if !enabled {
		c.metrics.RecordSkip(ctx, SkipCaptureOff)
		return
	}
	if conn == nil {
		c.metrics.RecordSkip(ctx, SkipDisconnected)
		return
	}

	image, err := c.source.Frame()
	if err != nil {
		c.metrics.RecordSkip(ctx, SkipNoFrame)
		return
	}

	env := Envelope{Image: image}
	if c.cfg.TagFrames {
		env.Session = tag
		env.Seq = c.nextSeq(tag)
	}
	msg, err := EncodeFrame(env)
	if err != nil {
		c.metrics.RecordSkip(ctx, SkipNoFrame)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		c.metrics.RecordSkip(ctx, SkipWriteError)
		c.log.Debug("frame write failed", "err", err)
		// Unblocks the reader so the connect loop can redial.
		conn.Close()
		return
	}
	c.metrics.FramesSent.Add(ctx, 1)
}

func (c *Client) nextSeq(tag string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag != tag {
		return 0
	}
	c.seq++
	return c.seq
}
