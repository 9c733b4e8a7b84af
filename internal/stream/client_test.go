package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ayusman/signvision/internal/capture"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/prediction"
)

const waitTimeout = 3 * time.Second

// fakeEngine answers every frame it receives with reply(frame). A nil
// reply message sends nothing.
type fakeEngine struct {
	srv    *httptest.Server
	frames chan Envelope
	conns  atomic.Int32

	mu    sync.Mutex
	reply func(Envelope) []byte
	// dropAfter closes each connection after this many frames when > 0.
	dropAfter int
	// hangUp closes each connection as soon as it is accepted.
	hangUp bool
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	e := &fakeEngine{frames: make(chan Envelope, 256)}
	e.reply = func(env Envelope) []byte {
		data, _ := prediction.Encode(prediction.Prediction{
			Label: "A", Confidence: 92, Session: env.Session, Seq: env.Seq,
		})
		return data
	}

	upgrader := websocket.Upgrader{}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		e.conns.Add(1)

		e.mu.Lock()
		hangUp := e.hangUp
		e.mu.Unlock()
		if hangUp {
			return
		}

		n := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := DecodeFrame(data)
			if err != nil {
				continue
			}
			select {
			case e.frames <- env:
			default:
			}

			e.mu.Lock()
			reply, dropAfter := e.reply, e.dropAfter
			e.mu.Unlock()

			if msg := reply(env); msg != nil {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
			n++
			if dropAfter > 0 && n >= dropAfter {
				return
			}
		}
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *fakeEngine) url() string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http")
}

type stubSource struct {
	mu  sync.Mutex
	err error
}

func (s *stubSource) Frame() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return capture.DataURLPrefix + "AAAA", nil
}

func (s *stubSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type recorder struct {
	preds chan prediction.Prediction
	conns chan bool
}

func newRecorder() *recorder {
	return &recorder{
		preds: make(chan prediction.Prediction, 256),
		conns: make(chan bool, 64),
	}
}

func (r *recorder) HandlePrediction(p prediction.Prediction) {
	select {
	case r.preds <- p:
	default:
	}
}

func (r *recorder) SetConnected(connected bool) {
	select {
	case r.conns <- connected:
	default:
	}
}

func (r *recorder) waitConnected(t *testing.T, want bool) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-r.conns:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for connected = %v", want)
		}
	}
}

func (r *recorder) nextPrediction(t *testing.T) prediction.Prediction {
	t.Helper()
	select {
	case p := <-r.preds:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for prediction")
		return prediction.Prediction{}
	}
}

func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// counter sums every data point of the named int64 counter whose attribute
// key has value, or all points when key is empty.
func counter(t *testing.T, reader *sdkmetric.ManualReader, name, key, value string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if key == "" {
					total += dp.Value
					continue
				}
				if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func startClient(t *testing.T, cfg Config, src FrameSource, h Handler) *Client {
	t.Helper()
	if cfg.FrameInterval == 0 {
		cfg.FrameInterval = 10 * time.Millisecond
	}
	if cfg.ReconnectMin == 0 {
		cfg.ReconnectMin = 10 * time.Millisecond
		cfg.ReconnectMax = 50 * time.Millisecond
	}
	if cfg.Metrics == nil {
		cfg.Metrics, _ = newTestMetrics(t)
	}

	c, err := NewClient(cfg, src, h)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(waitTimeout):
			t.Error("Run() did not return after cancel")
		}
	})
	return c
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "http scheme", url: "http://localhost:8000"},
		{name: "empty", url: ""},
		{name: "unparseable", url: "ws://[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(Config{URL: tt.url}, &stubSource{}, newRecorder()); err == nil {
				t.Error("NewClient() error = nil, want error")
			}
		})
	}

	if _, err := NewClient(Config{URL: "ws://localhost:1"}, nil, newRecorder()); err == nil {
		t.Error("NewClient() with nil source error = nil, want error")
	}
}

func TestClient_SendsOnlyWhileCaptureEnabled(t *testing.T) {
	engine := newFakeEngine(t)
	rec := newRecorder()
	c := startClient(t, Config{URL: engine.url()}, &stubSource{}, rec)

	rec.waitConnected(t, true)
	if !c.Connected() {
		t.Fatal("Connected() = false after connect")
	}

	// Capture starts disabled.
	select {
	case env := <-engine.frames:
		t.Fatalf("engine received frame %+v while capture disabled", env)
	case <-time.After(60 * time.Millisecond):
	}

	c.SetCapture(true, "")
	p := rec.nextPrediction(t)
	if p.Label != "A" || p.Confidence != 92 {
		t.Errorf("prediction = %+v, want A at 92", p)
	}
	if p.Source != prediction.SourceRemote {
		t.Errorf("Source = %q, want remote", p.Source)
	}

	c.SetCapture(false, "")
	// Drain anything in flight, then expect silence.
	time.Sleep(30 * time.Millisecond)
	for len(engine.frames) > 0 {
		<-engine.frames
	}
	select {
	case env := <-engine.frames:
		t.Fatalf("engine received frame %+v after capture disabled", env)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestClient_TaggedFrames(t *testing.T) {
	engine := newFakeEngine(t)
	rec := newRecorder()
	c := startClient(t, Config{URL: engine.url(), TagFrames: true}, &stubSource{}, rec)

	rec.waitConnected(t, true)
	c.SetCapture(true, "session-1")

	var first Envelope
	select {
	case first = <-engine.frames:
	case <-time.After(waitTimeout):
		t.Fatal("no frame received")
	}
	if first.Session != "session-1" || first.Seq != 1 {
		t.Errorf("first frame = %+v, want session-1 seq 1", first)
	}

	p := rec.nextPrediction(t)
	if p.Session != "session-1" || p.Seq == 0 {
		t.Errorf("prediction tag = %q/%d, want session-1 with seq", p.Session, p.Seq)
	}

	c.SetCapture(true, "session-2")
	deadline := time.After(waitTimeout)
	for {
		select {
		case env := <-engine.frames:
			if env.Session == "session-2" {
				if env.Seq != 1 {
					t.Errorf("first session-2 frame seq = %d, want 1", env.Seq)
				}
				return
			}
		case <-deadline:
			t.Fatal("no frame tagged session-2")
		}
	}
}

func TestClient_DropsMalformedPredictions(t *testing.T) {
	engine := newFakeEngine(t)
	var n atomic.Int32
	engine.mu.Lock()
	engine.reply = func(Envelope) []byte {
		if n.Add(1)%2 == 1 {
			return []byte(`{"confidence":"90%"}`)
		}
		return []byte(`{"label":"B","confidence":0.5}`)
	}
	engine.mu.Unlock()

	metrics, reader := newTestMetrics(t)
	rec := newRecorder()
	c := startClient(t, Config{URL: engine.url(), Metrics: metrics}, &stubSource{}, rec)
	rec.waitConnected(t, true)
	c.SetCapture(true, "")

	for range 3 {
		p := rec.nextPrediction(t)
		if p.Label != "B" || p.Confidence != 50 {
			t.Fatalf("prediction = %+v, want B at 50", p)
		}
	}
	if got := counter(t, reader, "signvision.predictions.dropped", "reason", "malformed"); got == 0 {
		t.Error("malformed drop counter = 0, want > 0")
	}
}

func TestClient_SkipsWhenNoFrame(t *testing.T) {
	engine := newFakeEngine(t)
	metrics, reader := newTestMetrics(t)
	src := &stubSource{err: capture.ErrCameraNotOpen}
	rec := newRecorder()
	c := startClient(t, Config{URL: engine.url(), Metrics: metrics}, src, rec)

	rec.waitConnected(t, true)
	c.SetCapture(true, "")
	time.Sleep(60 * time.Millisecond)

	select {
	case env := <-engine.frames:
		t.Fatalf("engine received frame %+v without a camera frame", env)
	default:
	}
	if got := counter(t, reader, "signvision.frames.skipped", "reason", SkipNoFrame); got == 0 {
		t.Error("no_frame skip counter = 0, want > 0")
	}

	src.setErr(nil)
	rec.nextPrediction(t)
}

func TestClient_SkipsWhileDisconnected(t *testing.T) {
	metrics, reader := newTestMetrics(t)
	rec := newRecorder()
	// Nothing listens on this address.
	c := startClient(t, Config{URL: "ws://127.0.0.1:1/engine", Metrics: metrics}, &stubSource{}, rec)
	c.SetCapture(true, "")
	time.Sleep(60 * time.Millisecond)

	if c.Connected() {
		t.Fatal("Connected() = true without an engine")
	}
	if got := counter(t, reader, "signvision.frames.skipped", "reason", SkipDisconnected); got == 0 {
		t.Error("disconnected skip counter = 0, want > 0")
	}
	if got := counter(t, reader, "signvision.engine.reconnects", "", ""); got == 0 {
		t.Error("reconnect counter = 0, want > 0")
	}
}

func TestClient_Reconnects(t *testing.T) {
	engine := newFakeEngine(t)
	engine.mu.Lock()
	engine.dropAfter = 1
	engine.mu.Unlock()

	rec := newRecorder()
	c := startClient(t, Config{URL: engine.url()}, &stubSource{}, rec)
	c.SetCapture(true, "")

	rec.waitConnected(t, true)
	rec.waitConnected(t, false)
	rec.waitConnected(t, true)

	if got := engine.conns.Load(); got < 2 {
		t.Errorf("engine saw %d connections, want >= 2", got)
	}
}

func TestClient_ImmediateHangUpBacksOff(t *testing.T) {
	engine := newFakeEngine(t)
	engine.mu.Lock()
	engine.hangUp = true
	engine.mu.Unlock()

	startClient(t, Config{
		URL:          engine.url(),
		ReconnectMin: 50 * time.Millisecond,
		ReconnectMax: 200 * time.Millisecond,
	}, &stubSource{}, newRecorder())

	// Waits of 50, 100, 200 and 200ms allow about five dials in this window.
	time.Sleep(600 * time.Millisecond)

	got := engine.conns.Load()
	if got < 2 {
		t.Fatalf("engine saw %d connections, want the client to keep redialing", got)
	}
	if got > 8 {
		t.Errorf("engine saw %d connections in 600ms, want the client to back off", got)
	}
}

func TestClient_RunOnce(t *testing.T) {
	c, err := NewClient(Config{URL: "ws://127.0.0.1:1"}, &stubSource{}, newRecorder())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := c.Run(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("second Run() error = %v, want ErrClosed", err)
	}
}
