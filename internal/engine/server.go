package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/signvision/internal/capture"
	"github.com/ayusman/signvision/internal/detector"
	"github.com/ayusman/signvision/internal/gesture"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/prediction"
	"github.com/ayusman/signvision/internal/stream"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Server is a websocket inference service. Each connection gets its own
// frame window; the detector and model are shared.
type Server struct {
	detector detector.Detector
	model    gesture.Model
	vocab    gesture.Vocabulary
	gate     float64
	metrics  *observe.Metrics
	log      *slog.Logger
}

// NewServer creates an inference service over a shared detector and model.
func NewServer(det detector.Detector, model gesture.Model, vocab gesture.Vocabulary, gate float64, metrics *observe.Metrics, logger *slog.Logger) (*Server, error) {
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		detector: det,
		model:    model,
		vocab:    vocab,
		gate:     gate,
		metrics:  metrics,
		log:      logger.With("component", "engine"),
	}, nil
}

// ServeHTTP upgrades the request and answers frames with predictions until
// the peer disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec, err := NewRecognizer(s.detector, s.model, s.vocab, s.gate, s.metrics)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.log.Info("engine client connected", "remote", r.RemoteAddr)
	defer s.log.Info("engine client disconnected", "remote", r.RemoteAddr)

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		reply, err := s.handleFrame(ctx, rec, data)
		if err != nil {
			s.log.Debug("dropping frame", "err", err)
			continue
		}
		if reply == nil {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

// handleFrame returns the encoded prediction for one frame message, or nil
// when the frame produced none.
func (s *Server) handleFrame(ctx context.Context, rec *Recognizer, data []byte) ([]byte, error) {
	env, err := stream.DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	jpeg, err := capture.DecodeDataURL(env.Image)
	if err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("decode jpeg: empty image")
	}

	p, ok, err := rec.Recognize(ctx, &img)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	p.Session = env.Session
	p.Seq = env.Seq
	return prediction.Encode(p)
}
