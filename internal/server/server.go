// Package server provides the HTTP server for the SignVision tutoring client.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/signvision/internal/capture"
	"github.com/ayusman/signvision/internal/health"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/server/api"
	"github.com/ayusman/signvision/internal/session"
	"github.com/ayusman/signvision/internal/sign"
	"github.com/ayusman/signvision/internal/store"
)

// Config holds the server configuration. Routes are registered only for
// the collaborators that are set.
type Config struct {
	StaticDir string
	Store     *store.Store
	Camera    capture.Camera

	Controller *session.Controller
	Trainer    api.Trainer
	Assets     *sign.AssetIndex

	// Engine serves the websocket inference protocol at /ws/engine.
	Engine http.Handler

	Health         *health.Handler
	Metrics        *observe.Metrics
	MetricsHandler http.Handler

	// PreviewInterval paces the MJPEG preview. Defaults to 66ms.
	PreviewInterval time.Duration

	Logger *slog.Logger
}

// Server represents the HTTP server for the SignVision application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
	log     *slog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    config.Logger.With("component", "server"),
	}
	s.setupRoutes()

	s.handler = s.mux
	if config.Metrics != nil {
		s.handler = observe.Middleware(config.Metrics)(s.mux)
	}
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if ctrl := s.config.Controller; ctrl != nil {
		sessionHandler := api.NewSessionHandler(ctrl)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
		s.mux.Handle("/api/session/events", NewEventsHandler(ctrl, s.log))
	}

	if s.config.Store != nil {
		scoreHandler := api.NewScoreHandler(s.config.Store.PeakScores(), s.onScoreDeleted)
		s.mux.Handle("/api/scores", scoreHandler)
		s.mux.Handle("/api/scores/", scoreHandler)
	}

	// Route /api/signs/{sign}/samples and /api/signs/{sign}/asset
	var samplesHandler, assetHandler http.Handler
	if s.config.Trainer != nil {
		samplesHandler = api.NewSamplesHandler(s.config.Trainer)
	}
	if s.config.Assets != nil {
		assetHandler = api.NewAssetHandler(s.config.Assets)
	}
	if samplesHandler != nil || assetHandler != nil {
		s.mux.Handle("/api/signs/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/samples") && samplesHandler != nil:
				samplesHandler.ServeHTTP(w, r)
			case strings.HasSuffix(r.URL.Path, "/asset") && assetHandler != nil:
				assetHandler.ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
	}

	// Register camera stream endpoint if Camera is configured
	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera, s.config.PreviewInterval))
	}

	if s.config.Engine != nil {
		s.mux.Handle("/ws/engine", s.config.Engine)
	}

	if s.config.Health != nil {
		s.config.Health.Register(s.mux)
	}
	if s.config.MetricsHandler != nil {
		s.mux.Handle("/metrics", s.config.MetricsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// onScoreDeleted keeps the controller's peak in step with a score deleted
// through the API.
func (s *Server) onScoreDeleted(key string) {
	ctrl := s.config.Controller
	if ctrl == nil {
		return
	}
	if sign.Normalize(ctrl.Snapshot().Target) == key {
		ctrl.Reset()
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if ctrl := s.config.Controller; ctrl != nil {
		response["engine_connected"] = ctrl.Snapshot().Connected
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// HTTPServer returns an http.Server serving s on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return s.HTTPServer(addr).ListenAndServe()
}
