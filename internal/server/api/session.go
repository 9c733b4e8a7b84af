package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/signvision/internal/session"
)

// Controller is the session controller surface exposed over HTTP.
type Controller interface {
	Snapshot() session.Snapshot
	Start() error
	Reset()
	SetCamera(on bool) error
	SetTarget(target string)
}

// SessionHandler handles HTTP requests for the recording session.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(c Controller) *SessionHandler {
	return &SessionHandler{ctrl: c}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/session and /api/session/{action}
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.TrimPrefix(action, "/")

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
	case "start":
		h.post(w, r, h.start)
	case "reset":
		h.post(w, r, h.reset)
	case "camera":
		h.post(w, r, h.camera)
	case "target":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		h.target(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) post(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	fn(w, r)
}

// start handles POST /api/session/start. A camera that cannot be opened
// leaves the session idle and answers 503.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Start(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Camera unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// reset handles POST /api/session/reset
func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

type cameraRequest struct {
	On *bool `json:"on"`
}

// camera handles POST /api/session/camera
func (h *SessionHandler) camera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.On == nil {
		writeError(w, http.StatusBadRequest, "Field on is required")
		return
	}

	if err := h.ctrl.SetCamera(*req.On); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Camera unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

type targetRequest struct {
	Sign string `json:"sign"`
}

// target handles PUT /api/session/target
func (h *SessionHandler) target(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Sign) == "" {
		writeError(w, http.StatusBadRequest, "Sign is required")
		return
	}

	h.ctrl.SetTarget(req.Sign)
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}
