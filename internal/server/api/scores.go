package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/signvision/internal/sign"
	"github.com/ayusman/signvision/internal/store"
)

// ScoreStore is the peak-score repository used by ScoreHandler.
type ScoreStore interface {
	List() ([]store.PeakScore, error)
	Get(sign string) (float64, error)
	Delete(sign string) error
}

// ScoreHandler handles HTTP requests for peak score resources.
type ScoreHandler struct {
	scores   ScoreStore
	onDelete func(key string)
}

// NewScoreHandler creates a ScoreHandler. onDelete, when set, is called with
// the normalized key after a score is deleted.
func NewScoreHandler(scores ScoreStore, onDelete func(key string)) *ScoreHandler {
	return &ScoreHandler{scores: scores, onDelete: onDelete}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/scores or /api/scores/{sign}
func (h *ScoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/scores")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w, r)
		return
	}

	key := sign.Normalize(path)
	if key == "" {
		writeError(w, http.StatusBadRequest, "Invalid sign")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, key)
	case http.MethodDelete:
		h.delete(w, r, key)
	default:
		methodNotAllowed(w)
	}
}

type scoreResponse struct {
	Sign       string  `json:"sign"`
	Confidence float64 `json:"confidence"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type listScoresResponse struct {
	Scores []scoreResponse `json:"scores"`
}

// list handles GET /api/scores
func (h *ScoreHandler) list(w http.ResponseWriter, r *http.Request) {
	scores, err := h.scores.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list scores")
		return
	}

	response := listScoresResponse{
		Scores: make([]scoreResponse, 0, len(scores)),
	}
	for _, s := range scores {
		response.Scores = append(response.Scores, scoreResponse{
			Sign:       s.Sign,
			Confidence: s.Confidence,
			UpdatedAt:  formatTime(s.UpdatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/scores/{sign}. An unrecorded sign has a score of 0.
func (h *ScoreHandler) get(w http.ResponseWriter, r *http.Request, key string) {
	v, err := h.scores.Get(key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to get score")
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{Sign: key, Confidence: v})
}

// delete handles DELETE /api/scores/{sign}
func (h *ScoreHandler) delete(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.scores.Delete(key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Score not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete score")
		return
	}

	if h.onDelete != nil {
		h.onDelete(key)
	}
	w.WriteHeader(http.StatusNoContent)
}
