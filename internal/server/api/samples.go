package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/signvision/internal/app"
	"github.com/ayusman/signvision/internal/store"
)

// Trainer records samples and rebuilds sign templates.
type Trainer interface {
	TrainSign(name string, samples []json.RawMessage) (app.TrainResult, error)
	Samples(name string) ([]store.Sample, error)
	DeleteSamples(name string) error
}

// SamplesHandler handles HTTP requests for recorded sign samples.
type SamplesHandler struct {
	trainer Trainer
}

// NewSamplesHandler creates a new SamplesHandler.
func NewSamplesHandler(t Trainer) *SamplesHandler {
	return &SamplesHandler{trainer: t}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/signs/{sign}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, resource, ok := signPath(r.URL.Path)
	if !ok || resource != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, name)
	case http.MethodPost:
		h.create(w, r, name)
	case http.MethodDelete:
		h.delete(w, r, name)
	default:
		methodNotAllowed(w)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	Sign        string          `json:"sign"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/signs/{sign}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, name string) {
	samples, err := h.trainer.Samples(name)
	if err != nil {
		writeTrainError(w, err, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			Sign:        s.Sign,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   formatTime(s.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/signs/{sign}/samples. The sign's template is
// retrained from every stored sample.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, name string) {
	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	result, err := h.trainer.TrainSign(name, req.Samples)
	if err != nil {
		writeTrainError(w, err, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// delete handles DELETE /api/signs/{sign}/samples
func (h *SamplesHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.trainer.DeleteSamples(name); err != nil {
		writeTrainError(w, err, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTrainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrUnknownSign):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, "Sample storage is not configured")
	case errors.Is(err, app.ErrInvalidSample):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
