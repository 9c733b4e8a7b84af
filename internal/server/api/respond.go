// Package api provides HTTP API handlers for the SignVision tutoring server.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// signPath splits /api/signs/{sign}/{resource} into its parts.
func signPath(path string) (sign, resource string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/signs/")
	sign, resource, ok = strings.Cut(rest, "/")
	if !ok || sign == "" || resource == "" || strings.Contains(resource, "/") {
		return "", "", false
	}
	return sign, resource, true
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
