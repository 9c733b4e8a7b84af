package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/signvision/internal/capture"
)

const defaultPreviewInterval = 66 * time.Millisecond // ~15 FPS

// StreamHandler serves MJPEG frames from the camera.
type StreamHandler struct {
	camera   capture.Camera
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler with the given camera. A
// zero interval selects ~15 FPS.
func NewStreamHandler(camera capture.Camera, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = defaultPreviewInterval
	}
	return &StreamHandler{camera: camera, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients. While the camera is
// off the stream stays open and idles.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, err := h.camera.ReadFrame()
		if err != nil {
			continue
		}
		jpeg, err := capture.EncodeJPEG(frame, capture.DefaultJPEGQuality)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
