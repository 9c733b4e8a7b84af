// Package gesture turns normalized landmark frames into sign predictions.
package gesture

import "github.com/ayusman/signvision/internal/detector"

// WindowSize is the number of consecutive frames a model consumes.
const WindowSize = 30

// Window is a fixed-capacity FIFO of feature vectors. Appending to a full
// window evicts the oldest frame. It is not safe for concurrent use.
type Window struct {
	frames []detector.FeatureVector
	size   int
}

// NewWindow creates an empty window holding WindowSize frames.
func NewWindow() *Window {
	return NewWindowSize(WindowSize)
}

// NewWindowSize creates an empty window with the given capacity.
func NewWindowSize(size int) *Window {
	if size <= 0 {
		size = WindowSize
	}
	return &Window{
		frames: make([]detector.FeatureVector, 0, size),
		size:   size,
	}
}

// Append pushes v to the back of the window, evicting the front if full.
func (w *Window) Append(v detector.FeatureVector) {
	if len(w.frames) == w.size {
		copy(w.frames, w.frames[1:])
		w.frames = w.frames[:w.size-1]
	}
	w.frames = append(w.frames, v)
}

// Ready reports whether the window is full.
func (w *Window) Ready() bool {
	return len(w.frames) == w.size
}

// Len returns the number of buffered frames.
func (w *Window) Len() int {
	return len(w.frames)
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.size
}

// Snapshot returns a copy of the buffered frames, oldest first.
func (w *Window) Snapshot() []detector.FeatureVector {
	out := make([]detector.FeatureVector, len(w.frames))
	copy(out, w.frames)
	return out
}

// Reset drops all buffered frames.
func (w *Window) Reset() {
	w.frames = w.frames[:0]
}
