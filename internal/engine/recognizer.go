// Package engine turns camera frames into sign predictions. It backs both
// the in-process classification path and a websocket inference service
// speaking the same protocol the stream client expects from a remote engine.
package engine

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signvision/internal/detector"
	"github.com/ayusman/signvision/internal/gesture"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/prediction"
)

// NoHandLabel is reported for frames in which neither hand is visible.
const NoHandLabel = "No Hand Detected"

// Recognizer runs detection, normalization and windowed classification for
// one frame stream. It is not safe for concurrent use; create one per
// stream.
type Recognizer struct {
	detector   detector.Detector
	classifier *gesture.Classifier
	metrics    *observe.Metrics
}

// NewRecognizer creates a recognizer with its own frame window over a
// shared model. The model is not closed by the recognizer.
func NewRecognizer(det detector.Detector, model gesture.Model, vocab gesture.Vocabulary, gate float64, metrics *observe.Metrics) (*Recognizer, error) {
	if det == nil {
		return nil, fmt.Errorf("detector is nil")
	}
	cls, err := gesture.NewClassifier(model, vocab, gate)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Recognizer{detector: det, classifier: cls, metrics: metrics}, nil
}

// Recognize processes one frame. Every frame enters the window, with absent
// landmark groups zero-filled. A frame without hands yields a zero-confidence
// NoHandLabel prediction; otherwise the bool is true only when the window is
// full and the best label clears the confidence gate.
func (r *Recognizer) Recognize(ctx context.Context, frame *gocv.Mat) (prediction.Prediction, bool, error) {
	lm, err := r.detector.Detect(frame)
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("detect: %w", err)
	}
	return r.Push(ctx, lm)
}

// Push classifies already detected landmarks.
func (r *Recognizer) Push(ctx context.Context, lm detector.Frame) (prediction.Prediction, bool, error) {
	start := time.Now()
	p, ok, err := r.classifier.Push(lm.Normalize())
	if r.classifier.Buffered() == gesture.WindowSize {
		r.metrics.ClassifyDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return prediction.Prediction{}, false, err
	}

	if !lm.HasHands() {
		return prediction.Prediction{Label: NoHandLabel, Source: prediction.SourceLocal}, true, nil
	}
	return p, ok, nil
}

// Reset empties the frame window.
func (r *Recognizer) Reset() {
	r.classifier.Reset()
}
