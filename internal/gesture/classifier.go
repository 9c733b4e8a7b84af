package gesture

import (
	"fmt"

	"github.com/ayusman/signvision/internal/detector"
	"github.com/ayusman/signvision/internal/prediction"
)

// ConfidenceGate is the score a local prediction must exceed to be surfaced.
const ConfidenceGate = 0.8

// Classifier feeds frames through a Window and runs the model once the
// window is full. It is not safe for concurrent use.
type Classifier struct {
	model  Model
	vocab  Vocabulary
	window *Window
	gate   float64
}

// NewClassifier creates a classifier over model. A gate of zero selects
// ConfidenceGate.
func NewClassifier(model Model, vocab Vocabulary, gate float64) (*Classifier, error) {
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	if gate <= 0 {
		gate = ConfidenceGate
	}
	return &Classifier{
		model:  model,
		vocab:  vocab,
		window: NewWindow(),
		gate:   gate,
	}, nil
}

// Push appends a normalized frame. When the window is full the model is run
// and the arg-max label is returned if its score exceeds the gate. The bool
// is false while the window is filling or the best score is at or below the
// gate.
func (c *Classifier) Push(v detector.FeatureVector) (prediction.Prediction, bool, error) {
	c.window.Append(v)
	if !c.window.Ready() {
		return prediction.Prediction{}, false, nil
	}

	scores, err := c.model.Predict(c.window.Snapshot())
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("predict: %w", err)
	}
	if len(scores) != len(c.vocab) {
		return prediction.Prediction{}, false, fmt.Errorf("%w: %d scores for %d labels", ErrVocabularyMismatch, len(scores), len(c.vocab))
	}

	idx, score := argmax(scores)
	if score <= float32(c.gate) {
		return prediction.Prediction{}, false, nil
	}

	return prediction.Prediction{
		Label:      c.vocab[idx],
		Confidence: float64(score) * 100,
		Source:     prediction.SourceLocal,
	}, true, nil
}

// Reset clears the frame window.
func (c *Classifier) Reset() {
	c.window.Reset()
}

// Buffered returns how many frames are in the window.
func (c *Classifier) Buffered() int {
	return c.window.Len()
}

// Vocabulary returns the labels the classifier can emit.
func (c *Classifier) Vocabulary() Vocabulary {
	return c.vocab
}

// Close releases the underlying model.
func (c *Classifier) Close() error {
	return c.model.Close()
}
