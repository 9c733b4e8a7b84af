package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/signvision/internal/detector"
)

// ErrVocabularyMismatch is returned when a model produces a score vector
// whose width differs from the configured vocabulary.
var ErrVocabularyMismatch = errors.New("model output does not match vocabulary")

// Model scores a full window of feature vectors. The result holds one score
// per vocabulary label, in vocabulary order.
type Model interface {
	Predict(window []detector.FeatureVector) ([]float32, error)
	Close() error
}

// Vocabulary is the ordered list of labels a model was trained on. Index i
// names output i of the model.
type Vocabulary []string

// Validate checks the vocabulary is usable.
func (v Vocabulary) Validate() error {
	if len(v) == 0 {
		return errors.New("vocabulary is empty")
	}
	seen := make(map[string]bool, len(v))
	for i, label := range v {
		if label == "" {
			return fmt.Errorf("vocabulary entry %d is empty", i)
		}
		if seen[label] {
			return fmt.Errorf("vocabulary entry %q is duplicated", label)
		}
		seen[label] = true
	}
	return nil
}

// Index returns the position of label, or -1.
func (v Vocabulary) Index(label string) int {
	for i, l := range v {
		if l == label {
			return i
		}
	}
	return -1
}

// argmax returns the index and value of the largest score. Ties resolve to
// the lowest index.
func argmax(scores []float32) (int, float32) {
	best := -1
	var bestScore float32
	for i, s := range scores {
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}
