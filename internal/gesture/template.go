package gesture

import (
	"fmt"
	"math"
	"sync"

	"github.com/ayusman/signvision/internal/detector"
)

// Template is the averaged recording of one sign.
type Template struct {
	Label  string
	Frames []detector.FeatureVector
}

// DefaultDistanceScale is the per-frame DTW distance at which a template
// scores 0.5.
const DefaultDistanceScale = 2.0

// TemplateModel scores a window against one template per vocabulary label
// using DTW. Each label scores 1/(1+d/scale) independently of the others, so
// a window far from every template scores low even when only one template
// exists. Labels without a template score 0.
type TemplateModel struct {
	mu        sync.RWMutex
	vocab     Vocabulary
	scale     float64
	templates map[string]Template
}

// NewTemplateModel creates an empty model over vocab. A non-positive scale
// selects DefaultDistanceScale.
func NewTemplateModel(vocab Vocabulary, scale float64) *TemplateModel {
	if scale <= 0 {
		scale = DefaultDistanceScale
	}
	return &TemplateModel{
		vocab:     vocab,
		scale:     scale,
		templates: make(map[string]Template),
	}
}

// AddTemplate registers or replaces the template for its label.
func (m *TemplateModel) AddTemplate(t Template) error {
	if m.vocab.Index(t.Label) < 0 {
		return fmt.Errorf("label %q is not in the vocabulary", t.Label)
	}
	if len(t.Frames) == 0 {
		return fmt.Errorf("template %q has no frames", t.Label)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.Label] = t
	return nil
}

// RemoveTemplate removes the template for label.
func (m *TemplateModel) RemoveTemplate(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, label)
}

// Len returns the number of registered templates.
func (m *TemplateModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

// Predict scores window against every registered template.
func (m *TemplateModel) Predict(window []detector.FeatureVector) ([]float32, error) {
	if len(window) == 0 {
		return nil, fmt.Errorf("empty window")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make([]float32, len(m.vocab))
	for i, label := range m.vocab {
		t, ok := m.templates[label]
		if !ok {
			continue
		}
		d := DTWDistance(window, t.Frames)
		if math.IsInf(d, 1) || math.IsNaN(d) {
			continue
		}
		scores[i] = float32(1.0 / (1.0 + d/m.scale))
	}
	return scores, nil
}

// Close is a no-op.
func (m *TemplateModel) Close() error {
	return nil
}
