package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/signvision/internal/detector"
	"github.com/ayusman/signvision/internal/prediction"
)

// stubModel returns fixed scores and records the window it was given.
type stubModel struct {
	scores []float32
	err    error
	calls  int
	last   []detector.FeatureVector
	closed bool
}

func (m *stubModel) Predict(window []detector.FeatureVector) ([]float32, error) {
	m.calls++
	m.last = window
	return m.scores, m.err
}

func (m *stubModel) Close() error {
	m.closed = true
	return nil
}

func fill(c *Classifier, n int) (prediction.Prediction, bool, error) {
	var (
		p   prediction.Prediction
		ok  bool
		err error
	)
	for i := 0; i < n; i++ {
		p, ok, err = c.Push(vec(float64(i)))
	}
	return p, ok, err
}

func TestClassifier_Push(t *testing.T) {
	vocab := Vocabulary{"hello", "thanks", "yes"}

	tests := []struct {
		name      string
		scores    []float32
		frames    int
		wantOK    bool
		wantLabel string
		wantConf  float64
		wantCalls int
		wantErr   error
	}{
		{name: "window filling", scores: []float32{0, 0.95, 0.05}, frames: 29, wantCalls: 0},
		{name: "above gate", scores: []float32{0.02, 0.95, 0.03}, frames: 30, wantOK: true, wantLabel: "thanks", wantConf: 95, wantCalls: 1},
		{name: "at gate is suppressed", scores: []float32{0.8, 0.1, 0.1}, frames: 30, wantCalls: 1},
		{name: "below gate", scores: []float32{0.5, 0.3, 0.2}, frames: 30, wantCalls: 1},
		{name: "runs on every frame once full", scores: []float32{0.1, 0.05, 0.85}, frames: 32, wantOK: true, wantLabel: "yes", wantConf: 85, wantCalls: 3},
		{name: "width mismatch", scores: []float32{0.9, 0.1}, frames: 30, wantCalls: 1, wantErr: ErrVocabularyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{scores: tt.scores}
			c, err := NewClassifier(model, vocab, 0)
			if err != nil {
				t.Fatalf("NewClassifier() error = %v", err)
			}

			p, ok, err := fill(c, tt.frames)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Push() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Push() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Push() ok = %v, want %v", ok, tt.wantOK)
			}
			if model.calls != tt.wantCalls {
				t.Errorf("model called %d times, want %d", model.calls, tt.wantCalls)
			}
			if !ok {
				return
			}
			if p.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", p.Label, tt.wantLabel)
			}
			if math.Abs(p.Confidence-tt.wantConf) > 1e-4 {
				t.Errorf("Confidence = %f, want %f", p.Confidence, tt.wantConf)
			}
			if p.Source != prediction.SourceLocal {
				t.Errorf("Source = %q, want %q", p.Source, prediction.SourceLocal)
			}
		})
	}
}

func TestClassifier_PassesOrderedWindow(t *testing.T) {
	model := &stubModel{scores: []float32{1}}
	c, err := NewClassifier(model, Vocabulary{"a"}, 0)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	fill(c, 35)

	if len(model.last) != WindowSize {
		t.Fatalf("model got %d frames, want %d", len(model.last), WindowSize)
	}
	if model.last[0][0] != 5 || model.last[WindowSize-1][0] != 34 {
		t.Errorf("unexpected window bounds %f..%f", model.last[0][0], model.last[WindowSize-1][0])
	}
}

func TestClassifier_ModelError(t *testing.T) {
	modelErr := errors.New("inference failed")
	c, err := NewClassifier(&stubModel{err: modelErr}, Vocabulary{"a"}, 0)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	if _, _, err := fill(c, WindowSize); !errors.Is(err, modelErr) {
		t.Errorf("Push() error = %v, want %v", err, modelErr)
	}
}

func TestClassifier_Reset(t *testing.T) {
	model := &stubModel{scores: []float32{0.99}}
	c, err := NewClassifier(model, Vocabulary{"a"}, 0)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	fill(c, WindowSize)
	c.Reset()

	if c.Buffered() != 0 {
		t.Errorf("Buffered() = %d after Reset", c.Buffered())
	}
	if _, ok, _ := c.Push(vec(1)); ok {
		t.Error("expected no prediction right after Reset")
	}

	if err := c.Close(); err != nil || !model.closed {
		t.Errorf("Close() error = %v, closed = %v", err, model.closed)
	}
}

func TestNewClassifier_Validation(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		vocab Vocabulary
	}{
		{name: "nil model", model: nil, vocab: Vocabulary{"a"}},
		{name: "empty vocabulary", model: &stubModel{}, vocab: nil},
		{name: "blank label", model: &stubModel{}, vocab: Vocabulary{"a", ""}},
		{name: "duplicate label", model: &stubModel{}, vocab: Vocabulary{"a", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClassifier(tt.model, tt.vocab, 0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name    string
		scores  []float32
		wantIdx int
	}{
		{name: "single", scores: []float32{0.3}, wantIdx: 0},
		{name: "last", scores: []float32{0.1, 0.2, 0.7}, wantIdx: 2},
		{name: "tie takes first", scores: []float32{0.5, 0.5}, wantIdx: 0},
		{name: "empty", scores: nil, wantIdx: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if idx, _ := argmax(tt.scores); idx != tt.wantIdx {
				t.Errorf("argmax() = %d, want %d", idx, tt.wantIdx)
			}
		})
	}
}
