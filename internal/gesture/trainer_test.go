package gesture

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/ayusman/signvision/internal/detector"
)

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func sampleOf(t *testing.T, frames []detector.FeatureVector) json.RawMessage {
	t.Helper()
	raw, err := EncodeSequence(frames, 1000)
	if err != nil {
		t.Fatalf("EncodeSequence() error = %v", err)
	}
	return raw
}

func TestTrainer_TrainSequences(t *testing.T) {
	trainer := NewTrainer()

	a := []detector.FeatureVector{vec(0), vec(0)}
	b := []detector.FeatureVector{vec(2), vec(2)}

	result, err := trainer.TrainSequences([]json.RawMessage{sampleOf(t, a), sampleOf(t, b)})
	if err != nil {
		t.Fatalf("TrainSequences() error = %v", err)
	}

	if len(result) != WindowSize {
		t.Fatalf("expected %d frames, got %d", WindowSize, len(result))
	}
	for i, f := range result {
		if !floatEqual(f[0], 1) {
			t.Errorf("frame %d: average = %f, want 1", i, f[0])
		}
	}
}

func TestTrainer_TrainSequences_DifferentLengths(t *testing.T) {
	trainer := &Trainer{Length: 3}

	// A ramp 0..4 recorded at two speeds resamples to the same three frames.
	short := []detector.FeatureVector{vec(0), vec(4)}
	long := []detector.FeatureVector{vec(0), vec(1), vec(2), vec(3), vec(4)}

	result, err := trainer.TrainSequences([]json.RawMessage{sampleOf(t, short), sampleOf(t, long)})
	if err != nil {
		t.Fatalf("TrainSequences() error = %v", err)
	}

	for i, want := range []float64{0, 2, 4} {
		if !floatEqual(result[i][0], want) {
			t.Errorf("frame %d = %f, want %f", i, result[i][0], want)
		}
	}
}

func TestTrainer_TrainSequences_Errors(t *testing.T) {
	trainer := NewTrainer()

	shortFrame := `{"frames": [[1, 2, 3], [4, 5, 6]]}`
	single := `{"frames": [[` + strings.TrimSuffix(strings.Repeat("0,", detector.FeatureLen), ",") + `]]}`

	tests := []struct {
		name    string
		samples []json.RawMessage
	}{
		{name: "no samples", samples: nil},
		{name: "invalid json", samples: []json.RawMessage{json.RawMessage(`{invalid}`)}},
		{name: "short frame", samples: []json.RawMessage{json.RawMessage(shortFrame)}},
		{name: "single frame", samples: []json.RawMessage{json.RawMessage(single)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := trainer.TrainSequences(tt.samples); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestResampleSequence(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		target int
		want   []float64
	}{
		{name: "upsample", in: []float64{0, 10}, target: 5, want: []float64{0, 2.5, 5, 7.5, 10}},
		{name: "downsample", in: []float64{0, 1, 2, 3, 4}, target: 3, want: []float64{0, 2, 4}},
		{name: "same length", in: []float64{1, 2, 3}, target: 3, want: []float64{1, 2, 3}},
		{name: "single frame repeats", in: []float64{7}, target: 3, want: []float64{7, 7, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := make([]detector.FeatureVector, len(tt.in))
			for i, x := range tt.in {
				frames[i] = vec(x)
			}

			got := resampleSequence(frames, tt.target)

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d frames, got %d", len(tt.want), len(got))
			}
			for i, w := range tt.want {
				if !floatEqual(got[i][0], w) {
					t.Errorf("frame %d = %f, want %f", i, got[i][0], w)
				}
			}
		})
	}

	if got := resampleSequence(nil, 5); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestParseSequence_RoundTrip(t *testing.T) {
	frames := framesOf(detector.WaveSequence(4))

	got, err := ParseSequence(sampleOf(t, frames))
	if err != nil {
		t.Fatalf("ParseSequence() error = %v", err)
	}
	if len(got) != len(frames) || got[3] != frames[3] {
		t.Error("parsed frames differ from encoded frames")
	}
}
