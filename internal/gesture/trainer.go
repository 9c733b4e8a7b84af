package gesture

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/signvision/internal/detector"
)

// Trainer processes recorded samples into sign templates.
type Trainer struct {
	// Length is the number of frames in a trained template.
	Length int
}

// NewTrainer creates a new Trainer producing WindowSize-frame templates.
func NewTrainer() *Trainer {
	return &Trainer{Length: WindowSize}
}

// SequenceSample is a recorded run of normalized frames.
type SequenceSample struct {
	Frames    [][]float64 `json:"frames"`
	Timestamp int64       `json:"timestamp"`
}

// ParseSequence decodes a recorded sample and checks every frame has
// FeatureLen values.
func ParseSequence(raw json.RawMessage) ([]detector.FeatureVector, error) {
	var sample SequenceSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, err
	}
	if len(sample.Frames) < 2 {
		return nil, fmt.Errorf("insufficient frames: %d", len(sample.Frames))
	}

	frames := make([]detector.FeatureVector, len(sample.Frames))
	for i, f := range sample.Frames {
		if len(f) != detector.FeatureLen {
			return nil, fmt.Errorf("frame %d has %d values, expected %d", i, len(f), detector.FeatureLen)
		}
		copy(frames[i][:], f)
	}
	return frames, nil
}

// EncodeSequence renders frames in the sample format read by ParseSequence.
func EncodeSequence(frames []detector.FeatureVector, timestamp int64) (json.RawMessage, error) {
	sample := SequenceSample{
		Frames:    make([][]float64, len(frames)),
		Timestamp: timestamp,
	}
	for i := range frames {
		sample.Frames[i] = frames[i][:]
	}
	return json.Marshal(sample)
}

// TrainSequences averages recorded samples into a single template sequence.
// Samples are resampled to the trainer length before averaging so recordings
// of different speeds align.
func (t *Trainer) TrainSequences(samples []json.RawMessage) ([]detector.FeatureVector, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	length := t.Length
	if length <= 1 {
		length = WindowSize
	}

	averaged := make([]detector.FeatureVector, length)
	for i, raw := range samples {
		frames, err := ParseSequence(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}

		resampled := resampleSequence(frames, length)
		for f := range averaged {
			for k := range averaged[f] {
				averaged[f][k] += resampled[f][k]
			}
		}
	}

	n := float64(len(samples))
	for f := range averaged {
		for k := range averaged[f] {
			averaged[f][k] /= n
		}
	}

	return averaged, nil
}

// resampleSequence resamples frames to exactly targetLength frames using
// linear interpolation.
func resampleSequence(frames []detector.FeatureVector, targetLength int) []detector.FeatureVector {
	if len(frames) == 0 {
		return nil
	}

	if len(frames) == 1 || targetLength <= 1 {
		out := make([]detector.FeatureVector, max(targetLength, 1))
		for i := range out {
			out[i] = frames[0]
		}
		return out
	}

	result := make([]detector.FeatureVector, targetLength)

	for i := 0; i < targetLength; i++ {
		t := float64(i) / float64(targetLength-1)
		pos := t * float64(len(frames)-1)

		idx := int(pos)
		if idx >= len(frames)-1 {
			idx = len(frames) - 2
		}

		frac := pos - float64(idx)

		a := &frames[idx]
		b := &frames[idx+1]
		for k := range result[i] {
			result[i][k] = a[k] + frac*(b[k]-a[k])
		}
	}

	return result
}
