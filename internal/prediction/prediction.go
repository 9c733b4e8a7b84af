// Package prediction defines the classifier output consumed by the scoring session
// and its wire encoding.
package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a prediction payload is missing a required
// field or carries a value that cannot be interpreted.
var ErrMalformed = errors.New("malformed prediction")

// Source identifies where a prediction was produced.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Prediction is a classifier label with its confidence.
type Prediction struct {
	Label string
	// Confidence is a percentage in [0, 100].
	Confidence float64
	// Session is the capture tag echoed back by the engine, empty when untagged.
	Session string
	// Seq is the frame sequence number echoed back by the engine.
	Seq    uint64
	Source string
}

// Percent formats the confidence the way the inference engine does ("92.3%").
func (p Prediction) Percent() string {
	return strconv.FormatFloat(p.Confidence, 'f', 1, 64) + "%"
}

// wirePrediction is the JSON shape pushed by the inference engine.
type wirePrediction struct {
	Label      *string         `json:"label"`
	Confidence json.RawMessage `json:"confidence"`
	Session    string          `json:"session,omitempty"`
	Seq        uint64          `json:"seq,omitempty"`
}

// Decode parses a prediction pushed by the inference engine.
//
// The confidence may be a string ("92.3%" or "92.3"), which is read as a
// percentage, or a number. Numbers in [0, 1] are read as fractions and scaled
// to a percentage; larger numbers are already percentages.
func Decode(data []byte) (Prediction, error) {
	var w wirePrediction
	if err := json.Unmarshal(data, &w); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if w.Label == nil || *w.Label == "" {
		return Prediction{}, fmt.Errorf("%w: missing label", ErrMalformed)
	}
	if len(w.Confidence) == 0 || string(w.Confidence) == "null" {
		return Prediction{}, fmt.Errorf("%w: missing confidence", ErrMalformed)
	}

	conf, err := parseConfidence(w.Confidence)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Prediction{
		Label:      *w.Label,
		Confidence: conf,
		Session:    w.Session,
		Seq:        w.Seq,
		Source:     SourceRemote,
	}, nil
}

// Encode renders a prediction in the engine's wire format, with the
// confidence as a percentage string.
func Encode(p Prediction) ([]byte, error) {
	conf, err := json.Marshal(p.Percent())
	if err != nil {
		return nil, err
	}
	label := p.Label
	return json.Marshal(wirePrediction{
		Label:      &label,
		Confidence: conf,
		Session:    p.Session,
		Seq:        p.Seq,
	})
}

func parseConfidence(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q: %w", s, err)
		}
		if !finite(v) {
			return 0, fmt.Errorf("confidence %q is not a finite number", s)
		}
		return clamp(v), nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("confidence must be a string or number")
	}
	if !finite(f) {
		return 0, fmt.Errorf("confidence is not a finite number")
	}
	if f <= 1 {
		f *= 100
	}
	return clamp(f), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
