package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the pose and hand landmarks.
	// Groups that are not visible are returned zero-filled, not as an error.
	Detect(frame *gocv.Mat) (Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// ScriptPath points at the Holistic service script. When empty the
	// script is searched for next to the binary and in ~/.signvision.
	ScriptPath string

	// ModelComplexity selects the Holistic pose model (0, 1 or 2).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
