package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns queued frames in order and then repeats the last one.
type MockDetector struct {
	mu     sync.Mutex
	frames []Frame
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrames sets the frames that will be returned by Detect.
func (m *MockDetector) SetFrames(frames ...Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next pre-configured frame or error. With no frames
// configured it returns an empty frame.
func (m *MockDetector) Detect(frame *gocv.Mat) (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Frame{}, m.err
	}
	if len(m.frames) == 0 {
		m.calls++
		return Frame{}, nil
	}

	i := m.calls
	if i >= len(m.frames) {
		i = len(m.frames) - 1
	}
	m.calls++
	return m.frames[i], nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Pose landmark indices used by the fixtures.
const (
	LeftShoulder  = 11
	RightShoulder = 12
	LeftWrist     = 15
	RightWrist    = 16
)

// Hand landmark indices used by the fixtures.
const (
	Wrist     = 0
	ThumbTip  = 4
	IndexTip  = 8
	MiddleTip = 12
	RingTip   = 16
	PinkyTip  = 20
)

// UprightPose returns a seated, front-facing pose with the nose at (0.5, 0.3).
func UprightPose() [PosePoints]Point3D {
	var pose [PosePoints]Point3D
	for i := range pose {
		// Spread the remaining landmarks below the head.
		pose[i] = Point3D{X: 0.5, Y: 0.3 + float64(i)*0.015, Z: -0.1}
	}
	pose[Nose] = Point3D{X: 0.5, Y: 0.3, Z: -0.2}
	pose[LeftShoulder] = Point3D{X: 0.62, Y: 0.5, Z: -0.1}
	pose[RightShoulder] = Point3D{X: 0.38, Y: 0.5, Z: -0.1}
	pose[LeftWrist] = Point3D{X: 0.66, Y: 0.7, Z: -0.15}
	pose[RightWrist] = Point3D{X: 0.34, Y: 0.45, Z: -0.15}
	return pose
}

// OpenPalm returns a right hand held up with all fingers extended, wrist at
// (x, y).
func OpenPalm(x, y float64) [HandPoints]Point3D {
	var hand [HandPoints]Point3D
	hand[Wrist] = Point3D{X: x, Y: y}
	for finger := 0; finger < 5; finger++ {
		base := 1 + finger*4
		dx := -0.06 + float64(finger)*0.03
		for joint := 0; joint < 4; joint++ {
			hand[base+joint] = Point3D{
				X: x + dx,
				Y: y - 0.04*float64(joint+1),
				Z: -0.01 * float64(joint),
			}
		}
	}
	return hand
}

// Fist returns a right hand with all fingers curled, wrist at (x, y).
func Fist(x, y float64) [HandPoints]Point3D {
	var hand [HandPoints]Point3D
	hand[Wrist] = Point3D{X: x, Y: y}
	for finger := 0; finger < 5; finger++ {
		base := 1 + finger*4
		dx := -0.04 + float64(finger)*0.02
		for joint := 0; joint < 4; joint++ {
			// Joints fold back toward the palm.
			hand[base+joint] = Point3D{
				X: x + dx,
				Y: y - 0.03 + 0.005*float64(joint),
				Z: -0.03,
			}
		}
	}
	return hand
}

// WaveSequence returns n frames of an open palm sweeping left to right.
func WaveSequence(n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		t := float64(i) / float64(max(n-1, 1))
		frames[i].Pose = UprightPose()
		frames[i].RightHand = OpenPalm(0.3+0.2*t, 0.45)
	}
	return frames
}

// FistSequence returns n frames of a fist held still.
func FistSequence(n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i].Pose = UprightPose()
		frames[i].RightHand = Fist(0.35, 0.45)
	}
	return frames
}
