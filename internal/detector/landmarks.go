// Package detector provides skeletal landmark detection and the feature
// normalization used for sign recognition.
package detector

// Landmark group sizes following the MediaPipe Holistic convention.
// See: https://developers.google.com/mediapipe/solutions/vision/holistic_landmarker
const (
	PosePoints = 33
	HandPoints = 21

	// Nose is the pose landmark used as the normalization reference.
	Nose = 0

	// FeatureLen is the length of a flattened frame: (33 + 21 + 21) * 3.
	FeatureLen = (PosePoints + 2*HandPoints) * 3
)

// Point3D represents a 3D point in normalized camera coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame holds the landmarks detected in a single video frame.
// A group that was not detected is left as all-zero points.
type Frame struct {
	Pose      [PosePoints]Point3D `json:"pose"`
	LeftHand  [HandPoints]Point3D `json:"left_hand"`
	RightHand [HandPoints]Point3D `json:"right_hand"`
}

// FeatureVector is the flattened landmark encoding of one frame, in
// pose, left hand, right hand order.
type FeatureVector [FeatureLen]float64

// Features flattens the frame without normalization.
func (f *Frame) Features() FeatureVector {
	var v FeatureVector
	i := 0
	put := func(points []Point3D) {
		for _, p := range points {
			v[i], v[i+1], v[i+2] = p.X, p.Y, p.Z
			i += 3
		}
	}

	put(f.Pose[:])
	put(f.LeftHand[:])
	put(f.RightHand[:])

	return v
}

// Normalize flattens the frame and translates every point so that the nose
// lands on the origin. The same offset is applied to both hand groups.
// No scaling or rotation is applied.
func (f *Frame) Normalize() FeatureVector {
	v := f.Features()
	ref := f.Pose[Nose]

	for i := 0; i < FeatureLen; i += 3 {
		v[i] -= ref.X
		v[i+1] -= ref.Y
		v[i+2] -= ref.Z
	}

	return v
}

// HasPose reports whether any pose landmark is non-zero.
func (f *Frame) HasPose() bool {
	return !allZero(f.Pose[:])
}

// HasHands reports whether either hand group carries landmarks.
func (f *Frame) HasHands() bool {
	return !allZero(f.LeftHand[:]) || !allZero(f.RightHand[:])
}

func allZero(points []Point3D) bool {
	for _, p := range points {
		if p.X != 0 || p.Y != 0 || p.Z != 0 {
			return false
		}
	}
	return true
}
