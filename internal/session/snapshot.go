package session

// State is the recording state of the controller.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// WaitingLabel is shown before any prediction has arrived and after a reset.
const WaitingLabel = "Waiting..."

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	State     State  `json:"state"`
	Target    string `json:"target"`
	Remaining int    `json:"remaining_seconds"`
	CameraOn  bool   `json:"camera_on"`
	Connected bool   `json:"connected"`

	// Label and Confidence are the last prediction shown to the learner.
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Success    bool    `json:"success"`

	// Peak is the best confidence recorded for the target sign.
	Peak float64 `json:"peak"`

	// Session is the capture tag predictions must carry to be accepted.
	Session string `json:"session"`

	// Version increases with every state change.
	Version uint64 `json:"version"`
}

// Recording reports whether a recording session is active.
func (s Snapshot) Recording() bool {
	return s.State == StateRecording
}
