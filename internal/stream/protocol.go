package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/signvision/internal/capture"
)

// ErrBadFrame is returned by DecodeFrame for a message that is neither a
// data URL nor a frame envelope.
var ErrBadFrame = errors.New("stream: bad frame message")

// Envelope is the tagged form of an outgoing frame. The engine echoes
// Session and Seq back on the prediction it produces for the frame.
type Envelope struct {
	Session string `json:"session"`
	Seq     uint64 `json:"seq"`
	Image   string `json:"image"`
}

// Tagged reports whether the envelope carries a session tag.
func (e Envelope) Tagged() bool {
	return e.Session != ""
}

// EncodeFrame renders one outgoing frame message. An untagged envelope is
// sent as the bare data URL.
func EncodeFrame(e Envelope) ([]byte, error) {
	if !e.Tagged() {
		return []byte(e.Image), nil
	}
	return json.Marshal(e)
}

// DecodeFrame parses a frame message in either form.
func DecodeFrame(data []byte) (Envelope, error) {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, capture.DataURLPrefix) {
		return Envelope{Image: s}, nil
	}

	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if !strings.HasPrefix(e.Image, capture.DataURLPrefix) {
		return Envelope{}, fmt.Errorf("%w: image is not a jpeg data url", ErrBadFrame)
	}
	return e, nil
}
