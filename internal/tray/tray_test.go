package tray

import (
	"testing"

	"github.com/ayusman/signvision/internal/session"
)

func TestMenuFor(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want menuText
	}{
		{
			name: "idle",
			snap: session.Snapshot{State: session.StateIdle, Target: "A", Label: session.WaitingLabel},
			want: menuText{
				title:  "SignVision",
				start:  "Start test",
				camera: "Camera: off",
				target: "Sign: A",
				peak:   "Best: 0.0%",
				last:   "Last: " + session.WaitingLabel,
			},
		},
		{
			name: "recording with success",
			snap: session.Snapshot{
				State:      session.StateRecording,
				Target:     "Hello",
				Remaining:  3,
				CameraOn:   true,
				Label:      "Hello",
				Confidence: 92.5,
				Success:    true,
				Peak:       92.5,
			},
			want: menuText{
				title:  "● 3s",
				start:  "Restart test (3s left)",
				camera: "Camera: on",
				target: "Sign: Hello",
				peak:   "Best: 92.5%",
				last:   "Last: Hello 92.5% ✓",
			},
		},
		{
			name: "no target",
			snap: session.Snapshot{State: session.StateIdle, Label: "B", Confidence: 40},
			want: menuText{
				title:  "SignVision",
				start:  "Start test",
				camera: "Camera: off",
				target: "Sign: -",
				peak:   "Best: 0.0%",
				last:   "Last: B 40.0%",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := menuFor(tt.snap); got != tt.want {
				t.Errorf("menuFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
