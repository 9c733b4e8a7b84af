package gesture

import (
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/signvision/internal/detector"
)

// ONNXModel runs a sequence classifier exported to ONNX through the OpenCV
// DNN module. The network takes a [1, 30, 225] float32 tensor and produces
// one score per label.
type ONNXModel struct {
	mu  sync.Mutex
	net gocv.Net
}

// LoadONNXModel reads the network once from path.
func LoadONNXModel(path string) (*ONNXModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", path)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &ONNXModel{net: net}, nil
}

// Predict scores a full window. The input and output tensors are allocated
// and released within the call.
func (m *ONNXModel) Predict(window []detector.FeatureVector) ([]float32, error) {
	if len(window) != WindowSize {
		return nil, fmt.Errorf("window has %d frames, want %d", len(window), WindowSize)
	}

	blob := gocv.NewMatWithSizes([]int{1, WindowSize, detector.FeatureLen}, gocv.MatTypeCV32F)
	defer blob.Close()

	for i, frame := range window {
		for j, v := range frame {
			blob.SetFloatAt3(0, i, j, float32(v))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("model produced no output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

// Close releases the network.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
