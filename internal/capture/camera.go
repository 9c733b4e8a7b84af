// Package capture provides camera capture and frame encoding using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings. DefaultFPS matches the 200 ms frame cadence.
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// ErrDeviceUnavailable is returned when the capture device cannot be acquired.
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configures a camera device.
type Options struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int

	// Mirror flips frames horizontally, as in a selfie view.
	Mirror bool
}

// deviceCamera captures from a local video device using GoCV.
type deviceCamera struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera creates a new Camera. Zero option values take the defaults.
func NewCamera(opts Options) Camera {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	return &deviceCamera{opts: opts}
}

// Open opens the camera for capturing frames. Opening an open camera is a
// no-op.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := openDevice(c.opts)
	if err != nil {
		return err
	}

	c.capture = capture
	c.running = true

	return nil
}

func openDevice(opts Options) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCapture(opts.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, opts.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d", ErrDeviceUnavailable, opts.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(opts.FPS))

	return capture, nil
}

// Close closes the camera and releases resources.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}
	if c.opts.Mirror {
		Mirror(&mat)
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opts.FPS
}

// IsOpen returns true if the camera is currently open and running.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Mirror flips frame horizontally in place.
func Mirror(frame *gocv.Mat) {
	gocv.Flip(*frame, frame, 1)
}
