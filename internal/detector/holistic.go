package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	holisticScript = "holistic_service.py"
	idleShutdown   = 30 * time.Second
)

// HolisticDetector implements Detector using a Python MediaPipe Holistic
// subprocess. Frames are written to stdin as a 4-byte big-endian length
// followed by JPEG bytes; each frame yields one JSON line on stdout.
type HolisticDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewHolisticDetector creates a new Holistic detector.
// The Python process is started lazily on first detection.
func NewHolisticDetector(config Config) (*HolisticDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findScript(holisticScript)
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("%s not found", holisticScript)
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("holistic script: %w", err)
	}

	return &HolisticDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns the detected landmark groups.
func (d *HolisticDetector) Detect(frame *gocv.Mat) (Frame, error) {
	if frame == nil || frame.Empty() {
		return Frame{}, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return Frame{}, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		d.shutdown()
		return Frame{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.shutdown()
		return Frame{}, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.shutdown()
		return Frame{}, fmt.Errorf("read response: %w", err)
	}

	result, err := decodeFrame(line)
	if err != nil {
		return Frame{}, err
	}

	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *HolisticDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *HolisticDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath,
		"--model-complexity", fmt.Sprint(d.config.ModelComplexity),
		"--min-detection-confidence", fmt.Sprint(d.config.MinConfidence),
		"--min-tracking-confidence", fmt.Sprint(d.config.MinTrackingConf),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start holistic service: %w", err)
	}

	slog.Debug("holistic service started", "pid", d.cmd.Process.Pid)

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *HolisticDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *HolisticDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			slog.Debug("holistic service exited", "err", err)
		}
	})
}

func findScript(name string) string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".signvision", "scripts", name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".signvision/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonFrame is the line emitted by the Holistic service. Groups that were
// not detected are null.
type jsonFrame struct {
	Pose      []Point3D `json:"pose"`
	LeftHand  []Point3D `json:"left_hand"`
	RightHand []Point3D `json:"right_hand"`
}

// decodeFrame parses one service line. Null or short groups are zero-filled
// and extra points are ignored.
func decodeFrame(line []byte) (Frame, error) {
	var jf jsonFrame
	if err := json.Unmarshal(line, &jf); err != nil {
		return Frame{}, fmt.Errorf("parse response: %w", err)
	}

	var f Frame
	copy(f.Pose[:], jf.Pose)
	copy(f.LeftHand[:], jf.LeftHand)
	copy(f.RightHand[:], jf.RightHand)

	return f, nil
}
