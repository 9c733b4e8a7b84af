package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Camera
	if cfg.Camera.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("camera.device_id %d must not be negative", cfg.Camera.DeviceID))
	}
	if cfg.Camera.Width < 0 || cfg.Camera.Height < 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d must not be negative", cfg.Camera.Width, cfg.Camera.Height))
	}

	// Detector
	if cfg.Detector.ModelComplexity < 0 || cfg.Detector.ModelComplexity > 2 {
		errs = append(errs, fmt.Errorf("detector.model_complexity %d is out of range [0, 2]", cfg.Detector.ModelComplexity))
	}
	if cfg.Detector.MinConfidence < 0 || cfg.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence %.2f is out of range [0, 1]", cfg.Detector.MinConfidence))
	}
	if cfg.Detector.MinTrackingConf < 0 || cfg.Detector.MinTrackingConf > 1 {
		errs = append(errs, fmt.Errorf("detector.min_tracking_confidence %.2f is out of range [0, 1]", cfg.Detector.MinTrackingConf))
	}

	// Engine
	if !cfg.Engine.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("engine.mode %q is invalid; valid values: remote, local", cfg.Engine.Mode))
	}
	if cfg.Engine.Mode == EngineRemote {
		if cfg.Engine.URL == "" {
			errs = append(errs, errors.New("engine.url is required when mode is remote"))
		} else if u, err := url.Parse(cfg.Engine.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("engine.url %q must be a ws:// or wss:// URL", cfg.Engine.URL))
		}
	}
	if cfg.Engine.FrameInterval < 0 {
		errs = append(errs, fmt.Errorf("engine.frame_interval %s must be positive", cfg.Engine.FrameInterval))
	}
	if cfg.Engine.JPEGQuality < 0 || cfg.Engine.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("engine.jpeg_quality %d is out of range [1, 100]", cfg.Engine.JPEGQuality))
	}
	if cfg.Engine.ReconnectMin > cfg.Engine.ReconnectMax {
		errs = append(errs, fmt.Errorf("engine.reconnect_min %s exceeds reconnect_max %s", cfg.Engine.ReconnectMin, cfg.Engine.ReconnectMax))
	}

	// Classifier
	if !cfg.Classifier.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("classifier.kind %q is invalid; valid values: onnx, template", cfg.Classifier.Kind))
	}
	if cfg.Classifier.ConfidenceGate <= 0 || cfg.Classifier.ConfidenceGate >= 1 {
		errs = append(errs, fmt.Errorf("classifier.confidence_gate %.2f is out of range (0, 1)", cfg.Classifier.ConfidenceGate))
	}
	if cfg.Classifier.DistanceScale < 0 {
		errs = append(errs, fmt.Errorf("classifier.distance_scale %.2f must be positive", cfg.Classifier.DistanceScale))
	}
	if cfg.Engine.Mode == EngineLocal {
		if len(cfg.Classifier.Vocabulary) == 0 {
			errs = append(errs, errors.New("classifier.vocabulary is required when mode is local"))
		}
		if cfg.Classifier.Kind == ClassifierONNX && cfg.Classifier.ModelPath == "" {
			errs = append(errs, errors.New("classifier.model_path is required when kind is onnx"))
		}
	}
	seen := make(map[string]int, len(cfg.Classifier.Vocabulary))
	for i, label := range cfg.Classifier.Vocabulary {
		prefix := fmt.Sprintf("classifier.vocabulary[%d]", i)
		if label == "" {
			errs = append(errs, fmt.Errorf("%s is empty", prefix))
			continue
		}
		if prev, ok := seen[label]; ok {
			errs = append(errs, fmt.Errorf("%s %q is a duplicate of classifier.vocabulary[%d]", prefix, label, prev))
		}
		seen[label] = i
	}

	// Session
	if cfg.Session.CountdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("session.countdown_seconds %d must be positive", cfg.Session.CountdownSeconds))
	}
	if cfg.Session.SuccessThreshold < 0 || cfg.Session.SuccessThreshold > 100 {
		errs = append(errs, fmt.Errorf("session.success_threshold %.1f is out of range (0, 100]", cfg.Session.SuccessThreshold))
	}

	// Assets
	if cfg.Assets.Dir != "" {
		if _, err := os.Stat(cfg.Assets.Dir); err != nil {
			slog.Warn("assets.dir is not readable; reference images will be unavailable", "dir", cfg.Assets.Dir, "err", err)
		}
	}

	return errors.Join(errs...)
}
