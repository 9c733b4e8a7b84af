// Package config provides the configuration schema and loader for SignVision.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// EngineMode selects where predictions come from.
type EngineMode string

const (
	// EngineRemote streams frames to an inference engine over a websocket.
	EngineRemote EngineMode = "remote"

	// EngineLocal runs landmark detection and the classifier in-process.
	EngineLocal EngineMode = "local"
)

// IsValid reports whether m is a recognised engine mode.
func (m EngineMode) IsValid() bool {
	return m == EngineRemote || m == EngineLocal
}

// ClassifierKind selects the local model implementation.
type ClassifierKind string

const (
	ClassifierONNX     ClassifierKind = "onnx"
	ClassifierTemplate ClassifierKind = "template"
)

// IsValid reports whether k is a recognised classifier kind.
func (k ClassifierKind) IsValid() bool {
	return k == ClassifierONNX || k == ClassifierTemplate
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Camera     CameraConfig     `yaml:"camera"`
	Detector   DetectorConfig   `yaml:"detector"`
	Engine     EngineConfig     `yaml:"engine"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Session    SessionConfig    `yaml:"session"`
	Store      StoreConfig      `yaml:"store"`
	Assets     AssetsConfig     `yaml:"assets"`
	Tray       TrayConfig       `yaml:"tray"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// StaticDir is served at / when set.
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	DeviceID int  `yaml:"device_id"`
	Width    int  `yaml:"width"`
	Height   int  `yaml:"height"`
	Mirror   bool `yaml:"mirror"`
}

// DetectorConfig configures the Holistic landmark service used in local mode.
type DetectorConfig struct {
	ScriptPath      string  `yaml:"script_path"`
	ModelComplexity int     `yaml:"model_complexity"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
}

// EngineConfig configures the prediction source.
type EngineConfig struct {
	Mode EngineMode `yaml:"mode"`

	// URL is the websocket endpoint of the remote inference engine.
	URL string `yaml:"url"`

	// FrameInterval is the capture cadence.
	FrameInterval time.Duration `yaml:"frame_interval"`

	// TagFrames wraps each frame in an envelope carrying the session tag so
	// stale predictions can be discarded.
	TagFrames bool `yaml:"tag_frames"`

	JPEGQuality int `yaml:"jpeg_quality"`

	ReconnectMin time.Duration `yaml:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max"`
}

// ClassifierConfig configures the local classifier.
type ClassifierConfig struct {
	Kind      ClassifierKind `yaml:"kind"`
	ModelPath string         `yaml:"model_path"`

	// Vocabulary lists the model's output labels in order.
	Vocabulary []string `yaml:"vocabulary"`

	// ConfidenceGate is the score (0-1) a prediction must exceed.
	ConfidenceGate float64 `yaml:"confidence_gate"`

	// DistanceScale is the per-frame DTW distance at which the template
	// classifier scores 0.5.
	DistanceScale float64 `yaml:"distance_scale"`
}

// SessionConfig configures the recording session.
type SessionConfig struct {
	CountdownSeconds int `yaml:"countdown_seconds"`

	// SuccessThreshold is the percentage a matching prediction must exceed.
	SuccessThreshold float64 `yaml:"success_threshold"`

	// InitialSign is the target selected at startup.
	InitialSign string `yaml:"initial_sign"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AssetsConfig locates the reference images for signs.
type AssetsConfig struct {
	Dir string `yaml:"dir"`
}

// TrayConfig toggles the desktop tray menu.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr       = ":8080"
	DefaultFrameInterval    = 200 * time.Millisecond
	DefaultReconnectMin     = time.Second
	DefaultReconnectMax     = 30 * time.Second
	DefaultJPEGQuality      = 80
	DefaultConfidenceGate   = 0.8
	DefaultDistanceScale    = 2.0
	DefaultCountdown        = 5
	DefaultSuccessThreshold = 90.0
	DefaultStorePath        = "signvision.db"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Detector.ModelComplexity == 0 {
		cfg.Detector.ModelComplexity = 1
	}
	if cfg.Detector.MinConfidence == 0 {
		cfg.Detector.MinConfidence = 0.5
	}
	if cfg.Detector.MinTrackingConf == 0 {
		cfg.Detector.MinTrackingConf = 0.5
	}
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = EngineRemote
	}
	if cfg.Engine.FrameInterval == 0 {
		cfg.Engine.FrameInterval = DefaultFrameInterval
	}
	if cfg.Engine.JPEGQuality == 0 {
		cfg.Engine.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Engine.ReconnectMin == 0 {
		cfg.Engine.ReconnectMin = DefaultReconnectMin
	}
	if cfg.Engine.ReconnectMax == 0 {
		cfg.Engine.ReconnectMax = DefaultReconnectMax
	}
	if cfg.Classifier.Kind == "" {
		cfg.Classifier.Kind = ClassifierTemplate
	}
	if cfg.Classifier.ConfidenceGate == 0 {
		cfg.Classifier.ConfidenceGate = DefaultConfidenceGate
	}
	if cfg.Classifier.DistanceScale == 0 {
		cfg.Classifier.DistanceScale = DefaultDistanceScale
	}
	if cfg.Session.CountdownSeconds == 0 {
		cfg.Session.CountdownSeconds = DefaultCountdown
	}
	if cfg.Session.SuccessThreshold == 0 {
		cfg.Session.SuccessThreshold = DefaultSuccessThreshold
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
}
