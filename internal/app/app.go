// Package app wires the camera, the prediction source and the session
// controller together for one learner.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signvision/internal/capture"
	"github.com/ayusman/signvision/internal/config"
	"github.com/ayusman/signvision/internal/detector"
	"github.com/ayusman/signvision/internal/engine"
	"github.com/ayusman/signvision/internal/gesture"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/prediction"
	"github.com/ayusman/signvision/internal/session"
	"github.com/ayusman/signvision/internal/store"
	"github.com/ayusman/signvision/internal/stream"
)

// Config holds the collaborators of an App. Only Config is required; the
// rest are built from it when nil.
type Config struct {
	Config *config.Config
	Store  *store.Store

	Camera   capture.Camera
	Detector detector.Detector
	Model    gesture.Model

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// runner is a prediction source driven by App.Run.
type runner interface {
	session.Capture
	Run(ctx context.Context) error
}

// App is the main application that routes camera frames to a classifier
// and predictions to the session controller.
type App struct {
	cfg     *config.Config
	store   *store.Store
	camera  capture.Camera
	metrics *observe.Metrics
	log     *slog.Logger

	ctrl   *session.Controller
	source runner

	// Local mode only.
	detector  detector.Detector
	model     gesture.Model
	vocab     gesture.Vocabulary
	templates *gesture.TemplateModel
	engine    *engine.Server
}

// New creates an App in the mode selected by the configuration.
func New(c Config) (*App, error) {
	if c.Config == nil {
		return nil, errors.New("app: configuration is required")
	}
	cfg := c.Config
	if c.Metrics == nil {
		c.Metrics = observe.DefaultMetrics()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	a := &App{
		cfg:     cfg,
		store:   c.Store,
		camera:  c.Camera,
		metrics: c.Metrics,
		log:     c.Logger,
		vocab:   gesture.Vocabulary(cfg.Classifier.Vocabulary),
	}
	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Options{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			Mirror:   cfg.Camera.Mirror,
			FPS:      fpsFor(cfg.Engine.FrameInterval),
		})
	}
	if len(a.vocab) > 0 {
		if err := a.vocab.Validate(); err != nil {
			return nil, fmt.Errorf("classifier vocabulary: %w", err)
		}
	}

	var err error
	switch cfg.Engine.Mode {
	case config.EngineLocal:
		err = a.initLocal(c)
	case config.EngineRemote:
		err = a.initRemote()
	default:
		err = fmt.Errorf("unknown engine mode %q", cfg.Engine.Mode)
	}
	if err != nil {
		return nil, err
	}

	var peaks session.PeakStore
	if a.store != nil {
		peaks = a.store.PeakScores()
	}
	a.ctrl = session.New(session.Config{
		Countdown:        cfg.Session.CountdownSeconds,
		SuccessThreshold: cfg.Session.SuccessThreshold,
		Target:           cfg.Session.InitialSign,
		Store:            peaks,
		Capture:          a.source,
		Camera:           a.camera,
		Metrics:          a.metrics,
		Logger:           a.log,
	})

	return a, nil
}

func (a *App) initRemote() error {
	src := capture.NewDataURLSource(a.camera, a.cfg.Engine.JPEGQuality)
	client, err := stream.NewClient(stream.Config{
		URL:           a.cfg.Engine.URL,
		FrameInterval: a.cfg.Engine.FrameInterval,
		TagFrames:     a.cfg.Engine.TagFrames,
		ReconnectMin:  a.cfg.Engine.ReconnectMin,
		ReconnectMax:  a.cfg.Engine.ReconnectMax,
		Metrics:       a.metrics,
		Logger:        a.log,
	}, src, a)
	if err != nil {
		return fmt.Errorf("engine client: %w", err)
	}
	a.source = client
	a.log.Info("using remote inference engine", "url", a.cfg.Engine.URL, "tagged", a.cfg.Engine.TagFrames)
	return nil
}

func (a *App) initLocal(c Config) error {
	a.detector = c.Detector
	if a.detector == nil {
		// Try the Holistic service first, fall back to the mock detector.
		hd, err := detector.NewHolisticDetector(detector.Config{
			ScriptPath:      a.cfg.Detector.ScriptPath,
			ModelComplexity: a.cfg.Detector.ModelComplexity,
			MinConfidence:   a.cfg.Detector.MinConfidence,
			MinTrackingConf: a.cfg.Detector.MinTrackingConf,
		})
		if err != nil {
			a.log.Warn("holistic detector not available, using mock detector", "err", err)
			a.detector = detector.NewMockDetector()
		} else {
			a.detector = hd
		}
	}

	a.model = c.Model
	if a.model == nil {
		switch a.cfg.Classifier.Kind {
		case config.ClassifierONNX:
			m, err := gesture.LoadONNXModel(a.cfg.Classifier.ModelPath)
			if err != nil {
				return err
			}
			a.model = m
		default:
			a.templates = gesture.NewTemplateModel(a.vocab, a.cfg.Classifier.DistanceScale)
			a.model = a.templates
			if err := a.LoadTemplates(); err != nil {
				return err
			}
		}
	} else if tm, ok := a.model.(*gesture.TemplateModel); ok {
		a.templates = tm
	}

	rec, err := engine.NewRecognizer(a.detector, a.model, a.vocab, a.cfg.Classifier.ConfidenceGate, a.metrics)
	if err != nil {
		return err
	}
	a.source = newPipeline(a.camera, rec, a, a.cfg.Engine.FrameInterval, a.metrics, a.log)

	a.engine, err = engine.NewServer(a.detector, a.model, a.vocab, a.cfg.Classifier.ConfidenceGate, a.metrics, a.log)
	if err != nil {
		return err
	}
	a.log.Info("using local classifier", "kind", a.cfg.Classifier.Kind, "labels", len(a.vocab))
	return nil
}

// Run drives the countdown and the prediction source until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.ctrl.Run(ctx) })
	g.Go(func() error { return a.source.Run(ctx) })
	return g.Wait()
}

// HandlePrediction forwards a prediction to the session controller.
func (a *App) HandlePrediction(p prediction.Prediction) {
	a.ctrl.HandlePrediction(p)
}

// SetConnected forwards the channel state to the session controller.
func (a *App) SetConnected(connected bool) {
	a.ctrl.SetConnected(connected)
}

// Controller returns the session controller.
func (a *App) Controller() *session.Controller {
	return a.ctrl
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Engine returns the websocket inference service, or nil in remote mode.
func (a *App) Engine() http.Handler {
	if a.engine == nil {
		return nil
	}
	return a.engine
}

// Vocabulary returns the configured classifier labels.
func (a *App) Vocabulary() gesture.Vocabulary {
	return a.vocab
}

// Close releases the camera, detector and model.
func (a *App) Close() error {
	var errs []error
	if a.camera.IsOpen() {
		errs = append(errs, a.camera.Close())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.model != nil {
		errs = append(errs, a.model.Close())
	}
	return errors.Join(errs...)
}

func fpsFor(interval time.Duration) int {
	if interval <= 0 {
		return capture.DefaultFPS
	}
	return max(int(time.Second/interval), 1)
}
