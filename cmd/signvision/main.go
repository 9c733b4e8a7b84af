package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signvision/internal/app"
	"github.com/ayusman/signvision/internal/config"
	"github.com/ayusman/signvision/internal/health"
	"github.com/ayusman/signvision/internal/observe"
	"github.com/ayusman/signvision/internal/server"
	"github.com/ayusman/signvision/internal/sign"
	"github.com/ayusman/signvision/internal/store"
	"github.com/ayusman/signvision/internal/tray"
)

// version is set at build time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "signvision: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel(cfg.Server.LogLevel),
		TimeFormat: "15:04:05",
	}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		log.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer shutdownMetrics(context.Background())
	metrics := observe.DefaultMetrics()

	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error("failed to create data directory", "dir", dir, "err", err)
			return 1
		}
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Error("failed to open store", "path", cfg.Store.Path, "err", err)
		return 1
	}
	defer st.Close()

	assets, err := sign.LoadAssetIndex(cfg.Assets.Dir)
	if err != nil {
		log.Warn("failed to load sign assets", "dir", cfg.Assets.Dir, "err", err)
		assets = sign.NewAssetIndex(nil)
	}

	application, err := app.New(app.Config{
		Config:  cfg,
		Store:   st,
		Metrics: metrics,
		Logger:  log,
	})
	if err != nil {
		log.Error("failed to create app", "err", err)
		return 1
	}
	defer application.Close()

	ctrl := application.Controller()
	checks := health.New(
		health.Checker{Name: "store", Check: st.Ping},
		health.Checker{Name: "engine", Check: func(context.Context) error {
			if !ctrl.Snapshot().Connected {
				return errors.New("inference engine not connected")
			}
			return nil
		}},
	)

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:       staticDir,
		Store:           st,
		Camera:          application.Camera(),
		Controller:      ctrl,
		Trainer:         application,
		Assets:          assets,
		Engine:          application.Engine(),
		Health:          checks,
		Metrics:         metrics,
		MetricsHandler:  promhttp.Handler(),
		PreviewInterval: cfg.Engine.FrameInterval / 3,
		Logger:          log,
	})
	httpServer := srv.HTTPServer(cfg.Server.ListenAddr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.ListenAddr, "mode", cfg.Engine.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Tray.Enabled {
		t := tray.New(ctrl, log)
		t.OnOpen(func() { openBrowser(log, localURL(cfg.Server.ListenAddr)) })
		t.OnQuit(cancel)
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		// The tray owns the main thread until it quits.
		t.Run()
		cancel()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown error", "err", err)
		return 1
	}
	log.Info("stopped")
	return 0
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(log *slog.Logger, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "err", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.signvision/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".signvision", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
