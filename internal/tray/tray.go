// Package tray provides a system tray front end for the recording session.
package tray

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signvision/internal/session"
)

// Controller is the session surface driven from the tray menu.
type Controller interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	Start() error
	Reset()
	SetCamera(on bool) error
}

// Tray represents the system tray application.
type Tray struct {
	ctrl   Controller
	log    *slog.Logger
	onOpen func()
	onQuit func()
	mu     sync.RWMutex

	menuStart  *systray.MenuItem
	menuCamera *systray.MenuItem
	menuTarget *systray.MenuItem
	menuPeak   *systray.MenuItem
	menuLast   *systray.MenuItem

	unsubscribe func()
}

// New creates a Tray bound to ctrl.
func New(ctrl Controller, log *slog.Logger) *Tray {
	if log == nil {
		log = slog.Default()
	}
	return &Tray{ctrl: ctrl, log: log}
}

// OnOpen sets the callback called when the open UI menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("SignVision")
	systray.SetTooltip("SignVision sign practice")

	t.menuStart = systray.AddMenuItem("Start test", "Start a timed recording")
	t.menuCamera = systray.AddMenuItem("Camera: off", "Toggle the camera")
	menuReset := systray.AddMenuItem("Reset score", "Clear the best score for the current sign")
	systray.AddSeparator()

	t.menuTarget = systray.AddMenuItem("Sign: -", "Current target sign")
	t.menuTarget.Disable()
	t.menuPeak = systray.AddMenuItem("Best: 0.0%", "Best confidence for the current sign")
	t.menuPeak.Disable()
	t.menuLast = systray.AddMenuItem("Last: "+session.WaitingLabel, "Last prediction")
	t.menuLast.Disable()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open SignVision...", "Open the practice page in a browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit SignVision")

	updates, unsubscribe := t.ctrl.Subscribe()
	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	go func() {
		for snap := range updates {
			t.render(snap)
		}
	}()

	go func() {
		for {
			select {
			case <-t.menuStart.ClickedCh:
				if err := t.ctrl.Start(); err != nil {
					t.log.Warn("start from tray failed", "err", err)
				}
			case <-t.menuCamera.ClickedCh:
				on := !t.ctrl.Snapshot().CameraOn
				if err := t.ctrl.SetCamera(on); err != nil {
					t.log.Warn("camera toggle failed", "err", err)
				}
			case <-menuReset.ClickedCh:
				t.ctrl.Reset()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		go callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

func (t *Tray) render(snap session.Snapshot) {
	m := menuFor(snap)
	t.menuStart.SetTitle(m.start)
	t.menuCamera.SetTitle(m.camera)
	t.menuTarget.SetTitle(m.target)
	t.menuPeak.SetTitle(m.peak)
	t.menuLast.SetTitle(m.last)
	systray.SetTitle(m.title)
}

// menuText holds the titles rendered for one snapshot.
type menuText struct {
	title  string
	start  string
	camera string
	target string
	peak   string
	last   string
}

func menuFor(snap session.Snapshot) menuText {
	m := menuText{
		title:  "SignVision",
		start:  "Start test",
		camera: "Camera: off",
		target: "Sign: " + snap.Target,
		peak:   fmt.Sprintf("Best: %.1f%%", snap.Peak),
		last:   "Last: " + snap.Label,
	}
	if snap.Target == "" {
		m.target = "Sign: -"
	}
	if snap.CameraOn {
		m.camera = "Camera: on"
	}
	if snap.Recording() {
		m.start = fmt.Sprintf("Restart test (%ds left)", snap.Remaining)
		m.title = fmt.Sprintf("● %ds", snap.Remaining)
	}
	if snap.Label != session.WaitingLabel && snap.Label != "" {
		m.last = fmt.Sprintf("Last: %s %.1f%%", snap.Label, snap.Confidence)
	}
	if snap.Success {
		m.last += " ✓"
	}
	return m
}
