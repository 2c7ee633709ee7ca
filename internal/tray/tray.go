// Package tray shows a system tray icon with shortcuts into the running
// server.
package tray

import (
	_ "embed"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"go.uber.org/zap"
)

//go:embed icon.ico
var iconData []byte

type Options struct {
	// URL is opened by "Open Browser".
	URL string
	// Reload is called by "Reload Bindings".
	Reload func()
	// Shutdown is called once when "Exit" is clicked.
	Shutdown func()
	Log      *zap.Logger
}

// Tray manages the system tray icon and menu
type Tray struct {
	opts         Options
	log          *zap.Logger
	once         sync.Once
	shuttingDown atomic.Bool
	menuOpen     *systray.MenuItem
	menuReload   *systray.MenuItem
	menuExit     *systray.MenuItem
}

func New(opts Options) *Tray {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Tray{
		opts: opts,
		log:  opts.Log,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon, unblocking Run.
func (t *Tray) Quit() {
	t.shuttingDown.Store(true)
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetIcon(iconData)
	systray.SetTitle("GamepadView")
	systray.SetTooltip("GamepadView - " + t.opts.URL)

	t.menuOpen = systray.AddMenuItem("Open Browser", "Open web interface")
	t.menuReload = systray.AddMenuItem("Reload Bindings", "Re-read gamepad bindings from the config file")
	systray.AddSeparator()
	t.menuExit = systray.AddMenuItem("Exit", "Quit application")

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()

	t.log.Info("System tray initialized")
}

func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuOpen.ClickedCh:
			t.openBrowser()
		case <-t.menuReload.ClickedCh:
			if !t.shuttingDown.Load() && t.opts.Reload != nil {
				t.opts.Reload()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				if t.opts.Shutdown != nil {
					t.once.Do(t.opts.Shutdown)
				}
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.log.Info("System tray exiting")
}

func (t *Tray) openBrowser() {
	// Prevent multiple browser launches during shutdown
	if t.shuttingDown.Load() {
		return
	}
	if err := browserCommand(runtime.GOOS, t.opts.URL).Start(); err != nil {
		t.log.Warn("Failed to open browser", zap.String("url", t.opts.URL), zap.Error(err))
	}
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return exec.Command("open", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
