package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/soar/gamepadview/frontend"
	"github.com/soar/gamepadview/internal/app"
	"github.com/soar/gamepadview/internal/binding"
	"github.com/soar/gamepadview/internal/config"
	"github.com/soar/gamepadview/internal/gamepad"
	"github.com/soar/gamepadview/internal/gamepad/sdlpad"
	"github.com/soar/gamepadview/internal/hub"
	"github.com/soar/gamepadview/internal/logging"
	"github.com/soar/gamepadview/internal/server"
	"github.com/soar/gamepadview/internal/session"
	"github.com/soar/gamepadview/internal/shell"
	"github.com/soar/gamepadview/internal/tray"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// os.Interrupt covers Ctrl+C on Windows as well.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

const shutdownTimeout = 5 * time.Second

func main() {
	flags := pflag.NewFlagSet("gamepadview", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "config file (default gamepadview.yaml)")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("backend", config.BackendSDL, "device backend: sdl or joystick")
	logLevel := flags.String("log-level", "info", "log level")
	flags.Duration("frame-interval", session.DefaultFrameInterval, "time between display frames")
	listDevices := flags.Bool("list-devices", false, "print the attached devices and exit")
	noTray := flags.Bool("no-tray", false, "do not show the system tray icon")
	_ = flags.Parse(os.Args[1:])

	bootLog, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store, err := config.New(bootLog.Named("config"), *configPath, flags)
	if err != nil {
		bootLog.Fatal("failed to load config", zap.Error(err))
	}
	cfg, err := store.Load()
	if err != nil {
		bootLog.Fatal("failed to load config", zap.Error(err))
	}

	logger := bootLog
	if cfg.Log.Level != *logLevel {
		if logger, err = logging.New(cfg.Log.Level); err != nil {
			bootLog.Fatal("failed to create logger", zap.Error(err))
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if *listDevices {
		if err := printDevices(ctx, logger, cfg); err != nil {
			logger.Fatal("failed to list devices", zap.Error(err))
		}
		return
	}

	if err := run(ctx, logger, store, cfg, !*noTray && runtime.GOOS == "windows"); err != nil {
		logger.Fatal("gamepadview failed", zap.Error(err))
	}
	logger.Info("gamepadview stopped")
}

func newBackend(log *zap.Logger, cfg config.Config) (gamepad.Backend, error) {
	switch cfg.Backend {
	case config.BackendSDL:
		return sdlpad.NewReader(log.Named("sdl"), cfg.FrameInterval), nil
	case config.BackendJoystick:
		return gamepad.NewJoystickReader(log.Named("joystick"), cfg.FrameInterval), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// startBackend returns nil when device enumeration is unavailable.
func startBackend(ctx context.Context, log *zap.Logger, cfg config.Config) (gamepad.Enumerator, <-chan struct{}, error) {
	backend, err := newBackend(log, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.Start(ctx); err != nil {
		if errors.Is(err, gamepad.ErrUnsupported) {
			log.Warn("gamepad enumeration unavailable", zap.String("backend", cfg.Backend), zap.Error(err))
			return nil, backend.Done(), nil
		}
		return nil, nil, err
	}
	return backend, backend.Done(), nil
}

func printDevices(ctx context.Context, log *zap.Logger, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	devices, done, err := startBackend(ctx, log, cfg)
	if err != nil {
		cancel()
		return err
	}
	defer func() {
		cancel()
		<-done
	}()
	if devices == nil {
		return session.ErrUnsupported
	}
	// let hotplug events for already attached devices arrive
	time.Sleep(4 * cfg.FrameInterval)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(devices.Gamepads())
}

func run(ctx context.Context, logger *zap.Logger, store *config.Store, cfg config.Config, withTray bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	devices, backendDone, err := startBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}

	h := hub.NewHub(logger.Named("hub"))
	broadcaster := hub.NewBroadcaster(h, logger.Named("broadcast"))
	scheduler := session.NewFrameScheduler(cfg.FrameInterval)

	tabs := shell.New(logger.Named("shell"))
	commands := shell.NewCommands()
	palette := shell.NewPalette()
	launcher := shell.NewLauncher()

	registry := binding.NewRegistry(logger.Named("binding"), binding.Collaborators{
		Commands: commands,
		Palette:  palette,
		Launcher: launcher,
		Opener:   app.NewSessionOpener(devices, scheduler, broadcaster, tabs, logger.Named("session")),
	})

	reload := func() {
		bindings, err := store.Bindings()
		if err == nil {
			err = registry.Reload(bindings)
		}
		if err != nil {
			logger.Error("failed to apply bindings", zap.Error(err))
			broadcaster.Error(err)
		}
	}
	reload()
	store.OnChange(reload)

	srv := server.New(server.Options{
		Hub:         h,
		Broadcaster: broadcaster,
		Commands:    commands,
		Palette:     palette,
		Launcher:    launcher,
		Shell:       tabs,
		Devices:     devices,
		FrontendFS:  frontend.FS(),
		Addr:        cfg.Addr,
		Log:         logger.Named("server"),
	})

	var t *tray.Tray
	if withTray {
		t = tray.New(tray.Options{
			URL:    browserURL(cfg.Addr),
			Reload: store.Notify,
			Shutdown: func() {
				logger.Info("Shutdown requested from tray")
				cancel()
			},
			Log: logger.Named("tray"),
		})
		go t.Run()
	} else {
		logger.Info("Press Ctrl+C to exit")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(gctx) })
	g.Go(func() error { return broadcaster.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		if err := store.Watch(gctx); err != nil {
			logger.Warn("config changes will not be picked up", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		err := srv.Shutdown(shutdownCtx)

		tabs.CloseAll()
		registry.Close()
		<-backendDone
		if t != nil {
			t.Quit()
		}
		return err
	})

	logger.Info("gamepadview started", zap.String("url", browserURL(cfg.Addr)))
	return g.Wait()
}

func browserURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
