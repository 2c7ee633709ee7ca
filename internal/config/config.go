// Package config loads settings from a file, the environment and flags, and
// notifies subscribers when the file changes.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/soar/gamepadview/internal/binding"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	EnvPrefix = "GAMEPADVIEW"
	fileName  = "gamepadview"
)

// Backends that can enumerate devices.
const (
	BackendSDL      = "sdl"
	BackendJoystick = "joystick"
)

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Addr          string            `mapstructure:"addr"`
	Log           LogConfig         `mapstructure:"log"`
	Backend       string            `mapstructure:"backend"`
	FrameInterval time.Duration     `mapstructure:"frameInterval"`
	Gamepads      []binding.Binding `mapstructure:"gamepads"`
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"addr":          "addr",
	"log.level":     "log-level",
	"backend":       "backend",
	"frameInterval": "frame-interval",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("backend", BackendSDL)
	v.SetDefault("frameInterval", 16*time.Millisecond)
	v.SetDefault("gamepads", []map[string]any{
		{"gamepadIndex": 1, "alias": "Gamepad 1"},
	})
}

// Store is the live configuration.
type Store struct {
	log *zap.Logger
	v   *viper.Viper

	ready chan struct{}

	// mu guards v as well as the subscriber list; viper is not safe for
	// concurrent use.
	mu          sync.Mutex
	subscribers []func()
}

// New reads the configuration file at path, or looks for gamepadview.* in
// the working directory and the user config directory when path is empty.
// A missing file leaves the defaults in place. Flags present in flags
// override file and environment values.
func New(log *zap.Logger, path string, flags *pflag.FlagSet) (*Store, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, fileName))
		}
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		log.Info("Config loaded", zap.String("file", v.ConfigFileUsed()))
	case errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist):
		log.Info("No config file found, using defaults", zap.String("file", path))
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &Store{log: log, v: v, ready: make(chan struct{})}, nil
}

// Load returns the current settings.
func (s *Store) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Bindings returns the current gamepad bindings.
func (s *Store) Bindings() ([]binding.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []binding.Binding
	if err := s.v.UnmarshalKey("gamepads", &out); err != nil {
		return nil, fmt.Errorf("failed to decode gamepads: %w", err)
	}
	return out, nil
}

// File returns the config file in use, if any.
func (s *Store) File() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.ConfigFileUsed()
}

// OnChange registers fn to be called after every change.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Watch re-reads the file whenever it is written or created and notifies
// subscribers. It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	file := s.File()
	if file == "" {
		close(s.ready)
		s.log.Info("No config file to watch")
		<-ctx.Done()
		return nil
	}
	absPath, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", file, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to add path to watcher %s: %w", file, err)
	}
	close(s.ready)
	s.log.Info("Watching config", zap.String("file", absPath))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == absPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				s.reload(event)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", zap.Error(err))
		}
	}
}

// Ready is closed once Watch is observing the file.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) reload(event fsnotify.Event) {
	s.mu.Lock()
	err := s.v.ReadInConfig()
	s.mu.Unlock()
	if err != nil {
		// editors often truncate before writing; the next event has the full file
		s.log.Warn("Failed to re-read config", zap.String("file", event.Name), zap.Error(err))
		return
	}
	s.log.Info("Config changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
	s.Notify()
}

// Notify calls every subscriber.
func (s *Store) Notify() {
	s.mu.Lock()
	subs := append([]func(){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
