package binding

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	// CommandPrefix is followed by ":<slot>" to form a binding's command id.
	CommandPrefix = "gamepadview:open-tab"

	PaletteCategory  = "Gamepads"
	LauncherCategory = "Robotics"
	launcherBaseRank = 10
)

// CommandID derives the command id for a 0-based device slot.
func CommandID(slot int) string {
	return fmt.Sprintf("%s:%d", CommandPrefix, slot)
}

type Collaborators struct {
	Commands CommandRegistry
	Palette  Palette
	// Launcher is optional.
	Launcher Launcher
	Opener   Opener
}

// Registry installs one command, palette item and launcher item per binding
// and owns the handles until the next reload.
type Registry struct {
	log    *zap.Logger
	collab Collaborators

	mu        sync.Mutex
	handles   []Disposable
	installed []string
}

func NewRegistry(log *zap.Logger, collab Collaborators) *Registry {
	return &Registry{
		log:    log,
		collab: collab,
	}
}

// Reload validates bindings and replaces every previously installed handle
// with freshly registered ones. A list that fails validation changes
// nothing. Calls are serialized.
func (r *Registry) Reload(bindings []Binding) error {
	if err := Validate(bindings); err != nil {
		r.log.Error("rejected bindings", zap.Int("bindings", len(bindings)), zap.Error(err))
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.disposeLocked()

	for _, b := range bindings {
		if err := r.installLocked(b); err != nil {
			r.disposeLocked()
			return fmt.Errorf("failed to install binding %q: %w", b.Alias, err)
		}
	}
	r.log.Info("bindings installed", zap.Strings("commands", r.installed))
	return nil
}

func (r *Registry) installLocked(b Binding) error {
	slot := b.Slot()
	id := CommandID(slot)
	cmd, err := r.collab.Commands.AddCommand(Command{
		ID:      id,
		Label:   b.Alias,
		Caption: fmt.Sprintf("Open %s Tab", b.Alias),
		Execute: func() error {
			return r.collab.Opener.Open(slot)
		},
	})
	if err != nil {
		return err
	}
	r.handles = append(r.handles, cmd)
	r.handles = append(r.handles, r.collab.Palette.AddItem(PaletteItem{
		Command:  id,
		Category: PaletteCategory,
	}))
	if r.collab.Launcher != nil {
		r.handles = append(r.handles, r.collab.Launcher.Add(LauncherItem{
			Command:  id,
			Rank:     launcherBaseRank + slot,
			Category: LauncherCategory,
		}))
	}
	r.installed = append(r.installed, id)
	return nil
}

func (r *Registry) disposeLocked() {
	for _, h := range r.handles {
		h.Dispose()
	}
	r.handles = nil
	r.installed = nil
}

// Close disposes everything currently installed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposeLocked()
}

// Installed returns the command ids of the current bindings, in order.
func (r *Registry) Installed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.installed...)
}

// IsConfigurationError reports whether err came from an invalid binding list.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrDuplicateIndex) || errors.Is(err, ErrInvalidIndex)
}
