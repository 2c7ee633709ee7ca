// Package shell hosts the command registry, palette, launcher and the open
// tabs that bindings and sessions are registered with.
package shell

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/soar/gamepadview/internal/binding"
)

// ErrUnknownCommand is returned when executing an id nobody registered.
var ErrUnknownCommand = errors.New("unknown command")

// CommandInfo describes a registered command without its callback.
type CommandInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Caption string `json:"caption"`
}

// Commands is the registry of executable commands.
type Commands struct {
	commands *xsync.MapOf[string, binding.Command]
}

func NewCommands() *Commands {
	return &Commands{commands: xsync.NewMapOf[string, binding.Command]()}
}

func (c *Commands) AddCommand(cmd binding.Command) (binding.Disposable, error) {
	if cmd.ID == "" {
		return nil, errors.New("command id must not be empty")
	}
	if _, loaded := c.commands.LoadOrStore(cmd.ID, cmd); loaded {
		return nil, fmt.Errorf("command %s already registered", cmd.ID)
	}
	return once(func() { c.commands.Delete(cmd.ID) }), nil
}

// Execute runs the command registered under id.
func (c *Commands) Execute(id string) error {
	cmd, ok := c.commands.Load(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	if cmd.Execute == nil {
		return nil
	}
	return cmd.Execute()
}

// Get returns the description of a registered command.
func (c *Commands) Get(id string) (CommandInfo, bool) {
	cmd, ok := c.commands.Load(id)
	if !ok {
		return CommandInfo{}, false
	}
	return info(cmd), true
}

// List returns all commands sorted by id.
func (c *Commands) List() []CommandInfo {
	var out []CommandInfo
	c.commands.Range(func(_ string, cmd binding.Command) bool {
		out = append(out, info(cmd))
		return true
	})
	slices.SortFunc(out, func(a, b CommandInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func info(cmd binding.Command) CommandInfo {
	return CommandInfo{ID: cmd.ID, Label: cmd.Label, Caption: cmd.Caption}
}

// once returns a Disposable that runs fn at most once.
func once(fn func()) binding.Disposable {
	var o sync.Once
	return binding.DisposeFunc(func() { o.Do(fn) })
}
