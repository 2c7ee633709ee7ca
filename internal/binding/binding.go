// Package binding turns the configured list of controller bindings into
// registered "open tab" commands, replacing them wholesale on every reload.
package binding

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIndex rejects a binding list that uses a gamepad index twice.
	ErrDuplicateIndex = errors.New("gamepadIndex must be unique")
	// ErrInvalidIndex rejects a gamepad index below 1.
	ErrInvalidIndex = errors.New("gamepadIndex must be at least 1")
)

// Binding maps a 1-based gamepad index to a human readable alias.
type Binding struct {
	GamepadIndex int    `mapstructure:"gamepadIndex" json:"gamepadIndex" yaml:"gamepadIndex"`
	Alias        string `mapstructure:"alias" json:"alias" yaml:"alias"`
}

// Slot returns the 0-based device slot of the binding.
func (b Binding) Slot() int {
	return b.GamepadIndex - 1
}

// Validate checks a whole binding list. It reports every problem it finds.
func Validate(bindings []Binding) error {
	var errs []error
	seen := make(map[int]struct{}, len(bindings))
	for _, b := range bindings {
		if b.GamepadIndex < 1 {
			errs = append(errs, fmt.Errorf("binding %q: %w, got %d", b.Alias, ErrInvalidIndex, b.GamepadIndex))
		}
		seen[b.GamepadIndex] = struct{}{}
	}
	if len(seen) < len(bindings) {
		errs = append(errs, fmt.Errorf("%w: %d bindings share %d indices", ErrDuplicateIndex, len(bindings), len(seen)))
	}
	return errors.Join(errs...)
}
