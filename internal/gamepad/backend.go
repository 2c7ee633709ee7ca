package gamepad

import (
	"context"
	"errors"
	"time"
)

// DefaultPollInterval is roughly one poll per 60Hz frame.
const DefaultPollInterval = 16 * time.Millisecond

// ErrUnsupported is returned when no device enumeration is available.
var ErrUnsupported = errors.New("gamepad enumeration is not supported in this environment")

// Backend is an Enumerator with a polling lifecycle.
type Backend interface {
	Enumerator
	// Start blocks until the backend is ready and then polls in the
	// background until ctx is cancelled.
	Start(ctx context.Context) error
	// Done is closed once background polling has stopped.
	Done() <-chan struct{}
}
