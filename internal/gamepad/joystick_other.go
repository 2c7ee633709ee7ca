//go:build !linux

package gamepad

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// JoystickReader is only available on Linux.
type JoystickReader struct {
	done chan struct{}
}

func NewJoystickReader(log *zap.Logger, interval time.Duration) *JoystickReader {
	return &JoystickReader{done: make(chan struct{})}
}

func (r *JoystickReader) Gamepads() []*RawReport {
	return nil
}

func (r *JoystickReader) Done() <-chan struct{} {
	return r.done
}

func (r *JoystickReader) Start(ctx context.Context) error {
	close(r.done)
	return ErrUnsupported
}
