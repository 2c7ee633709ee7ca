//go:build linux

package gamepad

import (
	"context"
	"time"

	"github.com/0xcafed00d/joystick"
	"go.uber.org/zap"
)

const (
	joystickSlots = 4
	reopenDelay   = time.Second
)

// JoystickReader enumerates /dev/input/js* devices. Slot i is js<i>.
type JoystickReader struct {
	log      *zap.Logger
	interval time.Duration
	table    *Table
	open     [joystickSlots]joystick.Joystick
	retryAt  [joystickSlots]time.Time
	done     chan struct{}
}

func NewJoystickReader(log *zap.Logger, interval time.Duration) *JoystickReader {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &JoystickReader{
		log:      log,
		interval: interval,
		table:    NewTable(time.Now),
		done:     make(chan struct{}),
	}
}

func (r *JoystickReader) Gamepads() []*RawReport {
	return r.table.Gamepads()
}

func (r *JoystickReader) Done() <-chan struct{} {
	return r.done
}

// Start checks every slot once and keeps polling in the background until ctx
// is cancelled.
func (r *JoystickReader) Start(ctx context.Context) error {
	r.poll(time.Now())
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.closeAll()
				return
			case now := <-ticker.C:
				r.poll(now)
			}
		}
	}()
	return nil
}

func (r *JoystickReader) poll(now time.Time) {
	for slot := range joystickSlots {
		js := r.open[slot]
		if js == nil {
			if now.Before(r.retryAt[slot]) {
				continue
			}
			opened, err := joystick.Open(slot)
			if err != nil {
				r.retryAt[slot] = now.Add(reopenDelay)
				continue
			}
			r.open[slot] = opened
			r.table.AttachAt(slot, opened.Name(), opened.ButtonCount(), opened.AxisCount())
			r.log.Info("joystick connected",
				zap.String("id", opened.Name()),
				zap.Int("slot", slot),
				zap.Int("axes", opened.AxisCount()),
				zap.Int("buttons", opened.ButtonCount()))
			js = opened
		}

		state, err := js.Read()
		if err != nil {
			r.log.Info("joystick disconnected", zap.Int("slot", slot), zap.Error(err))
			r.closeSlot(slot)
			r.retryAt[slot] = now.Add(reopenDelay)
			continue
		}

		buttons := make([]RawButton, js.ButtonCount())
		for i := range buttons {
			buttons[i] = Pressed(state.Buttons&(1<<uint(i)) != 0)
		}
		axes := make([]float64, len(state.AxisData))
		for i, v := range state.AxisData {
			axes[i] = ApplyDeadzone(NormalizeAxis(int16(v)), Deadzone)
		}
		r.table.Update(slot, buttons, axes)
	}
}

func (r *JoystickReader) closeSlot(slot int) {
	if r.open[slot] != nil {
		r.open[slot].Close()
		r.open[slot] = nil
	}
	r.table.Detach(slot)
}

func (r *JoystickReader) closeAll() {
	for slot := range joystickSlots {
		r.closeSlot(slot)
	}
}
