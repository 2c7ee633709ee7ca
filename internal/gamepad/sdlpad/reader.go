// Package sdlpad enumerates joysticks through SDL3.
package sdlpad

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/jupiterrider/purego-sdl3/sdl"
	"github.com/soar/gamepadview/internal/gamepad"
	"go.uber.org/zap"
)

type joystickInfo struct {
	joystick *sdl.Joystick
	name     string
	slot     int
	buttons  int32
	hats     int32
	axes     int32
}

// Reader enumerates joysticks through the SDL3 joystick API.
type Reader struct {
	log       *zap.Logger
	interval  time.Duration
	table     *gamepad.Table
	joysticks map[sdl.JoystickID]*joystickInfo
	done      chan struct{}
}

func NewReader(log *zap.Logger, interval time.Duration) *Reader {
	if interval <= 0 {
		interval = gamepad.DefaultPollInterval
	}
	return &Reader{
		log:       log,
		interval:  interval,
		table:     gamepad.NewTable(time.Now),
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		done:      make(chan struct{}),
	}
}

// Gamepads returns a snapshot of every slot.
func (r *Reader) Gamepads() []*gamepad.RawReport {
	return r.table.Gamepads()
}

// Done is closed once the polling loop has returned.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Start initializes SDL on a dedicated, locked OS thread and keeps polling on
// it until ctx is cancelled. It returns once initialization is complete.
func (r *Reader) Start(ctx context.Context) error {
	initErr := make(chan error, 1)
	go func() {
		defer close(r.done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if !sdl.Init(sdl.InitJoystick) {
			initErr <- fmt.Errorf("%w: SDL init failed: %s", gamepad.ErrUnsupported, sdl.GetError())
			return
		}
		defer sdl.Quit()
		r.log.Info("SDL3 joystick subsystem initialized")

		for _, id := range sdl.GetJoysticks() {
			r.openJoystick(id)
		}
		initErr <- nil

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.closeAll()
				return
			case <-ticker.C:
			}
			r.processEvents()
			r.pollState()
		}
	}()
	return <-initErr
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)
		}
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		r.log.Warn("failed to open joystick", zap.Uint32("instance", uint32(instanceID)), zap.String("error", sdl.GetError()))
		return
	}

	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	info := &joystickInfo{
		joystick: js,
		name:     sdl.GetJoystickName(js),
		buttons:  sdl.GetNumJoystickButtons(js),
		hats:     sdl.GetNumJoystickHats(js),
		axes:     sdl.GetNumJoystickAxes(js),
	}
	id := fmt.Sprintf("%s (Vendor: %04x Product: %04x)", info.name, vendorID, productID)
	buttons := int(info.buttons) + int(info.hats)*gamepad.ButtonsPerHat
	info.slot = r.table.Attach(id, buttons, int(info.axes))
	r.joysticks[instanceID] = info

	r.log.Info("joystick connected",
		zap.String("id", id),
		zap.Int("slot", info.slot),
		zap.Int32("axes", info.axes),
		zap.Int32("buttons", info.buttons),
		zap.Int32("hats", info.hats))
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}
	r.log.Info("joystick disconnected", zap.String("name", info.name), zap.Int("slot", info.slot))
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)
	r.table.Detach(info.slot)
}

func (r *Reader) closeAll() {
	for id, info := range r.joysticks {
		sdl.CloseJoystick(info.joystick)
		r.table.Detach(info.slot)
		delete(r.joysticks, id)
	}
}

func (r *Reader) pollState() {
	for id, info := range r.joysticks {
		js := info.joystick
		if !sdl.JoystickConnected(js) {
			r.removeJoystick(id)
			continue
		}

		buttons := make([]gamepad.RawButton, 0, int(info.buttons)+int(info.hats)*gamepad.ButtonsPerHat)
		for i := int32(0); i < info.buttons; i++ {
			buttons = append(buttons, gamepad.Pressed(sdl.GetJoystickButton(js, i)))
		}
		for i := int32(0); i < info.hats; i++ {
			hat := gamepad.HatButtons(sdl.GetJoystickHat(js, i))
			buttons = append(buttons, hat[:]...)
		}

		axes := make([]float64, info.axes)
		for i := range axes {
			axes[i] = gamepad.ApplyDeadzone(gamepad.NormalizeAxis(sdl.GetJoystickAxis(js, int32(i))), gamepad.Deadzone)
		}

		r.table.Update(info.slot, buttons, axes)
	}
}
