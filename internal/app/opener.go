// Package app connects bindings to running sessions.
package app

import (
	"github.com/soar/gamepadview/internal/gamepad"
	"github.com/soar/gamepadview/internal/hub"
	"github.com/soar/gamepadview/internal/session"
	"github.com/soar/gamepadview/internal/shell"
	"go.uber.org/zap"
)

// SessionOpener opens a tab with a running session for a device slot. It
// implements binding.Opener.
type SessionOpener struct {
	devices     gamepad.Enumerator
	scheduler   session.Scheduler
	broadcaster *hub.Broadcaster
	tabs        *shell.Shell
	log         *zap.Logger
}

// NewSessionOpener returns an opener. devices is nil when enumeration is
// unavailable, in which case every Open fails with session.ErrUnsupported.
func NewSessionOpener(devices gamepad.Enumerator, scheduler session.Scheduler, broadcaster *hub.Broadcaster, tabs *shell.Shell, log *zap.Logger) *SessionOpener {
	return &SessionOpener{
		devices:     devices,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		tabs:        tabs,
		log:         log,
	}
}

// Open starts a session on slot in a new tab.
func (o *SessionOpener) Open(slot int) error {
	id := session.NewID(slot)
	surface := o.broadcaster.Surface(id)
	s, err := session.New(slot, o.devices, session.Options{
		ID:        id,
		Scheduler: o.scheduler,
		Surface:   surface,
		Log:       o.log,
	})
	if err != nil {
		surface.Close()
		o.log.Warn("failed to open session", zap.Int("slot", slot), zap.Error(err))
		return err
	}
	o.tabs.Add(s)
	s.Start()
	return nil
}
