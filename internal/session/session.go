// Package session runs the poll/diff/render loop for one controller slot.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/soar/gamepadview/internal/gamepad"
	"go.uber.org/zap"
)

// DisconnectedTitle labels a session whose slot is empty.
const DisconnectedTitle = "No gamepad connected"

// ErrUnsupported is returned by New when there is no device enumeration.
var ErrUnsupported = fmt.Errorf("cannot open gamepad session: %w", gamepad.ErrUnsupported)

type phase uint8

const (
	phaseWaiting phase = iota
	phasePolling
)

type Options struct {
	// ID identifies the session's tab. Generated when empty.
	ID        string
	Scheduler Scheduler
	Surface   Surface
	Publisher Publisher
	Log       *zap.Logger
}

// Session polls one device slot, once per scheduled frame, and renders the
// normalized snapshot on its surface.
//
// A session is either waiting for a device or polling one. Each tick
// schedules exactly one successor; when a render is issued the successor is
// only requested once that render settles.
type Session struct {
	id        string
	index     int
	devices   gamepad.Enumerator
	scheduler Scheduler
	surface   Surface
	publisher Publisher
	log       *zap.Logger

	// owned by the tick chain
	state gamepad.GamepadState
	phase phase

	closed atomic.Bool

	mu    sync.RWMutex
	title string
}

// New creates a session bound to the 0-based slot index.
func New(index int, devices gamepad.Enumerator, opts Options) (*Session, error) {
	if devices == nil {
		return nil, ErrUnsupported
	}
	if index < 0 {
		return nil, fmt.Errorf("invalid device index %d", index)
	}
	if opts.Scheduler == nil || opts.Surface == nil {
		return nil, errors.New("session requires a scheduler and a surface")
	}
	if opts.ID == "" {
		opts.ID = NewID(index)
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{Log: opts.Log}
	}
	return &Session{
		id:        opts.ID,
		index:     index,
		devices:   devices,
		scheduler: opts.Scheduler,
		surface:   opts.Surface,
		publisher: opts.Publisher,
		log:       opts.Log.With(zap.String("tab", opts.ID), zap.Int("index", index)),
		title:     DisconnectedTitle,
	}, nil
}

// NewID returns a fresh tab id for a session on slot index.
func NewID(index int) string {
	return fmt.Sprintf("gamepad-%d-%s", index, uuid.NewString())
}

func (s *Session) ID() string {
	return s.id
}

// Index returns the 0-based device slot.
func (s *Session) Index() int {
	return s.index
}

func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// Start renders the empty snapshot and begins waiting for a device.
func (s *Session) Start() {
	s.log.Info("connect gamepad and press any button")
	s.setTitle(DisconnectedTitle)
	s.render(s.state.ToMessage())
}

// Close stops the tick chain and closes the surface.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("session closed")
	s.surface.Close()
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) tick() {
	if s.closed.Load() {
		return
	}
	pad := s.report()
	switch s.phase {
	case phaseWaiting:
		s.waitTick(pad)
	case phasePolling:
		s.pollTick(pad)
	}
}

func (s *Session) report() *gamepad.RawReport {
	pads := s.devices.Gamepads()
	if s.index < len(pads) {
		return pads[s.index]
	}
	return nil
}

func (s *Session) waitTick(pad *gamepad.RawReport) {
	if pad == nil || !pad.Connected {
		s.scheduler.RequestFrame(s.tick)
		return
	}
	s.state.Setup(pad)
	s.setTitle(fmt.Sprintf("Gamepad #%d %s", s.index, s.state.ID))
	s.phase = phasePolling
	s.log.Info("gamepad found",
		zap.String("id", s.state.ID),
		zap.Int("buttons", len(s.state.Buttons)),
		zap.Int("axes", len(s.state.Axes)))
	s.scheduler.RequestFrame(s.tick)
}

func (s *Session) pollTick(pad *gamepad.RawReport) {
	switch {
	case pad == nil || !pad.Connected:
		s.log.Info("gamepad disconnected", zap.String("id", s.state.ID))
		s.disconnect()
	case pad.Index == s.index && pad.ID == s.state.ID:
		s.state.Update(pad)
		msg := s.state.ToMessage()
		if err := s.publisher.Publish(msg); err != nil {
			s.log.Warn("publish failed", zap.Error(err))
		}
		s.render(msg)
	default:
		s.log.Info("slot taken by another device",
			zap.String("was", s.state.ID),
			zap.String("now", pad.ID),
			zap.Int("reportedIndex", pad.Index))
		s.disconnect()
	}
}

func (s *Session) disconnect() {
	s.state.Reset()
	s.phase = phaseWaiting
	s.setTitle(DisconnectedTitle)
	s.render(s.state.ToMessage())
}

// render issues one render and requests the next tick once it settles,
// whatever the outcome.
func (s *Session) render(msg gamepad.Message) {
	var once sync.Once
	s.surface.Render(Payload{Gamepad: msg}, func(err error) {
		once.Do(func() {
			if err != nil {
				s.log.Warn("render failed", zap.Error(err))
			}
			s.scheduler.RequestFrame(s.tick)
		})
	})
}

func (s *Session) setTitle(label string) {
	s.mu.Lock()
	s.title = label
	s.mu.Unlock()
	s.surface.SetTitle(label)
}
