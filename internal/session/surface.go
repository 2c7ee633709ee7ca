package session

import (
	"encoding/json"

	"github.com/soar/gamepadview/internal/gamepad"
	"go.uber.org/zap"
)

// MimeJSON is the content kind of every payload a session renders.
const MimeJSON = "application/json"

// Payload is the JSON document a session renders on its surface.
type Payload struct {
	Gamepad gamepad.Message `json:"gamepad"`
}

// Surface is the display a session renders into.
type Surface interface {
	// Render asynchronously shows p and calls done exactly once when the
	// render has settled.
	Render(p Payload, done func(error))
	SetTitle(label string)
	Close()
}

// Publisher forwards snapshots to an external subscriber.
type Publisher interface {
	Publish(msg gamepad.Message) error
}

// NopPublisher encodes each message and drops it.
type NopPublisher struct {
	Log *zap.Logger
}

func (p NopPublisher) Publish(msg gamepad.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.Log != nil {
		p.Log.Debug("publish", zap.ByteString("message", data))
	}
	return nil
}
