package gamepad

import "encoding/json"

// RawButton is one button as reported by an enumeration backend.
type RawButton struct {
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"`
}

// RawReport is the unnormalized state of the device occupying one slot.
type RawReport struct {
	Index     int         `json:"index"`
	ID        string      `json:"id"`
	Connected bool        `json:"connected"`
	Timestamp float64     `json:"timestamp"`
	Buttons   []RawButton `json:"buttons"`
	Axes      []float64   `json:"axes"`
}

// Clone returns a deep copy of the report.
func (r *RawReport) Clone() *RawReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Buttons = append([]RawButton(nil), r.Buttons...)
	c.Axes = append([]float64(nil), r.Axes...)
	return &c
}

// Enumerator exposes the devices currently attached, indexed by slot.
// A nil entry means the slot is empty.
type Enumerator interface {
	Gamepads() []*RawReport
}

// GamepadState is the last known normalized state of one controller.
//
// Setup sizes Buttons and Axes to the connected device; Update only copies
// values into the existing slices; Reset empties them.
type GamepadState struct {
	Connected bool
	ID        string
	Timestamp float64
	Buttons   []int
	Axes      []float64
}

// Setup prepares the state for a newly detected device.
func (s *GamepadState) Setup(raw *RawReport) {
	s.ID = raw.ID
	s.Connected = raw.Connected
	s.Timestamp = raw.Timestamp
	s.Buttons = make([]int, len(raw.Buttons))
	s.Axes = make([]float64, len(raw.Axes))
}

// Update copies the current values of raw into the sized slices.
func (s *GamepadState) Update(raw *RawReport) {
	if raw == nil {
		return
	}
	s.Timestamp = raw.Timestamp
	for i := range s.Buttons {
		if i >= len(raw.Buttons) {
			break
		}
		if raw.Buttons[i].Pressed {
			s.Buttons[i] = 1
		} else {
			s.Buttons[i] = 0
		}
	}
	for i := range s.Axes {
		if i >= len(raw.Axes) {
			break
		}
		s.Axes[i] = raw.Axes[i]
	}
}

// Reset forgets the device.
func (s *GamepadState) Reset() {
	s.Connected = false
	s.ID = ""
	s.Timestamp = 0
	s.Buttons = []int{}
	s.Axes = []float64{}
}

// ToMessage returns a copy of the state in its wire shape.
func (s *GamepadState) ToMessage() Message {
	if !s.Connected {
		return Message{}
	}
	return Message{
		Header: &Header{
			ID:    s.ID,
			Stamp: s.Timestamp,
		},
		Axes:    append([]float64{}, s.Axes...),
		Buttons: append([]int{}, s.Buttons...),
	}
}

// Header identifies the device a Message came from.
type Header struct {
	ID    string  `json:"id"`
	Stamp float64 `json:"stamp"`
}

// Message is the snapshot handed to display and publish sinks. The zero
// value is the disconnected message and encodes as {}.
type Message struct {
	Header  *Header
	Axes    []float64
	Buttons []int
}

// Empty reports whether m carries no device.
func (m Message) Empty() bool {
	return m.Header == nil
}

// MarshalJSON encodes an empty message as {} and always emits both arrays
// otherwise.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Empty() {
		return []byte("{}"), nil
	}
	type wire struct {
		Header  *Header   `json:"header"`
		Axes    []float64 `json:"axes"`
		Buttons []int     `json:"buttons"`
	}
	w := wire{Header: m.Header, Axes: m.Axes, Buttons: m.Buttons}
	if w.Axes == nil {
		w.Axes = []float64{}
	}
	if w.Buttons == nil {
		w.Buttons = []int{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both the empty and the populated form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w struct {
		Header  *Header   `json:"header"`
		Axes    []float64 `json:"axes"`
		Buttons []int     `json:"buttons"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{Header: w.Header, Axes: w.Axes, Buttons: w.Buttons}
	return nil
}
