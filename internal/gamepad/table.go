package gamepad

import (
	"slices"
	"sync"
	"time"
)

// Table holds the per-slot reports shared between a backend's polling
// goroutine and the sessions reading them.
type Table struct {
	mu    sync.RWMutex
	slots []*RawReport
	start time.Time
	now   func() time.Time
}

// NewTable returns an empty table whose timestamps count milliseconds
// from now().
func NewTable(now func() time.Time) *Table {
	return &Table{
		start: now(),
		now:   now,
	}
}

func (t *Table) stamp() float64 {
	return float64(t.now().Sub(t.start).Microseconds()) / 1000
}

// Attach places a new device in the first free slot and returns that slot.
func (t *Table) Attach(id string, buttons, axes int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	slot := slices.Index(t.slots, nil)
	if slot < 0 {
		slot = len(t.slots)
		t.slots = append(t.slots, nil)
	}
	t.attachLocked(slot, id, buttons, axes)
	return slot
}

// AttachAt places a new device in a fixed slot.
func (t *Table) AttachAt(slot int, id string, buttons, axes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.slots) <= slot {
		t.slots = append(t.slots, nil)
	}
	t.attachLocked(slot, id, buttons, axes)
}

func (t *Table) attachLocked(slot int, id string, buttons, axes int) {
	t.slots[slot] = &RawReport{
		Index:     slot,
		ID:        id,
		Connected: true,
		Timestamp: t.stamp(),
		Buttons:   make([]RawButton, buttons),
		Axes:      make([]float64, axes),
	}
}

// Detach empties a slot.
func (t *Table) Detach(slot int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot >= 0 && slot < len(t.slots) {
		t.slots[slot] = nil
	}
}

// Update stores the latest values for a slot. The timestamp only advances
// when a button or axis actually changed.
func (t *Table) Update(slot int, buttons []RawButton, axes []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil {
		return
	}
	r := t.slots[slot]
	if !changed(r, buttons, axes) {
		return
	}
	r.Buttons = append(r.Buttons[:0], buttons...)
	r.Axes = append(r.Axes[:0], axes...)
	r.Timestamp = t.stamp()
}

// Gamepads returns a copy of every slot.
func (t *Table) Gamepads() []*RawReport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*RawReport, len(t.slots))
	for i, r := range t.slots {
		out[i] = r.Clone()
	}
	return out
}

func changed(r *RawReport, buttons []RawButton, axes []float64) bool {
	if len(r.Buttons) != len(buttons) || len(r.Axes) != len(axes) {
		return true
	}
	for i := range buttons {
		if r.Buttons[i].Pressed != buttons[i].Pressed || r.Buttons[i].Value != buttons[i].Value {
			return true
		}
	}
	for i := range axes {
		if r.Axes[i] != axes[i] {
			return true
		}
	}
	return false
}
