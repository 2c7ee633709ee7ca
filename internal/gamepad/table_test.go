package gamepad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestReportTableSlots(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	tbl := NewTable(clk.now)

	a := tbl.Attach("a", 2, 1)
	b := tbl.Attach("b", 1, 0)
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	tbl.Detach(a)
	pads := tbl.Gamepads()
	require.Len(t, pads, 2)
	assert.Nil(t, pads[0])
	assert.Equal(t, "b", pads[1].ID)
	assert.Equal(t, 1, pads[1].Index)

	// the freed slot is reused
	assert.Equal(t, 0, tbl.Attach("c", 0, 0))

	tbl.AttachAt(3, "d", 0, 0)
	pads = tbl.Gamepads()
	require.Len(t, pads, 4)
	assert.Nil(t, pads[2])
	assert.Equal(t, 3, pads[3].Index)
}

func TestReportTableTimestampOnlyAdvancesOnChange(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	tbl := NewTable(clk.now)
	slot := tbl.Attach("pad", 1, 1)

	clk.advance(10 * time.Millisecond)
	tbl.Update(slot, []RawButton{{Pressed: true, Value: 1}}, []float64{0.5})
	first := tbl.Gamepads()[slot]
	assert.Equal(t, 10.0, first.Timestamp)

	clk.advance(10 * time.Millisecond)
	tbl.Update(slot, []RawButton{{Pressed: true, Value: 1}}, []float64{0.5})
	assert.Equal(t, 10.0, tbl.Gamepads()[slot].Timestamp)

	clk.advance(5 * time.Millisecond)
	tbl.Update(slot, []RawButton{{}}, []float64{0.5})
	assert.Equal(t, 25.0, tbl.Gamepads()[slot].Timestamp)
}

func TestReportTableReturnsCopies(t *testing.T) {
	tbl := NewTable(time.Now)
	slot := tbl.Attach("pad", 1, 1)

	pads := tbl.Gamepads()
	pads[slot].Axes[0] = 1
	pads[slot].Buttons[0].Pressed = true

	fresh := tbl.Gamepads()[slot]
	assert.Zero(t, fresh.Axes[0])
	assert.False(t, fresh.Buttons[0].Pressed)
}

func TestUpdateUnknownSlotIsIgnored(t *testing.T) {
	tbl := NewTable(time.Now)
	require.NotPanics(t, func() {
		tbl.Update(4, nil, nil)
		tbl.Detach(4)
	})
	assert.Empty(t, tbl.Gamepads())
}
