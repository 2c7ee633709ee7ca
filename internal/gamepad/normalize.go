package gamepad

import "math"

const (
	// Deadzone is the axis magnitude below which backends report 0.
	Deadzone = 0.05

	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

// ButtonsPerHat is the number of trailing buttons a hat expands into.
const ButtonsPerHat = 4

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}

// ApplyDeadzone returns 0 if the value is within the deadzone threshold.
func ApplyDeadzone(v float64, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

// HatButtons expands a hat bitmask into up, down, left and right buttons.
func HatButtons(hat uint8) [ButtonsPerHat]RawButton {
	var out [ButtonsPerHat]RawButton
	for i, bit := range [ButtonsPerHat]uint8{hatUp, hatDown, hatLeft, hatRight} {
		if hat&bit != 0 {
			out[i] = RawButton{Pressed: true, Value: 1}
		}
	}
	return out
}

// Pressed returns a digital button in the given state.
func Pressed(p bool) RawButton {
	if p {
		return RawButton{Pressed: true, Value: 1}
	}
	return RawButton{}
}
