package selector

import "time"

// WheelSlot places one wedge item on the overlay, relative to the wheel image.
type WheelSlot struct {
	Index           int    `json:"index"`
	Left            string `json:"left"`
	Top             string `json:"top"`
	RotationDegrees int    `json:"rotation_degrees"`
}

// revealLag delays the winner banner until just after the wheel stops.
const revealLag = 100 * time.Millisecond

var wheelPositions = [DisplaySize]struct{ left, top string }{
	{"43%", "8%"},
	{"63%", "15%"},
	{"75%", "32%"},
	{"76%", "52%"},
	{"63%", "70%"},
	{"43%", "77%"},
	{"23%", "70%"},
	{"10%", "53%"},
	{"10%", "32%"},
	{"22%", "14%"},
}

// WheelLayout returns the fixed slot geometry for the DisplaySize wedges.
func WheelLayout() []WheelSlot {
	slots := make([]WheelSlot, DisplaySize)
	for i, pos := range wheelPositions {
		slots[i] = WheelSlot{
			Index:           i,
			Left:            pos.left,
			Top:             pos.top,
			RotationDegrees: i * WedgeDegrees,
		}
	}
	return slots
}

// SpinDuration converts a duration in seconds to the CSS transition length.
func SpinDuration(duration float64) time.Duration {
	return time.Duration(duration * float64(time.Second))
}

// RevealDelay is when the overlay should show the winner banner.
func RevealDelay(duration float64) time.Duration {
	return SpinDuration(duration) + revealLag
}
