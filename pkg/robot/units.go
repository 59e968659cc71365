package robot

import "math"

// TicksPerRevolution is the encoder resolution of STS servos.
const TicksPerRevolution = 4096

// DegreesToTicks converts an angle to raw ticks, truncating toward zero.
func DegreesToTicks(deg float64) int {
	return int(deg * TicksPerRevolution / 360)
}

// TicksToDegrees converts raw ticks to degrees, rounded to two decimals.
func TicksToDegrees(ticks int) float64 {
	return math.Round(float64(ticks)*360/TicksPerRevolution*100) / 100
}

// PoseDegrees converts every position of a pose to degrees.
func PoseDegrees(ticks []int) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = TicksToDegrees(t)
	}
	return out
}
