package robot

import (
	"math"
	"testing"
)

func TestDegreesToTicks(t *testing.T) {
	tests := []struct {
		deg      float64
		expected int
	}{
		{0, 0},
		{90, 1024},
		{180, 2048},
		{360, 4096},
		{-90, -1024},
		{10, 113},   // 113.77 truncated
		{-10, -113}, // truncated toward zero
	}

	for _, tt := range tests {
		got := DegreesToTicks(tt.deg)
		if got != tt.expected {
			t.Errorf("DegreesToTicks(%f) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestTicksToDegrees(t *testing.T) {
	tests := []struct {
		ticks    int
		expected float64
	}{
		{0, 0},
		{1024, 90},
		{2048, 180},
		{4096, 360},
		{100, 8.79}, // 8.7890625
		{113, 9.93}, // 9.931640625
	}

	for _, tt := range tests {
		got := TicksToDegrees(tt.ticks)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("TicksToDegrees(%d) = %f, want %f", tt.ticks, got, tt.expected)
		}
	}
}

func TestUnits_RoundTrip(t *testing.T) {
	// Test round-trip: ticks -> degrees -> ticks
	for ticks := 0; ticks <= TicksPerRevolution; ticks += 256 {
		deg := TicksToDegrees(ticks)
		back := DegreesToTicks(deg)
		if math.Abs(float64(back-ticks)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", ticks, deg, back)
		}
	}
}

func TestPoseDegrees(t *testing.T) {
	got := PoseDegrees([]int{1024, 2048})
	if len(got) != 2 || got[0] != 90 || got[1] != 180 {
		t.Errorf("PoseDegrees = %v, want [90 180]", got)
	}
}

func TestMotorForID(t *testing.T) {
	if got := MotorForID(1); got != ShoulderPan {
		t.Errorf("MotorForID(1) = %s, want shoulder_pan", got)
	}
	if got := MotorForID(6); got != Gripper {
		t.Errorf("MotorForID(6) = %s, want gripper", got)
	}
	if got := MotorForID(12); got != "servo_12" {
		t.Errorf("MotorForID(12) = %s, want servo_12", got)
	}
}
