package controller

import (
	"math"
	"testing"
)

func testShaping() shaping {
	return shaping{
		deadzone:      0.05,
		steeringScale: 1.0,
		throttleScale: 1.0,
		throttleDir:   1.0,
	}
}

// ===== Deadzone Tests =====

func TestApplyDeadzoneInsideIsZero(t *testing.T) {
	for _, v := range []float64{0.0, 0.01, -0.01, 0.0499, -0.0499} {
		if got := applyDeadzone(v, 0.05); got != 0.0 {
			t.Errorf("applyDeadzone(%v) = %v, expected 0", v, got)
		}
	}
}

func TestApplyDeadzoneFullDeflection(t *testing.T) {
	for _, dz := range []float64{0.0, 0.05, 0.2, 0.5} {
		if got := applyDeadzone(1.0, dz); math.Abs(got-1.0) > 1e-9 {
			t.Errorf("applyDeadzone(1.0, %v) = %v, expected 1.0", dz, got)
		}
		if got := applyDeadzone(-1.0, dz); math.Abs(got+1.0) > 1e-9 {
			t.Errorf("applyDeadzone(-1.0, %v) = %v, expected -1.0", dz, got)
		}
	}
}

func TestApplyDeadzoneContinuousAtBoundary(t *testing.T) {
	// Just past the deadzone the output is near zero, not a jump.
	got := applyDeadzone(0.051, 0.05)
	if got < 0 || got > 0.01 {
		t.Errorf("applyDeadzone(0.051) = %v, expected small positive value", got)
	}
}

func TestApplyDeadzonePreservesSign(t *testing.T) {
	if got := applyDeadzone(-0.5, 0.05); got >= 0 {
		t.Errorf("applyDeadzone(-0.5) = %v, expected negative", got)
	}
}

// ===== Derivation Tests =====

func TestDeriveThrottleInverted(t *testing.T) {
	s := State{LeftStickY: -32768} // stick pushed away
	s.derive(testShaping())
	if math.Abs(s.Throttle-1.0) > 1e-9 {
		t.Errorf("Expected throttle 1.0, got %v", s.Throttle)
	}
}

func TestDeriveSteering(t *testing.T) {
	s := State{LeftStickX: 16384}
	s.derive(testShaping())
	want := applyDeadzone(16384.0/axisRange, 0.05)
	if math.Abs(s.Steering-want) > 1e-9 {
		t.Errorf("Expected steering %v, got %v", want, s.Steering)
	}
}

func TestDeriveAppliesScales(t *testing.T) {
	sh := testShaping()
	sh.throttleScale = 0.8
	s := State{LeftStickY: -32768}
	s.derive(sh)
	if math.Abs(s.Throttle-0.8) > 1e-9 {
		t.Errorf("Expected throttle 0.8, got %v", s.Throttle)
	}
}

func TestDeriveThrottleDirReverses(t *testing.T) {
	sh := testShaping()
	sh.throttleDir = -1.0
	s := State{LeftStickY: -32768}
	s.derive(sh)
	if math.Abs(s.Throttle+1.0) > 1e-9 {
		t.Errorf("Expected throttle -1.0, got %v", s.Throttle)
	}
}

func TestDeriveDpadOverridesStick(t *testing.T) {
	s := State{LeftStickY: 32767, DpadUp: true}
	s.derive(testShaping())
	if s.Throttle != 1.0 {
		t.Errorf("Expected d-pad override throttle 1.0, got %v", s.Throttle)
	}

	s = State{LeftStickX: -32768, DpadRight: true}
	s.derive(testShaping())
	if s.Steering != 1.0 {
		t.Errorf("Expected d-pad override steering 1.0, got %v", s.Steering)
	}
}

func TestDeriveDpadReleaseRestoresStick(t *testing.T) {
	s := State{LeftStickY: -32768}
	s.setAxis(AbsHat0Y, -1)
	s.derive(testShaping())
	if s.Throttle != 1.0 {
		t.Fatalf("Expected override, got %v", s.Throttle)
	}

	s.setAxis(AbsHat0Y, 0)
	s.derive(testShaping())
	if math.Abs(s.Throttle-1.0) > 1e-9 {
		t.Errorf("Expected stick throttle 1.0 after release, got %v", s.Throttle)
	}
}

// ===== Event Mapping Tests =====

func TestSetButtonKnownCodes(t *testing.T) {
	s := State{}
	if !s.setButton(BtnSouth, true) || !s.ButtonA {
		t.Error("BtnSouth should map to ButtonA")
	}
	if !s.setButton(BtnStart, true) || !s.ButtonPlus {
		t.Error("BtnStart should map to ButtonPlus")
	}
	if !s.setButton(BtnSouth, false) || s.ButtonA {
		t.Error("Release should clear ButtonA")
	}
}

func TestSetButtonUnknownCode(t *testing.T) {
	s := State{}
	if s.setButton(0x1ff, true) {
		t.Error("Unknown code should not map")
	}
	if s != (State{}) {
		t.Error("Unknown code should leave state untouched")
	}
}

func TestSetAxisHatPairs(t *testing.T) {
	s := State{}
	s.setAxis(AbsHat0X, -1)
	if !s.DpadLeft || s.DpadRight {
		t.Error("Hat0X=-1 should set DpadLeft only")
	}
	s.setAxis(AbsHat0X, 1)
	if s.DpadLeft || !s.DpadRight {
		t.Error("Hat0X=1 should set DpadRight only")
	}
	s.setAxis(AbsHat0X, 0)
	if s.DpadLeft || s.DpadRight {
		t.Error("Hat0X=0 should clear both")
	}
}

func TestSetAxisUnknownCode(t *testing.T) {
	s := State{}
	if s.setAxis(0x3f, 100) {
		t.Error("Unknown axis should not map")
	}
}
