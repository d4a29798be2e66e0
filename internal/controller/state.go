package controller

import "math"

// axisRange is the magnitude of a signed 16-bit stick axis.
const axisRange = 32768.0

// State is one immutable snapshot of the gamepad. Every processed event
// builds a fresh value and swaps it in whole, so readers never observe a
// partially updated snapshot. Steering and Throttle are always derived
// from the raw axes and d-pad, never written directly.
type State struct {
	Steering float64 // [-1,1], positive = right turn
	Throttle float64 // [-1,1], positive = forward

	ButtonA       bool
	ButtonB       bool
	ButtonX       bool
	ButtonY       bool
	ButtonL       bool
	ButtonR       bool
	ButtonZL      bool
	ButtonZR      bool
	ButtonMinus   bool
	ButtonPlus    bool
	ButtonHome    bool
	ButtonCapture bool

	DpadUp    bool
	DpadDown  bool
	DpadLeft  bool
	DpadRight bool

	LeftStickX  int32
	LeftStickY  int32
	RightStickX int32
	RightStickY int32

	Connected bool
}

// setButton returns whether the code mapped to a known button.
func (s *State) setButton(code uint16, pressed bool) bool {
	switch code {
	case BtnSouth:
		s.ButtonA = pressed
	case BtnEast:
		s.ButtonB = pressed
	case BtnNorth:
		s.ButtonX = pressed
	case BtnWest:
		s.ButtonY = pressed
	case BtnTL:
		s.ButtonL = pressed
	case BtnTR:
		s.ButtonR = pressed
	case BtnTL2:
		s.ButtonZL = pressed
	case BtnTR2:
		s.ButtonZR = pressed
	case BtnSelect:
		s.ButtonMinus = pressed
	case BtnStart:
		s.ButtonPlus = pressed
	case BtnMode:
		s.ButtonHome = pressed
	case BtnThumbL:
		s.ButtonCapture = pressed
	default:
		return false
	}
	return true
}

// setAxis returns whether the code mapped to a known axis. Hat axes carry
// the d-pad: -1/0/+1 per direction pair.
func (s *State) setAxis(code uint16, value int32) bool {
	switch code {
	case AbsX:
		s.LeftStickX = value
	case AbsY:
		s.LeftStickY = value
	case AbsRX:
		s.RightStickX = value
	case AbsRY:
		s.RightStickY = value
	case AbsHat0X:
		s.DpadLeft = value < 0
		s.DpadRight = value > 0
	case AbsHat0Y:
		s.DpadUp = value < 0
		s.DpadDown = value > 0
	default:
		return false
	}
	return true
}

// shaping holds the per-device tuning applied when deriving drive values.
type shaping struct {
	deadzone      float64
	steeringScale float64
	throttleScale float64
	throttleDir   float64
}

// derive recomputes Steering/Throttle from the left stick and d-pad.
// The vertical axis is inverted: pushing the stick away means forward.
// A held d-pad direction fully overrides the matching analog axis.
func (s *State) derive(sh shaping) {
	x := applyDeadzone(float64(s.LeftStickX)/axisRange, sh.deadzone)
	y := applyDeadzone(float64(s.LeftStickY)/axisRange, sh.deadzone)

	s.Steering = x * sh.steeringScale
	s.Throttle = -y * sh.throttleScale * sh.throttleDir

	if s.DpadLeft {
		s.Steering = -1.0
	} else if s.DpadRight {
		s.Steering = 1.0
	}
	if s.DpadUp {
		s.Throttle = 1.0
	} else if s.DpadDown {
		s.Throttle = -1.0
	}
}

// applyDeadzone zeroes values inside the deadzone and rescales the rest
// linearly so the output still spans the full [-1,1] range, avoiding a
// dead notch at the boundary.
func applyDeadzone(v, deadzone float64) float64 {
	if math.Abs(v) < deadzone {
		return 0.0
	}
	return math.Copysign((math.Abs(v)-deadzone)/(1.0-deadzone), v)
}
