package actuator

import (
	"math"
	"sync"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/hardware"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/types"
)

// Mapper converts throttle/steering intent into per-track motor commands.
// Run is driven from the control cycle, but Stop also arrives from state
// machine entry actions on their own goroutine, so the mutable pieces are
// guarded by a mutex.
type Mapper struct {
	driver      hardware.MotorDriver
	logger      *logger.Logger
	minThrottle float64
	maxPwm      float64
	softStart   bool
	slewStep    float64

	mu          sync.Mutex
	initialized bool

	// Previous cycle's shaped speeds, the slew limiter's memory.
	prevLeft  float64
	prevRight float64
}

// New builds a Mapper over the given driver and initializes the hardware.
// A nil driver or a failed Init leaves the mapper in degraded mode: Run
// returns neutral output and emits nothing, Stop stays callable.
func New(cfg *config.Config, driver hardware.MotorDriver, log *logger.Logger) *Mapper {
	m := &Mapper{
		driver:      driver,
		logger:      log.WithTag("actuator"),
		minThrottle: cfg.Control.MinThrottleValue(),
		maxPwm:      cfg.Motors.MaxPwm,
		softStart:   cfg.Control.SoftStartEnabled(),
		slewStep:    cfg.Control.SoftStartStep,
	}

	if driver == nil {
		m.logger.Warnf("No motor driver available, running in degraded mode")
		return m
	}
	if err := driver.Init(); err != nil {
		m.logger.Errorf("Failed to initialize motor driver: %v", err)
		m.logger.Warnf("Running in degraded mode, all output will be neutral")
		return m
	}
	m.initialized = true
	m.logger.Infof("Actuator initialized (min_throttle=%.2f max_pwm=%.2f soft_start=%v)",
		m.minThrottle, m.maxPwm, m.softStart)
	return m
}

// Initialized reports whether the motor driver is usable.
func (m *Mapper) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Compute performs the differential-drive mix. When the mix saturates it
// rescales both tracks by the common factor, preserving the turning ratio
// instead of clamping each side independently.
func (m *Mapper) Compute(throttle, steering float64) (float64, float64) {
	left := throttle - steering
	right := throttle + steering

	if max := math.Max(math.Abs(left), math.Abs(right)); max > 1.0 {
		left /= max
		right /= max
	}
	return left, right
}

// Run executes one control cycle: clamp inputs, mix, shape and emit one
// command per track. In degraded mode it returns neutral output without
// emitting. The returned speeds are the normalized mix, before the
// stall floor and PWM scaling are applied to the emitted commands.
func (m *Mapper) Run(throttle, steering float64) (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0.0, 0.0
	}

	throttle = clamp(throttle)
	steering = clamp(steering)

	left, right := m.Compute(throttle, steering)
	m.prevLeft = m.emit(types.TrackLeft, m.shape(left, m.prevLeft))
	m.prevRight = m.emit(types.TrackRight, m.shape(right, m.prevRight))
	return left, right
}

// shape applies the minimum-throttle floor and the soft-start slew limit.
// The floor never creates motion from a true zero command.
func (m *Mapper) shape(speed, prev float64) float64 {
	if speed != 0 && math.Abs(speed) < m.minThrottle {
		speed = math.Copysign(m.minThrottle, speed)
	}
	if m.softStart {
		if delta := speed - prev; delta > m.slewStep {
			speed = prev + m.slewStep
		} else if delta < -m.slewStep {
			speed = prev - m.slewStep
		}
	}
	return speed
}

// emit sends one track command and returns the shaped speed for the
// slew limiter's memory.
func (m *Mapper) emit(track types.Track, speed float64) float64 {
	cmd := types.MotorCommand{
		Track:     track,
		Direction: types.DirectionStop,
		Magnitude: math.Abs(speed) * m.maxPwm,
	}
	if speed > 0 {
		cmd.Direction = types.DirectionForward
	} else if speed < 0 {
		cmd.Direction = types.DirectionBackward
	}

	if err := m.driver.SetTrackCommand(cmd); err != nil {
		m.logger.Warnf("Failed to command %s track: %v", track, err)
	}
	return speed
}

// Stop issues zero commands to both tracks unconditionally. It is safe to
// call in degraded mode and idempotent. It also clears the slew limiter's
// memory so the next ramp starts from standstill.
func (m *Mapper) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Mapper) stopLocked() {
	m.prevLeft = 0
	m.prevRight = 0

	if m.driver == nil {
		return
	}
	if err := m.driver.StopAll(); err != nil {
		m.logger.Debugf("Stop while driver unavailable: %v", err)
	}
}

// Shutdown stops both tracks and releases the hardware.
func (m *Mapper) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	if m.driver != nil {
		if err := m.driver.Shutdown(); err != nil {
			m.logger.Warnf("Motor driver shutdown failed: %v", err)
		}
	}
	m.initialized = false
	m.logger.Infof("Actuator shut down")
}

func clamp(v float64) float64 {
	return math.Max(-1.0, math.Min(1.0, v))
}
