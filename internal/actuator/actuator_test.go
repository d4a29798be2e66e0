package actuator

import (
	"errors"
	"math"
	"sync"
	"testing"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/types"
)

// Mock MotorDriver
type mockDriver struct {
	mu        sync.Mutex
	commands  []types.MotorCommand
	stopCalls int
	initErr   error
	cmdErr    error
	shutdown  bool
}

func (m *mockDriver) Init() error { return m.initErr }

func (m *mockDriver) SetTrackCommand(cmd types.MotorCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
	return m.cmdErr
}

func (m *mockDriver) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

func (m *mockDriver) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
	return nil
}

// last returns the most recent command for a track.
func (m *mockDriver) last(track types.Track) (types.MotorCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.commands) - 1; i >= 0; i-- {
		if m.commands[i].Track == track {
			return m.commands[i], true
		}
	}
	return types.MotorCommand{}, false
}

func (m *mockDriver) commandCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commands)
}

func floatPtr(v float64) *float64 { return &v }

// testConfig returns defaults (min_throttle 0.3, max_pwm 1.0) with the
// slew limiter off so shaping tests see the floor in isolation.
func testConfig() *config.Config {
	cfg := config.Default()
	off := false
	cfg.Control.SoftStart = &off
	return cfg
}

func newTestMapper(cfg *config.Config) (*Mapper, *mockDriver) {
	driver := &mockDriver{}
	m := New(cfg, driver, logger.NewLogger(nil, logger.LogLevelError))
	return m, driver
}

// ===== Mix Tests =====

func TestComputeStraight(t *testing.T) {
	m, _ := newTestMapper(testConfig())

	left, right := m.Compute(0.5, 0.0)
	if left != 0.5 || right != 0.5 {
		t.Errorf("Expected (0.5, 0.5), got (%v, %v)", left, right)
	}
}

func TestComputeSaturatedTurn(t *testing.T) {
	m, _ := newTestMapper(testConfig())

	// 0.8 throttle with 0.8 steering saturates the right track; both
	// sides rescale by the same factor.
	left, right := m.Compute(0.8, 0.8)
	if left != 0.0 || right != 1.0 {
		t.Errorf("Expected (0, 1), got (%v, %v)", left, right)
	}
}

func TestComputeSpinInPlace(t *testing.T) {
	m, _ := newTestMapper(testConfig())

	left, right := m.Compute(0.0, 1.0)
	if left != -1.0 || right != 1.0 {
		t.Errorf("Expected (-1, 1), got (%v, %v)", left, right)
	}
}

func TestComputeOutputBounded(t *testing.T) {
	m, _ := newTestMapper(testConfig())

	for throttle := -1.0; throttle <= 1.0; throttle += 0.25 {
		for steering := -1.0; steering <= 1.0; steering += 0.25 {
			left, right := m.Compute(throttle, steering)
			if math.Abs(left) > 1.0 || math.Abs(right) > 1.0 {
				t.Errorf("Compute(%v, %v) out of bounds: (%v, %v)",
					throttle, steering, left, right)
			}
		}
	}
}

func TestComputePreservesRatio(t *testing.T) {
	m, _ := newTestMapper(testConfig())

	// Before saturation left/right = 0.2/1.4; after rescale the ratio
	// must survive.
	left, right := m.Compute(0.8, 0.6)
	if math.Abs(left/right-0.2/1.4) > 1e-9 {
		t.Errorf("Turning ratio not preserved: (%v, %v)", left, right)
	}
	if right != 1.0 {
		t.Errorf("Expected right track at 1.0, got %v", right)
	}
}

// ===== Shaping Tests =====

func TestRunAppliesMinThrottleFloor(t *testing.T) {
	m, driver := newTestMapper(testConfig())

	m.Run(0.1, 0.0)
	cmd, ok := driver.last(types.TrackLeft)
	if !ok {
		t.Fatal("No command emitted for left track")
	}
	if cmd.Direction != types.DirectionForward {
		t.Errorf("Expected forward, got %v", cmd.Direction)
	}
	if math.Abs(cmd.Magnitude-0.3) > 1e-9 {
		t.Errorf("Expected magnitude 0.3 (floored), got %v", cmd.Magnitude)
	}
}

func TestRunFloorPreservesSign(t *testing.T) {
	m, driver := newTestMapper(testConfig())

	m.Run(-0.1, 0.0)
	cmd, _ := driver.last(types.TrackRight)
	if cmd.Direction != types.DirectionBackward {
		t.Errorf("Expected backward, got %v", cmd.Direction)
	}
	if math.Abs(cmd.Magnitude-0.3) > 1e-9 {
		t.Errorf("Expected magnitude 0.3, got %v", cmd.Magnitude)
	}
}

func TestRunZeroStaysZero(t *testing.T) {
	m, driver := newTestMapper(testConfig())

	m.Run(0.0, 0.0)
	for _, track := range []types.Track{types.TrackLeft, types.TrackRight} {
		cmd, ok := driver.last(track)
		if !ok {
			t.Fatalf("No command emitted for %s track", track)
		}
		if cmd.Direction != types.DirectionStop || cmd.Magnitude != 0 {
			t.Errorf("Track %s: expected stop at 0, got %s %v",
				track, cmd.Direction, cmd.Magnitude)
		}
	}
}

func TestRunClampsInput(t *testing.T) {
	m, driver := newTestMapper(testConfig())

	m.Run(5.0, 0.0)
	cmd, _ := driver.last(types.TrackLeft)
	if cmd.Magnitude > 1.0 {
		t.Errorf("Expected magnitude <= 1.0, got %v", cmd.Magnitude)
	}
}

func TestRunMaxPwmScaling(t *testing.T) {
	cfg := testConfig()
	cfg.Motors.MaxPwm = 0.5
	m, driver := newTestMapper(cfg)

	m.Run(1.0, 0.0)
	cmd, _ := driver.last(types.TrackLeft)
	if math.Abs(cmd.Magnitude-0.5) > 1e-9 {
		t.Errorf("Expected magnitude 0.5, got %v", cmd.Magnitude)
	}
}

// ===== Soft Start Tests =====

func TestRunSoftStartRampsUp(t *testing.T) {
	cfg := testConfig()
	on := true
	cfg.Control.SoftStart = &on
	cfg.Control.SoftStartStep = 0.08
	cfg.Control.MinThrottle = floatPtr(0.0)
	m, driver := newTestMapper(cfg)

	m.Run(1.0, 0.0)
	cmd, _ := driver.last(types.TrackLeft)
	if math.Abs(cmd.Magnitude-0.08) > 1e-9 {
		t.Errorf("First cycle: expected 0.08, got %v", cmd.Magnitude)
	}

	m.Run(1.0, 0.0)
	cmd, _ = driver.last(types.TrackLeft)
	if math.Abs(cmd.Magnitude-0.16) > 1e-9 {
		t.Errorf("Second cycle: expected 0.16, got %v", cmd.Magnitude)
	}
}

func TestRunSoftStartStepBounded(t *testing.T) {
	cfg := testConfig()
	on := true
	cfg.Control.SoftStart = &on
	cfg.Control.SoftStartStep = 0.1
	cfg.Control.MinThrottle = floatPtr(0.0)
	m, driver := newTestMapper(cfg)

	prev := 0.0
	for i := 0; i < 20; i++ {
		m.Run(1.0, 0.0)
		cmd, _ := driver.last(types.TrackLeft)
		if cmd.Magnitude-prev > 0.1+1e-9 {
			t.Fatalf("Cycle %d: step %v exceeds limit", i, cmd.Magnitude-prev)
		}
		prev = cmd.Magnitude
	}
	if math.Abs(prev-1.0) > 1e-9 {
		t.Errorf("Expected ramp to reach 1.0, got %v", prev)
	}
}

func TestStopResetsSlewMemory(t *testing.T) {
	cfg := testConfig()
	on := true
	cfg.Control.SoftStart = &on
	cfg.Control.SoftStartStep = 0.08
	cfg.Control.MinThrottle = floatPtr(0.0)
	m, driver := newTestMapper(cfg)

	for i := 0; i < 20; i++ {
		m.Run(1.0, 0.0)
	}
	m.Stop()

	m.Run(1.0, 0.0)
	cmd, _ := driver.last(types.TrackLeft)
	if math.Abs(cmd.Magnitude-0.08) > 1e-9 {
		t.Errorf("Expected ramp restart at 0.08 after Stop, got %v", cmd.Magnitude)
	}
}

// ===== Concurrency Tests =====

// Run arrives from the control loop while Stop arrives from state machine
// entry actions on another goroutine.
func TestConcurrentRunAndStop(t *testing.T) {
	cfg := testConfig()
	on := true
	cfg.Control.SoftStart = &on
	cfg.Control.SoftStartStep = 0.08
	cfg.Control.MinThrottle = floatPtr(0.0)
	m, driver := newTestMapper(cfg)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Run(1.0, 0.0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Stop()
		}
	}()
	wg.Wait()

	// After a final Stop the limiter memory is cleared and the next
	// ramp starts from standstill.
	m.Stop()
	m.Run(1.0, 0.0)
	cmd, _ := driver.last(types.TrackLeft)
	if math.Abs(cmd.Magnitude-0.08) > 1e-9 {
		t.Errorf("Expected ramp restart at 0.08, got %v", cmd.Magnitude)
	}
}

// ===== Lifecycle Tests =====

func TestStopIsIdempotent(t *testing.T) {
	m, driver := newTestMapper(testConfig())

	m.Stop()
	m.Stop()
	if driver.stopCalls != 2 {
		t.Errorf("Expected 2 StopAll calls, got %d", driver.stopCalls)
	}
}

func TestRunDegradedWithNilDriver(t *testing.T) {
	m := New(testConfig(), nil, logger.NewLogger(nil, logger.LogLevelNone))

	left, right := m.Run(1.0, 0.0)
	if left != 0 || right != 0 {
		t.Errorf("Expected neutral output in degraded mode, got (%v, %v)", left, right)
	}
	m.Stop() // must not panic
}

func TestRunDegradedAfterInitFailure(t *testing.T) {
	driver := &mockDriver{initErr: errors.New("no gpiochip")}
	m := New(testConfig(), driver, logger.NewLogger(nil, logger.LogLevelNone))

	if m.Initialized() {
		t.Error("Expected mapper uninitialized after driver Init failure")
	}
	m.Run(1.0, 0.0)
	if driver.commandCount() != 0 {
		t.Errorf("Expected no commands in degraded mode, got %d", driver.commandCount())
	}
}

func TestShutdownStopsAndReleases(t *testing.T) {
	m, driver := newTestMapper(testConfig())

	m.Shutdown()
	if driver.stopCalls != 1 {
		t.Errorf("Expected StopAll before Shutdown, got %d calls", driver.stopCalls)
	}
	if !driver.shutdown {
		t.Error("Expected driver Shutdown")
	}
	if m.Initialized() {
		t.Error("Expected mapper uninitialized after Shutdown")
	}
}
