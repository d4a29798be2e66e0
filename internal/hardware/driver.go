package hardware

import (
	"errors"
	"fmt"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/types"
)

// ErrNotInitialized is returned by drivers whose Init failed or was never run.
var ErrNotInitialized = errors.New("motor driver not initialized")

// MotorDriver abstracts the track motor hardware. Implementations are
// selected by configuration at construction time; the actuation mapper
// only ever sees this interface.
type MotorDriver interface {
	Init() error
	SetTrackCommand(cmd types.MotorCommand) error
	StopAll() error
	Shutdown() error
}

// NewMotorDriver builds the backend named by motors.driver.
func NewMotorDriver(cfg *config.MotorsConfig, log *logger.Logger) (MotorDriver, error) {
	switch cfg.Driver {
	case "gpiocdev":
		return NewGpiocdevDriver(cfg, log), nil
	case "rpio":
		return NewRpioDriver(cfg, log), nil
	case "mock":
		return NewMockDriver(log), nil
	default:
		return nil, fmt.Errorf("unknown motor driver: %q", cfg.Driver)
	}
}

// MockDriver logs commands instead of touching hardware. Used for
// development off-target and in tests.
type MockDriver struct {
	logger      *logger.Logger
	initialized bool
}

func NewMockDriver(log *logger.Logger) *MockDriver {
	return &MockDriver{logger: log.WithTag("mock-motors")}
}

func (m *MockDriver) Init() error {
	m.initialized = true
	m.logger.Infof("Mock motor driver initialized")
	return nil
}

func (m *MockDriver) SetTrackCommand(cmd types.MotorCommand) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	m.logger.Debugf("Track %s: %s magnitude=%.3f", cmd.Track, cmd.Direction, cmd.Magnitude)
	return nil
}

func (m *MockDriver) StopAll() error {
	if !m.initialized {
		return ErrNotInitialized
	}
	m.logger.Debugf("Stop all tracks")
	return nil
}

func (m *MockDriver) Shutdown() error {
	m.initialized = false
	m.logger.Infof("Mock motor driver shut down")
	return nil
}
