package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MotorPins holds the wiring of one track motor. ForwardPin/BackwardPin
// drive the H-bridge direction inputs, EnablePin carries the PWM signal.
// Chip/PwmChip/PwmChannel address the Linux gpiochip and pwmchip devices
// for the gpiocdev driver; the rpio driver uses the BCM pin numbers only.
type MotorPins struct {
	ForwardPin  int `yaml:"forward_pin"`
	BackwardPin int `yaml:"backward_pin"`
	EnablePin   int `yaml:"enable_pin"`
	Chip        int `yaml:"chip"`
	PwmChip     int `yaml:"pwm_chip"`
	PwmChannel  int `yaml:"pwm_channel"`
}

// MotorsConfig selects and parameterizes the motor driver backend.
type MotorsConfig struct {
	Driver       string    `yaml:"driver"` // "gpiocdev", "rpio" or "mock"
	Left         MotorPins `yaml:"left"`
	Right        MotorPins `yaml:"right"`
	PwmFrequency int       `yaml:"pwm_frequency"` // Hz
	MaxPwm       float64   `yaml:"max_pwm"`       // duty ceiling, (0,1]
}

// ControlConfig shapes the actuation mapper. Pointer fields distinguish an
// explicit zero or false in the file from an absent field; zero is a valid
// stall floor.
type ControlConfig struct {
	MinThrottle   *float64 `yaml:"min_throttle"`    // stall floor, [0,1]
	SoftStart     *bool    `yaml:"soft_start"`      // enable slew limiting
	SoftStartStep float64  `yaml:"soft_start_step"` // max speed delta per cycle
	CycleMs       int      `yaml:"cycle_ms"`        // control loop period
}

// SoftStartEnabled reports whether the slew limiter is active.
func (c *ControlConfig) SoftStartEnabled() bool {
	return c.SoftStart == nil || *c.SoftStart
}

// MinThrottleValue returns the stall floor, defaulted when unset.
func (c *ControlConfig) MinThrottleValue() float64 {
	if c.MinThrottle == nil {
		return 0.3
	}
	return *c.MinThrottle
}

// ControllerConfig parameterizes the gamepad input engine. Deadzone and the
// scales are pointers for the same reason as ControlConfig: an explicit
// zero is meaningful (no deadzone, axis disabled).
type ControllerConfig struct {
	Device        string   `yaml:"device"`   // evdev node, e.g. /dev/input/event0
	Deadzone      *float64 `yaml:"deadzone"` // [0,1)
	SteeringScale *float64 `yaml:"steering_scale"`
	ThrottleScale *float64 `yaml:"throttle_scale"`
	ThrottleDir   float64  `yaml:"throttle_dir"` // +1 or -1
	ReconnectMs   int      `yaml:"reconnect_ms"` // min delay between connect attempts
}

// DeadzoneValue returns the deadzone, defaulted when unset.
func (c *ControllerConfig) DeadzoneValue() float64 {
	if c.Deadzone == nil {
		return 0.05
	}
	return *c.Deadzone
}

// SteeringScaleValue returns the steering scale, defaulted when unset.
func (c *ControllerConfig) SteeringScaleValue() float64 {
	if c.SteeringScale == nil {
		return 1.0
	}
	return *c.SteeringScale
}

// ThrottleScaleValue returns the throttle scale, defaulted when unset.
func (c *ControllerConfig) ThrottleScaleValue() float64 {
	if c.ThrottleScale == nil {
		return 0.8
	}
	return *c.ThrottleScale
}

// EmergencyConfig describes the emergency stop input line.
// A negative Pin disables the emergency stop input entirely.
type EmergencyConfig struct {
	Chip       int   `yaml:"chip"`
	Pin        int   `yaml:"pin"`
	ResetPin   int   `yaml:"reset_pin"` // negative = no reset line
	PullUp     *bool `yaml:"pull_up"`
	DebounceMs int   `yaml:"debounce_ms"`
}

// PullUpEnabled reports whether the stop line uses the internal pull-up.
func (c *EmergencyConfig) PullUpEnabled() bool {
	return c.PullUp == nil || *c.PullUp
}

// RedisConfig locates the telemetry/command plane.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Config aggregates all service configuration.
type Config struct {
	Motors     MotorsConfig     `yaml:"motors"`
	Control    ControlConfig    `yaml:"control"`
	Controller ControllerConfig `yaml:"controller"`
	Emergency  EmergencyConfig  `yaml:"emergency"`
	Redis      RedisConfig      `yaml:"redis"`
}

// Default returns a configuration with every field at its documented default.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads a YAML file, fills missing fields with defaults and validates
// the result. An empty path yields the pure default configuration.
func Load(path string) (*Config, []string, error) {
	if path == "" {
		return Default(), nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	defaulted := cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, defaulted, nil
}

// ApplyDefaults fills zero-valued fields and returns the names of the
// fields that were defaulted, so the caller can log them.
func (c *Config) ApplyDefaults() []string {
	var defaulted []string
	def := func(name string) { defaulted = append(defaulted, name) }

	if c.Motors.Driver == "" {
		c.Motors.Driver = "mock"
		def("motors.driver")
	}
	if c.Motors.PwmFrequency <= 0 {
		c.Motors.PwmFrequency = 1000
		def("motors.pwm_frequency")
	}
	if c.Motors.MaxPwm <= 0 {
		c.Motors.MaxPwm = 1.0
		def("motors.max_pwm")
	}
	if c.Motors.Left == (MotorPins{}) {
		c.Motors.Left = MotorPins{ForwardPin: 17, BackwardPin: 27, EnablePin: 22, PwmChannel: 0}
		def("motors.left")
	}
	if c.Motors.Right == (MotorPins{}) {
		c.Motors.Right = MotorPins{ForwardPin: 23, BackwardPin: 24, EnablePin: 25, PwmChannel: 1}
		def("motors.right")
	}

	if c.Control.MinThrottle == nil {
		c.Control.MinThrottle = floatPtr(0.3)
		def("control.min_throttle")
	}
	if c.Control.SoftStartStep <= 0 {
		c.Control.SoftStartStep = 0.08
		def("control.soft_start_step")
	}
	if c.Control.CycleMs <= 0 {
		c.Control.CycleMs = 50
		def("control.cycle_ms")
	}

	if c.Controller.Device == "" {
		c.Controller.Device = "/dev/input/event0"
		def("controller.device")
	}
	if c.Controller.Deadzone == nil {
		c.Controller.Deadzone = floatPtr(0.05)
		def("controller.deadzone")
	}
	if c.Controller.SteeringScale == nil {
		c.Controller.SteeringScale = floatPtr(1.0)
		def("controller.steering_scale")
	}
	if c.Controller.ThrottleScale == nil {
		c.Controller.ThrottleScale = floatPtr(0.8)
		def("controller.throttle_scale")
	}
	if c.Controller.ThrottleDir == 0 {
		c.Controller.ThrottleDir = 1.0
		def("controller.throttle_dir")
	}
	if c.Controller.ReconnectMs <= 0 {
		c.Controller.ReconnectMs = 1000
		def("controller.reconnect_ms")
	}

	if c.Emergency.Pin == 0 {
		c.Emergency.Pin = 26
		def("emergency.pin")
	}
	if c.Emergency.ResetPin == 0 {
		c.Emergency.ResetPin = -1
		def("emergency.reset_pin")
	}
	if c.Emergency.DebounceMs <= 0 {
		c.Emergency.DebounceMs = 100
		def("emergency.debounce_ms")
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
		def("redis.host")
	}
	if c.Redis.Port <= 0 {
		c.Redis.Port = 6379
		def("redis.port")
	}

	return defaulted
}

// Validate rejects values the control pipeline cannot operate on.
func (c *Config) Validate() error {
	switch c.Motors.Driver {
	case "gpiocdev", "rpio", "mock":
	default:
		return fmt.Errorf("motors.driver must be gpiocdev, rpio or mock, got %q", c.Motors.Driver)
	}
	if c.Motors.MaxPwm <= 0 || c.Motors.MaxPwm > 1 {
		return fmt.Errorf("motors.max_pwm must be in (0,1], got %.2f", c.Motors.MaxPwm)
	}
	if v := c.Control.MinThrottleValue(); v < 0 || v > 1 {
		return fmt.Errorf("control.min_throttle must be in [0,1], got %.2f", v)
	}
	if v := c.Controller.DeadzoneValue(); v < 0 || v >= 1 {
		return fmt.Errorf("controller.deadzone must be in [0,1), got %.2f", v)
	}
	if c.Controller.ThrottleDir != 1.0 && c.Controller.ThrottleDir != -1.0 {
		return fmt.Errorf("controller.throttle_dir must be 1 or -1, got %.2f", c.Controller.ThrottleDir)
	}
	return nil
}

// CycleInterval returns the control loop period.
func (c *ControlConfig) CycleInterval() time.Duration {
	return time.Duration(c.CycleMs) * time.Millisecond
}

// ReconnectInterval returns the minimum delay between controller
// connection attempts.
func (c *ControllerConfig) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectMs) * time.Millisecond
}

// DebounceInterval returns the emergency stop debounce period.
func (c *EmergencyConfig) DebounceInterval() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func floatPtr(v float64) *float64 {
	return &v
}
