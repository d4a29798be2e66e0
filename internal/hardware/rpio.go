package hardware

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/types"
)

// pwmCycleLen is the resolution of the rpio PWM duty cycle.
const pwmCycleLen = 100

type rpioTrack struct {
	forward  rpio.Pin
	backward rpio.Pin
	enable   rpio.Pin
}

// RpioDriver drives the H-bridges through /dev/gpiomem on a Raspberry Pi,
// using the hardware PWM peripheral for speed control.
type RpioDriver struct {
	cfg         *config.MotorsConfig
	logger      *logger.Logger
	tracks      map[types.Track]rpioTrack
	initialized bool
}

func NewRpioDriver(cfg *config.MotorsConfig, log *logger.Logger) *RpioDriver {
	return &RpioDriver{
		cfg:    cfg,
		logger: log.WithTag("rpio-motors"),
		tracks: make(map[types.Track]rpioTrack),
	}
}

func (d *RpioDriver) setupTrack(track types.Track, pins config.MotorPins) {
	t := rpioTrack{
		forward:  rpio.Pin(pins.ForwardPin),
		backward: rpio.Pin(pins.BackwardPin),
		enable:   rpio.Pin(pins.EnablePin),
	}
	t.forward.Output()
	t.forward.Low()
	t.backward.Output()
	t.backward.Low()
	t.enable.Mode(rpio.Pwm)
	t.enable.Freq(d.cfg.PwmFrequency * pwmCycleLen)
	t.enable.DutyCycle(0, pwmCycleLen)
	d.tracks[track] = t
	d.logger.Infof("Configured %s track: fwd=%d bwd=%d en=%d",
		track, pins.ForwardPin, pins.BackwardPin, pins.EnablePin)
}

func (d *RpioDriver) Init() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("failed to open GPIO memory: %w", err)
	}
	d.setupTrack(types.TrackLeft, d.cfg.Left)
	d.setupTrack(types.TrackRight, d.cfg.Right)
	d.initialized = true
	d.logger.Infof("Motor driver initialized")
	return nil
}

func (d *RpioDriver) SetTrackCommand(cmd types.MotorCommand) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	t, ok := d.tracks[cmd.Track]
	if !ok {
		return fmt.Errorf("unknown track: %s", cmd.Track)
	}

	switch cmd.Direction {
	case types.DirectionForward:
		t.forward.High()
		t.backward.Low()
	case types.DirectionBackward:
		t.forward.Low()
		t.backward.High()
	case types.DirectionStop:
		t.forward.Low()
		t.backward.Low()
	default:
		return fmt.Errorf("unknown direction: %s", cmd.Direction)
	}

	mag := cmd.Magnitude
	if mag < 0 {
		mag = 0
	} else if mag > 1 {
		mag = 1
	}
	t.enable.DutyCycle(uint32(mag*pwmCycleLen+0.5), pwmCycleLen)
	return nil
}

func (d *RpioDriver) StopAll() error {
	if !d.initialized {
		return ErrNotInitialized
	}
	for track := range d.tracks {
		if err := d.SetTrackCommand(types.MotorCommand{
			Track:     track,
			Direction: types.DirectionStop,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *RpioDriver) Shutdown() error {
	if !d.initialized {
		return nil
	}
	if err := d.StopAll(); err != nil {
		d.logger.Warnf("Failed to stop tracks during shutdown: %v", err)
	}
	for _, t := range d.tracks {
		t.enable.DutyCycle(0, pwmCycleLen)
		// Inputs are the safe idle state for the bridge pins.
		t.forward.Input()
		t.backward.Input()
	}
	d.initialized = false
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("failed to close GPIO memory: %w", err)
	}
	d.logger.Infof("Motor driver shut down")
	return nil
}
