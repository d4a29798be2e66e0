package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/types"
)

const lineConsumer = "bulldozer-service"

type trackLines struct {
	forward  *gpiocdev.Line
	backward *gpiocdev.Line
	pwm      *sysfsPwm
}

// GpiocdevDriver drives the H-bridges through the GPIO character device,
// with speed control on a sysfs pwmchip channel per track.
type GpiocdevDriver struct {
	cfg         *config.MotorsConfig
	logger      *logger.Logger
	chips       map[int]*gpiocdev.Chip
	tracks      map[types.Track]*trackLines
	initialized bool
}

func NewGpiocdevDriver(cfg *config.MotorsConfig, log *logger.Logger) *GpiocdevDriver {
	return &GpiocdevDriver{
		cfg:    cfg,
		logger: log.WithTag("gpiocdev-motors"),
		chips:  make(map[int]*gpiocdev.Chip),
		tracks: make(map[types.Track]*trackLines),
	}
}

func (d *GpiocdevDriver) chip(num int) (*gpiocdev.Chip, error) {
	if c, ok := d.chips[num]; ok {
		return c, nil
	}
	c, err := gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", num))
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %d: %w", num, err)
	}
	d.chips[num] = c
	return c, nil
}

func (d *GpiocdevDriver) setupTrack(track types.Track, pins config.MotorPins) error {
	chip, err := d.chip(pins.Chip)
	if err != nil {
		return err
	}

	fwd, err := chip.RequestLine(pins.ForwardPin,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(lineConsumer))
	if err != nil {
		return fmt.Errorf("failed to request forward line %d: %w", pins.ForwardPin, err)
	}

	bwd, err := chip.RequestLine(pins.BackwardPin,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(lineConsumer))
	if err != nil {
		fwd.Close()
		return fmt.Errorf("failed to request backward line %d: %w", pins.BackwardPin, err)
	}

	pwm := newSysfsPwm(pins.PwmChip, pins.PwmChannel, d.cfg.PwmFrequency)
	if err := pwm.Init(); err != nil {
		fwd.Close()
		bwd.Close()
		return fmt.Errorf("failed to initialize PWM for %s track: %w", track, err)
	}

	d.tracks[track] = &trackLines{forward: fwd, backward: bwd, pwm: pwm}
	d.logger.Infof("Configured %s track: chip=%d fwd=%d bwd=%d pwm=%d/%d",
		track, pins.Chip, pins.ForwardPin, pins.BackwardPin, pins.PwmChip, pins.PwmChannel)
	return nil
}

func (d *GpiocdevDriver) Init() error {
	if err := d.setupTrack(types.TrackLeft, d.cfg.Left); err != nil {
		d.release()
		return err
	}
	if err := d.setupTrack(types.TrackRight, d.cfg.Right); err != nil {
		d.release()
		return err
	}
	d.initialized = true
	d.logger.Infof("Motor driver initialized")
	return nil
}

func (d *GpiocdevDriver) SetTrackCommand(cmd types.MotorCommand) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	t, ok := d.tracks[cmd.Track]
	if !ok {
		return fmt.Errorf("unknown track: %s", cmd.Track)
	}

	fwd, bwd := 0, 0
	switch cmd.Direction {
	case types.DirectionForward:
		fwd = 1
	case types.DirectionBackward:
		bwd = 1
	case types.DirectionStop:
	default:
		return fmt.Errorf("unknown direction: %s", cmd.Direction)
	}

	if err := t.forward.SetValue(fwd); err != nil {
		return fmt.Errorf("failed to set %s forward line: %w", cmd.Track, err)
	}
	if err := t.backward.SetValue(bwd); err != nil {
		return fmt.Errorf("failed to set %s backward line: %w", cmd.Track, err)
	}
	if err := t.pwm.SetDuty(cmd.Magnitude); err != nil {
		return fmt.Errorf("failed to set %s duty: %w", cmd.Track, err)
	}
	return nil
}

func (d *GpiocdevDriver) StopAll() error {
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

func (d *GpiocdevDriver) release() {
	for name, t := range d.tracks {
		if t.forward != nil {
			t.forward.SetValue(0)
			t.forward.Close()
		}
		if t.backward != nil {
			t.backward.SetValue(0)
			t.backward.Close()
		}
		if t.pwm != nil {
			if err := t.pwm.Close(); err != nil {
				d.logger.Warnf("Failed to release PWM for %s track: %v", name, err)
			}
		}
		delete(d.tracks, name)
	}
	for id, chip := range d.chips {
		chip.Close()
		delete(d.chips, id)
	}
}

func (d *GpiocdevDriver) Shutdown() error {
	if d.initialized {
		if err := d.StopAll(); err != nil {
			d.logger.Warnf("Failed to stop tracks during shutdown: %v", err)
		}
	}
	d.release()
	d.initialized = false
	d.logger.Infof("Motor driver shut down")
	return nil
}
