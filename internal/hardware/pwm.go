package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// sysfsPwm drives one channel of a Linux pwmchip through the sysfs
// interface. Duty is expressed as a fraction of the period.
type sysfsPwm struct {
	chipDir string
	channel int
	period  int64 // nanoseconds
}

func newSysfsPwm(chip, channel, frequency int) *sysfsPwm {
	return &sysfsPwm{
		chipDir: fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip),
		channel: channel,
		period:  time.Second.Nanoseconds() / int64(frequency),
	}
}

func (p *sysfsPwm) channelDir() string {
	return filepath.Join(p.chipDir, fmt.Sprintf("pwm%d", p.channel))
}

func (p *sysfsPwm) writeAttr(dir, attr, value string) error {
	path := filepath.Join(dir, attr)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Init exports the channel if needed and programs the period.
func (p *sysfsPwm) Init() error {
	if _, err := os.Stat(p.channelDir()); os.IsNotExist(err) {
		if err := p.writeAttr(p.chipDir, "export", strconv.Itoa(p.channel)); err != nil {
			return err
		}
	}
	if err := p.writeAttr(p.channelDir(), "period", strconv.FormatInt(p.period, 10)); err != nil {
		return err
	}
	if err := p.writeAttr(p.channelDir(), "duty_cycle", "0"); err != nil {
		return err
	}
	return p.writeAttr(p.channelDir(), "enable", "1")
}

// SetDuty programs the duty fraction, clamped to [0,1].
func (p *sysfsPwm) SetDuty(fraction float64) error {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	duty := int64(fraction * float64(p.period))
	return p.writeAttr(p.channelDir(), "duty_cycle", strconv.FormatInt(duty, 10))
}

// Close disables the channel and unexports it.
func (p *sysfsPwm) Close() error {
	if err := p.writeAttr(p.channelDir(), "enable", "0"); err != nil {
		return err
	}
	return p.writeAttr(p.chipDir, "unexport", strconv.Itoa(p.channel))
}
