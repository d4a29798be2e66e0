package controller

import (
	"errors"
	"sync"
	"time"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
)

// Status is the connection lifecycle of the input engine.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// listenerJoinTimeout bounds the wait for the listener goroutine on Close.
const listenerJoinTimeout = 2 * time.Second

// Controller consumes a gamepad event stream in a background listener and
// maintains an immutable State snapshot. Reconnection is caller-driven:
// when disconnected, the host loop calls Connect again; there is no
// internal retry loop.
type Controller struct {
	cfg     config.ControllerConfig
	open    OpenFunc
	logger  *logger.Logger
	shaping shaping

	mu     sync.Mutex
	state  State
	status Status
	device Device
	stop   chan struct{}
	done   chan struct{}
}

// New builds a Controller reading from devices opened by open. Pass
// OpenEvdev for real hardware; tests inject a scripted opener.
func New(cfg config.ControllerConfig, open OpenFunc, log *logger.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		open:   open,
		logger: log.WithTag("controller"),
		shaping: shaping{
			deadzone:      cfg.DeadzoneValue(),
			steeringScale: cfg.SteeringScaleValue(),
			throttleScale: cfg.ThrottleScaleValue(),
			throttleDir:   cfg.ThrottleDir,
		},
	}
}

// Connect opens the device and starts the listener. It is idempotent:
// calling it while connected is a no-op, and it is safe to call again
// after every failure.
func (c *Controller) Connect() error {
	c.mu.Lock()
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	device, err := c.open(c.cfg.Device)
	if err != nil {
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		if errors.Is(err, ErrDeviceNotFound) {
			c.logger.Debugf("No controller at %s", c.cfg.Device)
		} else {
			c.logger.Errorf("Failed to open controller: %v", err)
		}
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	c.mu.Lock()
	c.device = device
	c.status = StatusConnected
	c.state = State{Connected: true}
	c.stop = stop
	c.done = done
	c.mu.Unlock()

	c.logger.Infof("Connected to %s at %s", device.Name(), c.cfg.Device)
	go c.listen(device, stop, done)
	return nil
}

// listen is the background worker owning the device event stream. It
// terminates on the stop signal or on any stream error.
func (c *Controller) listen(device Device, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		event, err := device.ReadEvent()
		if err != nil {
			select {
			case <-stop:
				// Shutdown closed the device under us.
				return
			default:
			}
			c.logger.Errorf("Controller stream failed: %v", err)
			c.markDisconnected(device)
			return
		}

		c.processEvent(event)
	}
}

// markDisconnected resets the snapshot to a safe zeroed state. Axes are
// cleared so a dropped controller never leaves stale drive intent behind.
func (c *Controller) markDisconnected(device Device) {
	c.mu.Lock()
	if c.device == device {
		c.status = StatusDisconnected
		c.state = State{}
		c.device = nil
	}
	c.mu.Unlock()

	device.Close()
	c.logger.Warnf("Controller disconnected")
}

// processEvent folds one raw event into a fresh snapshot. Unrecognized
// types and codes are ignored.
func (c *Controller) processEvent(event Event) {
	switch event.Type {
	case EvKey:
		c.mu.Lock()
		next := c.state
		if next.setButton(event.Code, event.Value != 0) {
			c.state = next
		}
		c.mu.Unlock()

	case EvAbs:
		c.mu.Lock()
		next := c.state
		if next.setAxis(event.Code, event.Value) {
			next.derive(c.shaping)
			c.state = next
		}
		c.mu.Unlock()
	}
}

// GetState returns the current snapshot. Never blocks the listener
// beyond the snapshot copy.
func (c *Controller) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Poll returns the latest derived drive values. Called once per control
// cycle; never blocks.
func (c *Controller) Poll() (steering, throttle float64, connected bool) {
	s := c.GetState()
	return s.Steering, s.Throttle, s.Connected
}

// IsConnected reports whether the listener is live.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusConnected
}

// Status returns the lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close signals the listener, closes the device and waits for the
// listener with a bounded timeout. A listener that fails to exit is
// logged and abandoned; teardown proceeds.
func (c *Controller) Close() {
	c.mu.Lock()
	stop := c.stop
	done := c.done
	device := c.device
	c.stop = nil
	c.done = nil
	c.device = nil
	c.status = StatusDisconnected
	c.state = State{}
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if device != nil {
		device.Close()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(listenerJoinTimeout):
			c.logger.Warnf("Listener did not exit within %s, abandoning", listenerJoinTimeout)
		}
	}
	c.logger.Infof("Controller closed")
}
