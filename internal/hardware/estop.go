package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
)

// TriggerHandler is invoked from the gpiocdev event goroutine when the
// emergency stop button is pressed. Release edges on the stop line are
// dropped here: the latch clears through the ResetHandler only.
type TriggerHandler func()

// ResetHandler is invoked when the optional reset button is pressed.
type ResetHandler func()

// EmergencyStop watches a debounced GPIO line wired to a physical stop
// button. With a pull-up the line is active low: a falling edge is a press.
type EmergencyStop struct {
	cfg          *config.EmergencyConfig
	logger       *logger.Logger
	line         *gpiocdev.Line
	resetLine    *gpiocdev.Line
	handler      TriggerHandler
	resetHandler ResetHandler
}

func NewEmergencyStop(cfg *config.EmergencyConfig, log *logger.Logger) *EmergencyStop {
	return &EmergencyStop{
		cfg:    cfg,
		logger: log.WithTag("estop"),
	}
}

// OnTrigger registers the stop press handler. Must be called before Start.
func (e *EmergencyStop) OnTrigger(handler TriggerHandler) {
	e.handler = handler
}

// OnReset registers the reset press handler. Must be called before Start.
func (e *EmergencyStop) OnReset(handler ResetHandler) {
	e.resetHandler = handler
}

func (e *EmergencyStop) lineOptions(handler func(gpiocdev.LineEvent)) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(e.cfg.DebounceInterval()),
		gpiocdev.WithConsumer(lineConsumer),
		gpiocdev.WithEventHandler(handler),
	}
	if e.cfg.PullUpEnabled() {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	return opts
}

// Start requests the stop line (and the optional reset line) and begins
// delivering edge events to the registered handlers.
func (e *EmergencyStop) Start() error {
	if e.cfg.Pin < 0 {
		e.logger.Infof("Emergency stop input disabled")
		return nil
	}

	chipName := fmt.Sprintf("gpiochip%d", e.cfg.Chip)
	line, err := gpiocdev.RequestLine(chipName, e.cfg.Pin, e.lineOptions(e.handleStopEvent)...)
	if err != nil {
		return fmt.Errorf("failed to request emergency stop line %d: %w", e.cfg.Pin, err)
	}
	e.line = line
	e.logger.Infof("Watching emergency stop line: chip=%d pin=%d debounce=%s",
		e.cfg.Chip, e.cfg.Pin, e.cfg.DebounceInterval())

	if e.cfg.ResetPin >= 0 {
		reset, err := gpiocdev.RequestLine(chipName, e.cfg.ResetPin, e.lineOptions(e.handleResetEvent)...)
		if err != nil {
			line.Close()
			e.line = nil
			return fmt.Errorf("failed to request emergency reset line %d: %w", e.cfg.ResetPin, err)
		}
		e.resetLine = reset
		e.logger.Infof("Watching emergency reset line: pin=%d", e.cfg.ResetPin)
	}
	return nil
}

// pressed maps an edge to the physical button state under the configured
// line polarity.
func (e *EmergencyStop) pressed(evt gpiocdev.LineEvent) bool {
	falling := evt.Type == gpiocdev.LineEventFallingEdge
	if e.cfg.PullUpEnabled() {
		return falling
	}
	return !falling
}

func (e *EmergencyStop) handleStopEvent(evt gpiocdev.LineEvent) {
	if !e.pressed(evt) {
		// Releasing the stop button never clears the latch.
		e.logger.Debugf("Stop line released")
		return
	}
	e.logger.Debugf("Stop line pressed")
	if e.handler != nil {
		e.handler()
	}
}

func (e *EmergencyStop) handleResetEvent(evt gpiocdev.LineEvent) {
	if !e.pressed(evt) {
		return
	}
	e.logger.Infof("Emergency reset button pressed")
	if e.resetHandler != nil {
		e.resetHandler()
	}
}

// Triggered reads the current level of the stop line. Callers sample it at
// startup to latch a button already held during boot.
func (e *EmergencyStop) Triggered() (bool, error) {
	if e.line == nil {
		return false, nil
	}
	v, err := e.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read emergency stop line: %w", err)
	}
	if e.cfg.PullUpEnabled() {
		return v == 0, nil
	}
	return v != 0, nil
}

// Close releases the GPIO lines.
func (e *EmergencyStop) Close() {
	if e.line != nil {
		e.line.Close()
		e.line = nil
	}
	if e.resetLine != nil {
		e.resetLine.Close()
		e.resetLine = nil
	}
	e.logger.Infof("Emergency stop input closed")
}
