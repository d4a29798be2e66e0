package hardware

import (
	"testing"

	"github.com/warthog618/go-gpiocdev"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/logger"
)

func newTestEstop(resetPin int) (*EmergencyStop, *int, *int) {
	cfg := &config.EmergencyConfig{
		Pin:        26,
		ResetPin:   resetPin,
		DebounceMs: 100,
	}
	e := NewEmergencyStop(cfg, logger.NewLogger(nil, logger.LogLevelNone))
	triggers, resets := 0, 0
	e.OnTrigger(func() { triggers++ })
	e.OnReset(func() { resets++ })
	return e, &triggers, &resets
}

// With the default pull-up the line is active low: falling = press.
func press() gpiocdev.LineEvent   { return gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge} }
func release() gpiocdev.LineEvent { return gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge} }

// ===== Stop Line Tests =====

func TestStopPressFiresTrigger(t *testing.T) {
	e, triggers, resets := newTestEstop(16)

	e.handleStopEvent(press())
	if *triggers != 1 {
		t.Errorf("Expected 1 trigger, got %d", *triggers)
	}
	if *resets != 0 {
		t.Errorf("Expected no resets, got %d", *resets)
	}
}

func TestStopReleaseFiresNothing(t *testing.T) {
	e, triggers, resets := newTestEstop(16)

	e.handleStopEvent(press())
	e.handleStopEvent(release())
	if *triggers != 1 {
		t.Errorf("Expected 1 trigger, got %d", *triggers)
	}
	if *resets != 0 {
		t.Errorf("Stop release must never reach the reset path, got %d resets", *resets)
	}
}

func TestRepeatedPressesFireEachTime(t *testing.T) {
	e, triggers, _ := newTestEstop(-1)

	e.handleStopEvent(press())
	e.handleStopEvent(release())
	e.handleStopEvent(press())
	if *triggers != 2 {
		t.Errorf("Expected 2 triggers, got %d", *triggers)
	}
}

// ===== Reset Line Tests =====

func TestResetPressFiresReset(t *testing.T) {
	e, triggers, resets := newTestEstop(16)

	e.handleResetEvent(press())
	if *resets != 1 {
		t.Errorf("Expected 1 reset, got %d", *resets)
	}
	if *triggers != 0 {
		t.Errorf("Expected no triggers, got %d", *triggers)
	}
}

func TestResetReleaseIgnored(t *testing.T) {
	e, _, resets := newTestEstop(16)

	e.handleResetEvent(press())
	e.handleResetEvent(release())
	if *resets != 1 {
		t.Errorf("Expected 1 reset, got %d", *resets)
	}
}

// ===== Polarity Tests =====

func TestActiveHighPolarity(t *testing.T) {
	pullUp := false
	cfg := &config.EmergencyConfig{Pin: 26, ResetPin: -1, PullUp: &pullUp, DebounceMs: 100}
	e := NewEmergencyStop(cfg, logger.NewLogger(nil, logger.LogLevelNone))
	triggers := 0
	e.OnTrigger(func() { triggers++ })

	// Without the pull-up the line is active high: rising = press.
	e.handleStopEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge})
	if triggers != 1 {
		t.Errorf("Expected rising edge to press, got %d triggers", triggers)
	}
	e.handleStopEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})
	if triggers != 1 {
		t.Errorf("Expected falling edge ignored, got %d triggers", triggers)
	}
}

// ===== Level Query Tests =====

func TestTriggeredWithoutLine(t *testing.T) {
	e, _, _ := newTestEstop(-1)

	held, err := e.Triggered()
	if err != nil {
		t.Fatalf("Triggered failed: %v", err)
	}
	if held {
		t.Error("Expected not triggered before Start")
	}
}
