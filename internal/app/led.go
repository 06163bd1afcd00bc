package app

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// StatusLED goes low while a session records and high once it has finished.
type StatusLED struct {
	pin gpio.PinOut
}

// OpenStatusLED looks up the named GPIO pin and drives it low.
func OpenStatusLED(name string) (*StatusLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: failed to initialize periph: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("led: unknown GPIO pin %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led: set %s low: %w", name, err)
	}
	return &StatusLED{pin: p}, nil
}

// Handle is an EventBus subscriber.
func (l *StatusLED) Handle(ev Event) {
	var level gpio.Level
	switch ev.Type {
	case EventStarted:
		level = gpio.Low
	case EventEnded:
		level = gpio.High
	default:
		return
	}
	if err := l.pin.Out(level); err != nil {
		log.Printf("led: %v", err)
	}
}
