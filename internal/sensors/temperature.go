// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// tempInterval is how often the BMP280 is sampled in the background.
// A forced conversion takes several milliseconds, too long for a sampling tick.
const tempInterval = time.Second

// TempMonitor keeps the latest BMP280 temperature in memory so the sampling
// loop can read it without touching the bus.
type TempMonitor struct {
	port spi.PortCloser
	dev  *bmxx80.Dev

	bits atomic.Uint64 // math.Float64bits of °C
	done chan struct{}
	once sync.Once
}

// NewTempMonitor opens the BMP280 on spiDev and starts continuous sensing.
func NewTempMonitor(spiDev string) (*TempMonitor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("BMP SPI open (%s): %w", spiDev, err)
	}

	dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("BMP init: %w", err)
	}

	// Prime with one forced reading so the first session record is not 0.
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		port.Close()
		return nil, fmt.Errorf("BMP sense: %w", err)
	}

	ch, err := dev.SenseContinuous(tempInterval)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("BMP continuous sense: %w", err)
	}

	m := &TempMonitor{port: port, dev: dev, done: make(chan struct{})}
	m.bits.Store(math.Float64bits(e.Temperature.Celsius()))

	go func() {
		for {
			select {
			case env, ok := <-ch:
				if !ok {
					return
				}
				m.bits.Store(math.Float64bits(env.Temperature.Celsius()))
			case <-m.done:
				return
			}
		}
	}()

	return m, nil
}

// Celsius returns the most recent temperature.
func (m *TempMonitor) Celsius() float64 {
	return math.Float64frombits(m.bits.Load())
}

// Close halts sensing and releases the SPI port.
func (m *TempMonitor) Close() error {
	var err error
	m.once.Do(func() {
		close(m.done)
		if herr := m.dev.Halt(); herr != nil {
			err = herr
		}
		if cerr := m.port.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
