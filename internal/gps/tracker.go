// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps tracks the latest position from an NMEA receiver so a session
// can be tagged with where it started.
package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// Tracker holds the most recent fix assembled from RMC and GGA sentences.
type Tracker struct {
	mu      sync.RWMutex
	current Fix
	have    bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Latest returns the last fix and whether any RMC sentence has been seen.
func (t *Tracker) Latest() (Fix, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.have
}

// Run opens the serial port and consumes sentences until ctx is done.
func (t *Tracker) Run(ctx context.Context, portName string, baud int) error {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("gps: open %s: %w", portName, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", portName, baud)

	// Closing the port unblocks the reader.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	err = t.Consume(port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Consume parses NMEA lines from r until EOF or a read error.
func (t *Tracker) Consume(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			t.handleLine(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gps: read: %w", err)
		}
	}
}

func (t *Tracker) handleLine(line string) {
	line = strings.TrimSpace(line)
	// NMEA sentences start with '$'
	if !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy receivers emit partial sentences
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch m := sentence.(type) {
	case nmea.RMC:
		t.current.Time = m.Time.String()
		t.current.Date = m.Date.String()
		t.current.Latitude = m.Latitude
		t.current.Longitude = m.Longitude
		t.current.SpeedKnots = m.Speed
		t.current.CourseDeg = m.Course
		t.current.Validity = m.Validity
		t.have = true
	case nmea.GGA:
		t.current.Altitude = m.Altitude
		t.current.Satellites = m.NumSatellites
	}
}
