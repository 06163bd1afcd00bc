// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"errors"
	"time"
)

// ErrAlreadyRunning rejects a start trigger while a session is active.
var ErrAlreadyRunning = errors.New("session already running")

// State of the scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear as a string in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StopReason says why a session ended.
type StopReason string

const (
	ReasonStill        StopReason = "still"
	ReasonCap          StopReason = "cap"
	ReasonStorageFault StopReason = "storage_fault"
	ReasonSensorFault  StopReason = "sensor_fault"
	ReasonCancelled    StopReason = "cancelled"
)

// Info identifies a started session.
type Info struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	StartedAt time.Time `json:"started_at"`
}

// Status is the periodic diagnostic view of a running session.
type Status struct {
	Index      int           `json:"index"`
	Tick       int           `json:"tick"`
	QuietTicks int           `json:"quiet_ticks"`
	Armed      bool          `json:"armed"`
	AccelMagSq float64       `json:"accel_mag_sq"`
	Overruns   int           `json:"overruns"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// AchievedRate returns ticks per second so far.
func (s Status) AchievedRate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Tick) / s.Elapsed.Seconds()
}

// Result summarizes a finished session.
type Result struct {
	Info
	Ticks    int           `json:"ticks"`
	Reason   StopReason    `json:"reason"`
	Duration time.Duration `json:"duration_ns"`
	Overruns int           `json:"overruns"`
	Error    string        `json:"error,omitempty"`
}

// Listener observes session lifecycle. Calls happen on the sampling
// goroutine and must return immediately.
type Listener interface {
	SessionStarted(Info)
	SessionStatus(Status)
	SessionEnded(Result)
}

// Listeners fans out to several listeners in order.
type Listeners []Listener

func (ls Listeners) SessionStarted(i Info) {
	for _, l := range ls {
		l.SessionStarted(i)
	}
}

func (ls Listeners) SessionStatus(s Status) {
	for _, l := range ls {
		l.SessionStatus(s)
	}
}

func (ls Listeners) SessionEnded(r Result) {
	for _, l := range ls {
		l.SessionEnded(r)
	}
}
