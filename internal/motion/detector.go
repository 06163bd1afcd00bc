// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion decides when a logging session has gone still.
//
// The detector keeps a single counter of quiet ticks. A still sample adds one,
// a moving sample subtracts a fixed penalty (clamped at zero), so only a long
// uninterrupted run of still samples can reach the stop threshold.
package motion

import "github.com/relabs-tech/flight_recorder/internal/imu"

// Thresholds parameterize a Detector.
type Thresholds struct {
	StillAccel float64 // m/s², compared against |a|
	StillGyro  float64 // rad/s, compared against |ω|
	StopTicks  int     // quiet ticks needed to declare the session over
	Penalty    int     // quiet ticks removed per moving sample
}

// Detector is the debounced stillness decision for one session.
// It is not safe for concurrent use; the scheduler owns it.
type Detector struct {
	th         Thresholds
	accelLimSq float64
	gyroLimSq  float64

	quietTicks int
	active     bool
}

// NewDetector returns a reset, unarmed detector.
func NewDetector(th Thresholds) *Detector {
	return &Detector{
		th:         th,
		accelLimSq: th.StillAccel * th.StillAccel,
		gyroLimSq:  th.StillGyro * th.StillGyro,
	}
}

// Reset clears the counter and disarms the detector.
func (d *Detector) Reset() {
	d.quietTicks = 0
	d.active = false
}

// Arm enables stillness evaluation. Before arming, Observe is a no-op.
func (d *Detector) Arm() {
	d.active = true
}

// Armed reports whether Arm has been called since the last Reset.
func (d *Detector) Armed() bool {
	return d.active
}

// QuietTicks returns the current counter value.
func (d *Detector) QuietTicks() int {
	return d.quietTicks
}

// IsStill reports whether r is within both stillness thresholds.
func (d *Detector) IsStill(r imu.Reading) bool {
	return r.Accel.MagSq() <= d.accelLimSq && r.Gyro.MagSq() <= d.gyroLimSq
}

// Observe feeds one reading and reports whether the stop condition holds.
func (d *Detector) Observe(r imu.Reading) bool {
	if !d.active {
		return false
	}

	if d.IsStill(r) {
		if d.quietTicks < d.th.StopTicks {
			d.quietTicks++
		}
	} else {
		d.quietTicks -= d.th.Penalty
		if d.quietTicks < 0 {
			d.quietTicks = 0
		}
	}

	return d.quietTicks >= d.th.StopTicks
}
