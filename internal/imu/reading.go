// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Vec3 is a three-axis sensor vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MagSq returns the squared magnitude x² + y² + z².
func (v Vec3) MagSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Reading is one sample of the inertial sensor.
// Accel is in m/s², Gyro in rad/s, Temperature in °C.
type Reading struct {
	ElapsedMicros int64   `json:"elapsed_us"` // monotonic, since session start
	Accel         Vec3    `json:"accel"`
	Gyro          Vec3    `json:"gyro"`
	Temperature   float64 `json:"temp_c"`
}

// Source is anything that can produce readings on demand.
// Implementations leave ElapsedMicros at zero; the scheduler stamps it.
type Source interface {
	Read() (Reading, error)
}

// Resetter is implemented by sources whose output depends on when the
// session started. Reset is called once at the start of every session.
type Resetter interface {
	Reset()
}
