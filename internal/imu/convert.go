// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// StandardGravity in m/s².
const StandardGravity = 9.80665

// Full-scale selections as written to ACCEL_CONFIG / GYRO_CONFIG.
// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
var (
	accelFullScaleG   = [4]float64{2, 4, 8, 16}
	gyroFullScaleDegS = [4]float64{250, 500, 1000, 2000}
)

// AccelFullScale returns the ±g range for a range code, or 0 if the code is invalid.
func AccelFullScale(code byte) float64 {
	if int(code) >= len(accelFullScaleG) {
		return 0
	}
	return accelFullScaleG[code]
}

// GyroFullScale returns the ±°/s range for a range code, or 0 if the code is invalid.
func GyroFullScale(code byte) float64 {
	if int(code) >= len(gyroFullScaleDegS) {
		return 0
	}
	return gyroFullScaleDegS[code]
}

// RawToAccel converts a signed 16-bit accelerometer count to m/s².
func RawToAccel(raw int16, rangeCode byte) float64 {
	return float64(raw) / 32768.0 * AccelFullScale(rangeCode) * StandardGravity
}

// RawToGyro converts a signed 16-bit gyroscope count to rad/s.
func RawToGyro(raw int16, rangeCode byte) float64 {
	degPerSec := float64(raw) / 32768.0 * GyroFullScale(rangeCode)
	return degPerSec * math.Pi / 180.0
}
