// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides the inertial sample sources used by the recorder.
package sensors

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/flight_recorder/internal/config"
	"github.com/relabs-tech/flight_recorder/internal/imu"
)

// ErrSensorFault is returned when the sensor cannot be reached or stops responding.
var ErrSensorFault = errors.New("sensor fault")

// SampleSource is an imu.Source that owns a device and must be closed.
type SampleSource interface {
	imu.Source
	Close() error
}

// Open builds the source selected by cfg.Sensor.
func Open(cfg *config.Config) (SampleSource, error) {
	switch cfg.Sensor {
	case config.SensorMPU9250:
		return NewMPU9250Source(cfg)
	case config.SensorMock:
		return NewSimulatedSource(cfg.StillAccelThresh), nil
	default:
		return nil, fmt.Errorf("unknown sensor %q", cfg.Sensor)
	}
}
