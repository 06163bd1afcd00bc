// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"github.com/relabs-tech/flight_recorder/internal/config"
	"github.com/relabs-tech/flight_recorder/internal/imu"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// MPU9250Source reads accelerometer and gyroscope from an MPU9250 over SPI.
// Temperature comes from an optional BMP280 monitor.
type MPU9250Source struct {
	imu        *mpu9250.MPU9250
	accelRange byte
	gyroRange  byte
	temp       *TempMonitor
}

// NewMPU9250Source initializes the MPU9250 described by cfg.
// Any error here is a sensor fault: no session is possible without the IMU.
func NewMPU9250Source(cfg *config.Config) (*MPU9250Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %w", ErrSensorFault, err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("%w: CS pin %q not found", ErrSensorFault, cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("%w: SPI transport (%s): %w", ErrSensorFault, cfg.IMUSPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%w: device creation: %w", ErrSensorFault, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%w: initialization: %w", ErrSensorFault, err)
	}

	if err := dev.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("%w: set accel range: %w", ErrSensorFault, err)
	}
	log.Printf("imu: accelerometer range set to %d (±%.0fg)", cfg.IMUAccelRange, imu.AccelFullScale(cfg.IMUAccelRange))

	if err := dev.SetGyroRange(cfg.IMUGyroRange); err != nil {
		return nil, fmt.Errorf("%w: set gyro range: %w", ErrSensorFault, err)
	}
	log.Printf("imu: gyroscope range set to %d (±%.0f°/s)", cfg.IMUGyroRange, imu.GyroFullScale(cfg.IMUGyroRange))

	// Self-test is informational only
	if res, err := dev.SelfTest(); err != nil {
		log.Printf("imu: WARNING: self-test failed: %v", err)
	} else {
		log.Printf("imu: self-test accel deviation X=%.2f%% Y=%.2f%% Z=%.2f%%",
			res.AccelDeviation.X, res.AccelDeviation.Y, res.AccelDeviation.Z)
		log.Printf("imu: self-test gyro deviation X=%.2f%% Y=%.2f%% Z=%.2f%%",
			res.GyroDeviation.X, res.GyroDeviation.Y, res.GyroDeviation.Z)
	}

	if err := dev.Calibrate(); err != nil {
		log.Printf("imu: WARNING: calibration failed: %v", err)
	}

	src := &MPU9250Source{
		imu:        dev,
		accelRange: cfg.IMUAccelRange,
		gyroRange:  cfg.IMUGyroRange,
	}

	if cfg.BMPSPIDevice != "" {
		tm, err := NewTempMonitor(cfg.BMPSPIDevice)
		if err != nil {
			log.Printf("imu: temperature sensor unavailable, recording 0: %v", err)
		} else {
			src.temp = tm
		}
	}

	return src, nil
}

// Read samples all six axes and converts them to SI units.
func (s *MPU9250Source) Read() (imu.Reading, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("%w: accel X: %w", ErrSensorFault, err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("%w: accel Y: %w", ErrSensorFault, err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("%w: accel Z: %w", ErrSensorFault, err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("%w: gyro X: %w", ErrSensorFault, err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("%w: gyro Y: %w", ErrSensorFault, err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("%w: gyro Z: %w", ErrSensorFault, err)
	}

	r := imu.Reading{
		Accel: imu.Vec3{
			X: imu.RawToAccel(ax, s.accelRange),
			Y: imu.RawToAccel(ay, s.accelRange),
			Z: imu.RawToAccel(az, s.accelRange),
		},
		Gyro: imu.Vec3{
			X: imu.RawToGyro(gx, s.gyroRange),
			Y: imu.RawToGyro(gy, s.gyroRange),
			Z: imu.RawToGyro(gz, s.gyroRange),
		},
	}
	if s.temp != nil {
		r.Temperature = s.temp.Celsius()
	}
	return r, nil
}

// Close stops the temperature monitor. The MPU9250 transport has no close.
func (s *MPU9250Source) Close() error {
	if s.temp != nil {
		return s.temp.Close()
	}
	return nil
}
