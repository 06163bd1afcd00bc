// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/relabs-tech/flight_recorder/internal/imu"
)

// FuncSource produces the reading returned by Next for each call index.
// Used for scripted scenarios and tests.
type FuncSource struct {
	Next func(i int) (imu.Reading, error)
	n    int
}

// NewFuncSource returns a source driven by next.
func NewFuncSource(next func(i int) (imu.Reading, error)) *FuncSource {
	return &FuncSource{Next: next}
}

func (s *FuncSource) Read() (imu.Reading, error) {
	r, err := s.Next(s.n)
	s.n++
	return r, err
}

// Calls returns how many times Read has been called.
func (s *FuncSource) Calls() int { return s.n }

func (s *FuncSource) Close() error { return nil }

// SimulatedSource imitates a flight: an oscillating, tumbling phase followed
// by the device lying still with a little sensor noise.
type SimulatedSource struct {
	start     time.Time
	moveFor   time.Duration
	amplitude float64
	now       func() time.Time
}

// NewSimulatedSource moves for two minutes, swinging well beyond stillAccel.
func NewSimulatedSource(stillAccel float64) *SimulatedSource {
	return &SimulatedSource{
		start:     time.Now(),
		moveFor:   2 * time.Minute,
		amplitude: 2 * stillAccel,
		now:       time.Now,
	}
}

// Reset restarts the flight so every session sees the moving phase.
func (s *SimulatedSource) Reset() {
	s.start = s.now()
}

func (s *SimulatedSource) Read() (imu.Reading, error) {
	elapsed := s.now().Sub(s.start)
	noise := func(scale float64) float64 { return (rand.Float64() - 0.5) * scale }

	if elapsed < s.moveFor {
		t := elapsed.Seconds()
		return imu.Reading{
			Accel: imu.Vec3{
				X: s.amplitude * math.Sin(2*t),
				Y: s.amplitude * math.Cos(1.3*t),
				Z: imu.StandardGravity + noise(0.5),
			},
			Gyro: imu.Vec3{
				X: 3 * math.Sin(t),
				Y: 2 * math.Cos(0.7*t),
				Z: math.Mod(t, 2),
			},
			Temperature: 22 + noise(0.1),
		}, nil
	}

	return imu.Reading{
		Accel:       imu.Vec3{X: noise(0.05), Y: noise(0.05), Z: imu.StandardGravity + noise(0.05)},
		Gyro:        imu.Vec3{X: noise(0.01), Y: noise(0.01), Z: noise(0.01)},
		Temperature: 22 + noise(0.1),
	}, nil
}

func (s *SimulatedSource) Close() error { return nil }
