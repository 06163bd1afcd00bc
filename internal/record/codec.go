// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package record

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/relabs-tech/flight_recorder/internal/imu"
)

const (
	fieldSep   = ", "
	fieldCount = 8
	// decimals written for every float field
	floatPrecision = 2
)

// AppendRecord appends one text record for r to dst:
//
//	elapsedMicros, ax, ay, az, gx, gy, gz, temp\n
//
// It does not allocate when dst has enough capacity.
func AppendRecord(dst []byte, r imu.Reading) []byte {
	dst = strconv.AppendInt(dst, r.ElapsedMicros, 10)
	for _, v := range [...]float64{
		r.Accel.X, r.Accel.Y, r.Accel.Z,
		r.Gyro.X, r.Gyro.Y, r.Gyro.Z,
		r.Temperature,
	} {
		dst = append(dst, fieldSep...)
		dst = strconv.AppendFloat(dst, v, 'f', floatPrecision, 64)
	}
	return append(dst, '\n')
}

// ParseRecord decodes one record line (with or without the line terminator).
func ParseRecord(line string) (imu.Reading, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != fieldCount {
		return imu.Reading{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}

	elapsed, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return imu.Reading{}, fmt.Errorf("elapsed micros %q: %w", fields[0], err)
	}

	var vals [fieldCount - 1]float64
	for i := range vals {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return imu.Reading{}, fmt.Errorf("field %d %q: %w", i+1, fields[i+1], err)
		}
	}

	return imu.Reading{
		ElapsedMicros: elapsed,
		Accel:         imu.Vec3{X: vals[0], Y: vals[1], Z: vals[2]},
		Gyro:          imu.Vec3{X: vals[3], Y: vals[4], Z: vals[5]},
		Temperature:   vals[6],
	}, nil
}

// ReadSession decodes every record in r in order and calls fn for each.
// A truncated final line (power loss mid-write) is reported as an error
// after all complete records have been delivered.
func ReadSession(r io.Reader, fn func(imu.Reading) error) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reading, err := ParseRecord(line)
		if err != nil {
			return fmt.Errorf("record line %d: %w", lineNum, err)
		}
		if err := fn(reading); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading session: %w", err)
	}
	return nil
}
