package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/flight_recorder/internal/imu"
	"github.com/relabs-tech/flight_recorder/internal/record"
)

func TestReplay_FindsStopPoint(t *testing.T) {
	var buf []byte
	for i := 0; i < 40; i++ {
		r := imu.Reading{ElapsedMicros: int64(i) * 1000, Accel: imu.Vec3{Z: 9.81}}
		if i < 10 {
			r.Accel = imu.Vec3{X: 20, Z: 9.81}
		}
		buf = record.AppendRecord(buf, r)
	}

	p := quickParams()
	p.GraceTicks = 3

	rep, err := Replay(bytes.NewReader(buf), p)
	require.NoError(t, err)
	assert.Equal(t, 40, rep.Records)
	// ten moving records, then five still ones fill the window
	assert.Equal(t, 15, rep.StopRecord)
	assert.Equal(t, int64(14000), rep.StopMicros)
	assert.Equal(t, 5, rep.MaxQuiet)
	assert.InDelta(t, 0.75, rep.StillShare, 1e-9)
	assert.Equal(t, int64(39000), rep.LastElapsed)
}

func TestReplay_NeverStopsWhileMoving(t *testing.T) {
	var buf []byte
	for i := 0; i < 20; i++ {
		buf = record.AppendRecord(buf, imu.Reading{ElapsedMicros: int64(i), Gyro: imu.Vec3{Y: 3}})
	}
	rep, err := Replay(bytes.NewReader(buf), quickParams())
	require.NoError(t, err)
	assert.Zero(t, rep.StopRecord)
	assert.Zero(t, rep.MaxQuiet)
}

func TestReplayFile_Missing(t *testing.T) {
	_, err := ReplayFile("does-not-exist", quickParams())
	assert.Error(t, err)
}
