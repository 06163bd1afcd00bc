package gps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcLine = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	ggaLine = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
)

func TestTracker_Consume(t *testing.T) {
	input := strings.Join([]string{
		"garbage line",
		"$GPRMC,truncated",
		ggaLine,
		rmcLine,
	}, "\r\n")

	tr := NewTracker()
	_, ok := tr.Latest()
	assert.False(t, ok)

	require.NoError(t, tr.Consume(strings.NewReader(input)))

	fix, ok := tr.Latest()
	require.True(t, ok)
	assert.True(t, fix.Valid())
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.InDelta(t, 11.516667, fix.Longitude, 1e-4)
	assert.InDelta(t, 22.4, fix.SpeedKnots, 1e-9)
	assert.InDelta(t, 545.4, fix.Altitude, 1e-9)
	assert.Equal(t, int64(8), fix.Satellites)
}

func TestTracker_NoRMCMeansNoFix(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Consume(strings.NewReader(ggaLine+"\n")))
	_, ok := tr.Latest()
	assert.False(t, ok)
}
