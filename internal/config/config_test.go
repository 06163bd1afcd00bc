package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recorder_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing set\n\n"))
	require.NoError(t, err)

	assert.Equal(t, 260, cfg.SampleRateHz)
	assert.Equal(t, 15600, cfg.GraceTicks())
	assert.Equal(t, 15600, cfg.StopTicks())
	assert.Equal(t, 156000, cfg.CapTicks())
	assert.Equal(t, 10, cfg.MotionPenaltyTicks)
	assert.Equal(t, 20, cfg.StatusEveryTicks)
	assert.Equal(t, time.Second/260, cfg.Period())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
SAMPLE_RATE_HZ=100
STILL_ACCEL_THRESH = 10.5
SESSION_DIR=/mnt/sd/tests
SENSOR=mock
IMU_ACCEL_RANGE=2
SUSPEND_WEB_DURING_SESSION=true
MQTT_BROKER=tcp://localhost:1883
`))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.SampleRateHz)
	assert.Equal(t, 10.5, cfg.StillAccelThresh)
	assert.Equal(t, "/mnt/sd/tests", cfg.SessionDir)
	assert.Equal(t, SensorMock, cfg.Sensor)
	assert.Equal(t, byte(2), cfg.IMUAccelRange)
	assert.True(t, cfg.SuspendWebDuringSession)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, 6000, cfg.StopTicks())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown key", body: "FOO=1\n", wantErr: `unknown config key: "FOO"`},
		{name: "missing equals", body: "SAMPLE_RATE_HZ\n", wantErr: "invalid config line 1"},
		{name: "bad int", body: "SAMPLE_RATE_HZ=fast\n", wantErr: "invalid SAMPLE_RATE_HZ"},
		{name: "range", body: "IMU_GYRO_RANGE=4\n", wantErr: "IMU_GYRO_RANGE must be 0-3"},
		{name: "zero rate", body: "SAMPLE_RATE_HZ=0\n", wantErr: "SAMPLE_RATE_HZ must be positive"},
		{name: "bad sensor", body: "SENSOR=mpu6050\n", wantErr: "SENSOR must be"},
		{name: "line number", body: "# c\nSAMPLE_RATE_HZ=1\nBAD\n", wantErr: "invalid config line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
