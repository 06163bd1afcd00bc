package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sensor selections.
const (
	SensorMPU9250 = "mpu9250"
	SensorMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Sampling and session limits
	SampleRateHz       int     // ticks per second
	StillAccelThresh   float64 // m/s²
	StillGyroThresh    float64 // rad/s
	GracePeriodSec     int     // detector stays unarmed this long after start
	StopWindowSec      int     // continuous stillness needed to stop
	SessionCapSec      int     // hard ceiling on a session
	MotionPenaltyTicks int     // quiet ticks removed per moving sample
	StatusEveryTicks   int     // diagnostic line subsampling

	// Storage
	SessionDir     string
	SessionPrefix  string
	SessionSuffix  string
	SyncEveryTicks int // fsync cadence, 0 = only at close

	// IMU Hardware
	Sensor       string // "mpu9250" or "mock"
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// BMP Hardware (temperature), empty disables
	BMPSPIDevice string

	// Web Server
	WebServerPort           int
	WebRoot                 string
	SuspendWebDuringSession bool

	// MQTT, empty broker disables
	MQTTBroker   string
	MQTTClientID string
	TopicSession string

	// GPS, empty port disables
	GPSSerialPort string
	GPSBaudRate   int

	// Display, empty bus disables
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Status LED, empty disables
	StatusLEDPin string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for any key missing from the file.
// The sampling constants match the original 260 Hz flight recorder.
func Default() *Config {
	return &Config{
		SampleRateHz:       260,
		StillAccelThresh:   12,
		StillGyroThresh:    1,
		GracePeriodSec:     60,
		StopWindowSec:      60,
		SessionCapSec:      600,
		MotionPenaltyTicks: 10,
		StatusEveryTicks:   20,

		SessionDir:     "./tests",
		SessionPrefix:  "session-",
		SyncEveryTicks: 260,

		Sensor:        SensorMPU9250,
		IMUSPIDevice:  "/dev/spidev0.0",
		IMUCSPin:      "8",
		IMUAccelRange: 3,
		IMUGyroRange:  3,

		WebServerPort: 80,
		WebRoot:       "./web",

		MQTTClientID: "flight-recorder",
		TopicSession: "recorder/session",

		GPSBaudRate: 9600,

		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Sampling and session limits
	case "SAMPLE_RATE_HZ":
		return parseInt(key, value, &c.SampleRateHz)
	case "STILL_ACCEL_THRESH":
		return parseFloat(key, value, &c.StillAccelThresh)
	case "STILL_GYRO_THRESH":
		return parseFloat(key, value, &c.StillGyroThresh)
	case "GRACE_PERIOD_SEC":
		return parseInt(key, value, &c.GracePeriodSec)
	case "STOP_WINDOW_SEC":
		return parseInt(key, value, &c.StopWindowSec)
	case "SESSION_CAP_SEC":
		return parseInt(key, value, &c.SessionCapSec)
	case "MOTION_PENALTY_TICKS":
		return parseInt(key, value, &c.MotionPenaltyTicks)
	case "STATUS_EVERY_TICKS":
		return parseInt(key, value, &c.StatusEveryTicks)

	// Storage
	case "SESSION_DIR":
		c.SessionDir = value
	case "SESSION_PREFIX":
		c.SessionPrefix = value
	case "SESSION_SUFFIX":
		c.SessionSuffix = value
	case "SYNC_EVERY_TICKS":
		return parseInt(key, value, &c.SyncEveryTicks)

	// IMU Hardware
	case "SENSOR":
		if value != SensorMPU9250 && value != SensorMock {
			return fmt.Errorf("SENSOR must be %q or %q, got %q", SensorMPU9250, SensorMock, value)
		}
		c.Sensor = value
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// BMP Hardware
	case "BMP_SPI_DEVICE":
		c.BMPSPIDevice = value

	// Web Server
	case "WEB_SERVER_PORT":
		return parseInt(key, value, &c.WebServerPort)
	case "WEB_ROOT":
		c.WebRoot = value
	case "SUSPEND_WEB_DURING_SESSION":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SUSPEND_WEB_DURING_SESSION %q: %w", value, err)
		}
		c.SuspendWebDuringSession = b

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_SESSION":
		c.TopicSession = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		return parseInt(key, value, &c.GPSBaudRate)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		return parseInt(key, value, &c.DisplayUpdateInterval)

	// Status LED
	case "STATUS_LED_PIN":
		c.StatusLEDPin = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseInt(key, value string, dst *int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// Validate checks that the values can drive a session.
func (c *Config) Validate() error {
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("SAMPLE_RATE_HZ must be positive, got %d", c.SampleRateHz)
	}
	if c.StillAccelThresh < 0 || c.StillGyroThresh < 0 {
		return fmt.Errorf("stillness thresholds must not be negative")
	}
	if c.GracePeriodSec < 0 {
		return fmt.Errorf("GRACE_PERIOD_SEC must not be negative, got %d", c.GracePeriodSec)
	}
	if c.StopWindowSec <= 0 {
		return fmt.Errorf("STOP_WINDOW_SEC must be positive, got %d", c.StopWindowSec)
	}
	if c.SessionCapSec <= 0 {
		return fmt.Errorf("SESSION_CAP_SEC must be positive, got %d", c.SessionCapSec)
	}
	if c.MotionPenaltyTicks < 0 {
		return fmt.Errorf("MOTION_PENALTY_TICKS must not be negative, got %d", c.MotionPenaltyTicks)
	}
	if c.StatusEveryTicks < 0 || c.SyncEveryTicks < 0 {
		return fmt.Errorf("STATUS_EVERY_TICKS and SYNC_EVERY_TICKS must not be negative")
	}
	if c.SessionDir == "" {
		return fmt.Errorf("SESSION_DIR is required")
	}
	if c.Sensor == SensorMPU9250 && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required when GPS_SERIAL_PORT is set")
	}
	if c.DisplayI2CBus != "" && c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	return nil
}

// Period is the nominal time between ticks.
func (c *Config) Period() time.Duration {
	return time.Second / time.Duration(c.SampleRateHz)
}

// GraceTicks is the number of ticks before the stillness detector is armed.
func (c *Config) GraceTicks() int {
	return c.SampleRateHz * c.GracePeriodSec
}

// StopTicks is the number of consecutive quiet ticks that ends a session.
func (c *Config) StopTicks() int {
	return c.SampleRateHz * c.StopWindowSec
}

// CapTicks is the hard session limit in ticks.
func (c *Config) CapTicks() int {
	return c.SampleRateHz * c.SessionCapSec
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
