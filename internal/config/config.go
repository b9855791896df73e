package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDFusion  string
	MQTTClientIDConsole string
	MQTTClientIDTracker string

	// Topics
	TopicTrackerState string
	TopicPoseAligned  string
	TopicFocus        string

	// Tracker
	TrackerSource     string // "mock", "mqtt" or "serial"
	TrackerSerialPort string
	TrackerBaudRate   int
	TrackerMaxAge     int // milliseconds; older samples are not handed out

	// Orientation sensor
	SensorSource string // "mock" or "imu"
	IMUSPIDevice string
	IMUCSPin     string

	// Fusion
	TrackingType        string // "RotationAndPosition", "RotationOnly" or "PositionOnly"
	PositionFixedWeight float64
	ExtrapolationTime   float64 // seconds, initial estimate

	// Timing
	TickInterval        int // milliseconds
	MockTrackerInterval int // milliseconds
	MockTrackerLatency  int // milliseconds the simulated tracker lags the sensor

	// Storage
	StoragePath string

	// Web Server
	WebServerPort int

	// Logging
	LogLevel string
}

// Package-level unexported variables for the singleton:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: InitGlobal loads the file at most once.
//   - configMu: write lock while loading, read lock in Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

func defaults() *Config {
	return &Config{
		MQTTClientIDFusion:  "tracking-fusion",
		MQTTClientIDConsole: "tracking-console",
		MQTTClientIDTracker: "tracking-mock-tracker",
		TopicTrackerState:   "tracking/tracker/state",
		TopicPoseAligned:    "tracking/pose/aligned",
		TopicFocus:          "tracking/focus",
		TrackerSource:       "mock",
		TrackerBaudRate:     115200,
		TrackerMaxAge:       200,
		SensorSource:        "mock",
		TrackingType:        "RotationAndPosition",
		PositionFixedWeight: 0.15,
		TickInterval:        10,
		MockTrackerInterval: 20,
		MockTrackerLatency:  30,
		WebServerPort:       8080,
		LogLevel:            "info",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of the defaults. Blank lines and lines
// starting with '#' are ignored.
func Parse(r io.Reader) (*Config, error) {
	cfg := defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_FUSION":
		c.MQTTClientIDFusion = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value

	// Topics
	case "TOPIC_TRACKER_STATE":
		c.TopicTrackerState = value
	case "TOPIC_POSE_ALIGNED":
		c.TopicPoseAligned = value
	case "TOPIC_FOCUS":
		c.TopicFocus = value

	// Tracker
	case "TRACKER_SOURCE":
		c.TrackerSource = strings.ToLower(value)
	case "TRACKER_SERIAL_PORT":
		c.TrackerSerialPort = value
	case "TRACKER_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TRACKER_BAUD_RATE %q: %w", value, err)
		}
		c.TrackerBaudRate = rate
	case "TRACKER_MAX_AGE":
		age, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TRACKER_MAX_AGE %q: %w", value, err)
		}
		c.TrackerMaxAge = age

	// Orientation sensor
	case "SENSOR_SOURCE":
		c.SensorSource = strings.ToLower(value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Fusion
	case "TRACKING_TYPE":
		c.TrackingType = value
	case "POSITION_FIXED_WEIGHT":
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid POSITION_FIXED_WEIGHT %q: %w", value, err)
		}
		if !(w > 0) {
			return fmt.Errorf("POSITION_FIXED_WEIGHT must be positive, got %v", w)
		}
		c.PositionFixedWeight = w
	case "EXTRAPOLATION_TIME":
		t, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid EXTRAPOLATION_TIME %q: %w", value, err)
		}
		if t < 0 {
			return fmt.Errorf("EXTRAPOLATION_TIME must not be negative, got %v", t)
		}
		c.ExtrapolationTime = t

	// Timing
	case "TICK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL %q: %w", value, err)
		}
		c.TickInterval = interval
	case "MOCK_TRACKER_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_TRACKER_INTERVAL %q: %w", value, err)
		}
		c.MockTrackerInterval = interval
	case "MOCK_TRACKER_LATENCY":
		latency, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_TRACKER_LATENCY %q: %w", value, err)
		}
		c.MockTrackerLatency = latency

	// Storage
	case "STORAGE_PATH":
		c.StoragePath = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.TrackerSource {
	case "mock", "mqtt":
	case "serial":
		if c.TrackerSerialPort == "" {
			return fmt.Errorf("TRACKER_SERIAL_PORT is required when TRACKER_SOURCE=serial")
		}
		if c.TrackerBaudRate <= 0 {
			return fmt.Errorf("TRACKER_BAUD_RATE must be positive")
		}
	default:
		return fmt.Errorf("TRACKER_SOURCE must be mock, mqtt or serial, got %q", c.TrackerSource)
	}
	switch c.SensorSource {
	case "mock":
	case "imu":
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required when SENSOR_SOURCE=imu")
		}
	default:
		return fmt.Errorf("SENSOR_SOURCE must be mock or imu, got %q", c.SensorSource)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.MockTrackerInterval <= 0 {
		return fmt.Errorf("MOCK_TRACKER_INTERVAL must be positive")
	}
	if c.TrackerMaxAge <= 0 {
		return fmt.Errorf("TRACKER_MAX_AGE must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return nil.
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
