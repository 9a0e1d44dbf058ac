// Package config loads and validates the plantwise daemon configuration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the plantwise configuration
type Config struct {
	// Main configuration
	Enable   bool   `yaml:"enable"`
	LogLevel string `yaml:"log_level"`

	// Storage
	DatabasePath string `yaml:"database_path"`
	ModelDir     string `yaml:"model_dir"`

	// Listeners
	MetricsListener bool `yaml:"metrics_listener"`
	MetricsPort     int  `yaml:"metrics_port"`
	StatusListener  bool `yaml:"status_listener"`
	StatusPort      int  `yaml:"status_port"`

	// Environmental provider
	WeatherBaseURL   string `yaml:"weather_base_url"`
	WeatherTimeoutMS int    `yaml:"weather_timeout_ms"`
	DefaultLocation  string `yaml:"default_location"`

	// Learning loop
	FeedbackLookbackDays int `yaml:"feedback_lookback_days"`
	RetrainIntervalHours int `yaml:"retrain_interval_hours"`

	// Prediction history
	HistoryMaxPerPlant  int `yaml:"history_max_per_plant"`
	HistoryMaxEvents    int `yaml:"history_max_events"`
	HistoryRetentionHrs int `yaml:"history_retention_hours"`
	HistoryMaxRAMMB     int `yaml:"history_max_ram_mb"`

	// Telemetry publish
	MQTTEnabled     bool   `yaml:"mqtt_enabled"`
	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTPort        int    `yaml:"mqtt_port"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`
	MQTTUsername    string `yaml:"mqtt_username"`
	MQTTPassword    string `yaml:"mqtt_password"`
}

// Default configuration values
const (
	DefaultLogLevel             = "info"
	DefaultDatabasePath         = "/var/lib/plantwise/plantwise.db"
	DefaultModelDir             = "/var/lib/plantwise/models"
	DefaultMetricsPort          = 9101
	DefaultStatusPort           = 8081
	DefaultWeatherTimeoutMS     = 5000
	DefaultFeedbackLookbackDays = 90
	DefaultRetrainIntervalHours = 24
	DefaultHistoryMaxPerPlant   = 200
	DefaultHistoryMaxEvents     = 500
	DefaultHistoryRetentionHrs  = 168
	DefaultHistoryMaxRAMMB      = 16
	DefaultMQTTPort             = 1883
	DefaultMQTTTopicPrefix      = "plantwise"
)

// Load reads, defaults and validates the configuration at path. A missing
// file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.setDefaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for the configuration
func (c *Config) setDefaults() {
	c.Enable = true
	c.LogLevel = DefaultLogLevel
	c.DatabasePath = DefaultDatabasePath
	c.ModelDir = DefaultModelDir
	c.MetricsListener = true
	c.MetricsPort = DefaultMetricsPort
	c.StatusListener = true
	c.StatusPort = DefaultStatusPort
	c.WeatherTimeoutMS = DefaultWeatherTimeoutMS
	c.FeedbackLookbackDays = DefaultFeedbackLookbackDays
	c.RetrainIntervalHours = DefaultRetrainIntervalHours
	c.HistoryMaxPerPlant = DefaultHistoryMaxPerPlant
	c.HistoryMaxEvents = DefaultHistoryMaxEvents
	c.HistoryRetentionHrs = DefaultHistoryRetentionHrs
	c.HistoryMaxRAMMB = DefaultHistoryMaxRAMMB
	c.MQTTPort = DefaultMQTTPort
	c.MQTTTopicPrefix = DefaultMQTTTopicPrefix
}

// validate checks the configuration for invalid values
func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics_port %d", c.MetricsPort)
	}
	if c.StatusPort <= 0 || c.StatusPort > 65535 {
		return fmt.Errorf("invalid status_port %d", c.StatusPort)
	}
	if c.WeatherTimeoutMS <= 0 {
		return fmt.Errorf("invalid weather_timeout_ms %d", c.WeatherTimeoutMS)
	}
	if c.FeedbackLookbackDays <= 0 {
		return fmt.Errorf("invalid feedback_lookback_days %d", c.FeedbackLookbackDays)
	}
	if c.RetrainIntervalHours <= 0 {
		return fmt.Errorf("invalid retrain_interval_hours %d", c.RetrainIntervalHours)
	}
	if c.MQTTEnabled && c.MQTTBroker == "" {
		return fmt.Errorf("mqtt_enabled requires mqtt_broker")
	}
	return nil
}

// WeatherTimeout returns the environmental provider timeout as a duration
func (c *Config) WeatherTimeout() time.Duration {
	return time.Duration(c.WeatherTimeoutMS) * time.Millisecond
}

// RetrainInterval returns the retrain cadence as a duration
func (c *Config) RetrainInterval() time.Duration {
	return time.Duration(c.RetrainIntervalHours) * time.Hour
}
