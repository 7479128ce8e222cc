package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dialog-analyzer/pkg/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analyzer  AnalyzerConfig  `json:"analyzer"`
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
	Messaging MessagingConfig `json:"messaging"`
}

// AnalyzerConfig holds the measurement parameters
type AnalyzerConfig struct {
	// ExpectedSampleRate is the only accepted recording sample rate (Hz)
	ExpectedSampleRate int `json:"expected_sample_rate"`

	// AmplitudeThreshold is the absolute-amplitude speech gate
	AmplitudeThreshold float64 `json:"amplitude_threshold"`

	// GoodReactionThresholdMS is the inclusive good-reaction bound (ms)
	GoodReactionThresholdMS float64 `json:"good_reaction_threshold_ms"`
}

// HTTPConfig holds the HTTP server configuration
type HTTPConfig struct {
	Enabled       bool          `json:"enabled"`
	Port          int           `json:"port"`
	EnableMetrics bool          `json:"enable_metrics"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
}

// LoggingConfig holds the logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	OutputFile string `json:"output_file"`
}

// MessagingConfig holds the AMQP publishing configuration.
// Publishing is disabled when AMQPUrl is empty.
type MessagingConfig struct {
	AMQPUrl       string `json:"amqp_url"`
	AMQPQueueName string `json:"amqp_queue_name"`
}

// Load loads the configuration from environment variables or .env file
func Load(logger *logrus.Logger) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	possibleEnvFiles := []string{
		".env",
		"../.env",
		filepath.Join(wd, ".env"),
	}

	var loadedFrom string
	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr == nil {
			if loadErr := godotenv.Load(envFile); loadErr == nil {
				loadedFrom, _ = filepath.Abs(envFile)
				break
			}
		}
	}

	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Info("Successfully loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Debug("No .env file found, using environment variables only")
	}

	config := &Config{}

	if err := loadAnalyzerConfig(logger, &config.Analyzer); err != nil {
		return nil, errors.Wrap(err, "failed to load analyzer configuration")
	}

	if err := loadHTTPConfig(logger, &config.HTTP); err != nil {
		return nil, errors.Wrap(err, "failed to load HTTP configuration")
	}

	if err := loadLoggingConfig(logger, &config.Logging); err != nil {
		return nil, errors.Wrap(err, "failed to load logging configuration")
	}

	if err := loadMessagingConfig(logger, &config.Messaging); err != nil {
		return nil, errors.Wrap(err, "failed to load messaging configuration")
	}

	return config, nil
}

// loadAnalyzerConfig loads the analyzer configuration section
func loadAnalyzerConfig(logger *logrus.Logger, config *AnalyzerConfig) error {
	config.ExpectedSampleRate = getEnvInt("EXPECTED_SAMPLE_RATE", 8000)
	if config.ExpectedSampleRate <= 0 {
		logger.Warn("Invalid EXPECTED_SAMPLE_RATE value, using default: 8000")
		config.ExpectedSampleRate = 8000
	}

	config.AmplitudeThreshold = getEnvFloat("AMPLITUDE_THRESHOLD", 0.02)
	if config.AmplitudeThreshold <= 0 || config.AmplitudeThreshold >= 1 {
		logger.Warn("Invalid AMPLITUDE_THRESHOLD value, using default: 0.02")
		config.AmplitudeThreshold = 0.02
	}

	config.GoodReactionThresholdMS = getEnvFloat("GOOD_REACTION_THRESHOLD_MS", 1200.0)
	if config.GoodReactionThresholdMS <= 0 {
		logger.Warn("Invalid GOOD_REACTION_THRESHOLD_MS value, using default: 1200")
		config.GoodReactionThresholdMS = 1200.0
	}

	return nil
}

// loadHTTPConfig loads the HTTP configuration section
func loadHTTPConfig(logger *logrus.Logger, config *HTTPConfig) error {
	httpPortStr := getEnv("HTTP_PORT", "8080")
	httpPort, err := strconv.Atoi(httpPortStr)
	if err != nil || httpPort < 1 || httpPort > 65535 {
		logger.Warn("Invalid HTTP_PORT value, using default: 8080")
		config.Port = 8080
	} else {
		config.Port = httpPort
	}

	config.Enabled = getEnvBool("HTTP_ENABLED", true)
	config.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)

	readTimeoutStr := getEnv("HTTP_READ_TIMEOUT", "10s")
	readTimeout, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		logger.Warn("Invalid HTTP_READ_TIMEOUT value, using default: 10s")
		config.ReadTimeout = 10 * time.Second
	} else {
		config.ReadTimeout = readTimeout
	}

	writeTimeoutStr := getEnv("HTTP_WRITE_TIMEOUT", "30s")
	writeTimeout, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		logger.Warn("Invalid HTTP_WRITE_TIMEOUT value, using default: 30s")
		config.WriteTimeout = 30 * time.Second
	} else {
		config.WriteTimeout = writeTimeout
	}

	return nil
}

// loadLoggingConfig loads the logging configuration section
func loadLoggingConfig(logger *logrus.Logger, config *LoggingConfig) error {
	config.Level = getEnv("LOG_LEVEL", "info")

	_, err := logrus.ParseLevel(config.Level)
	if err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", config.Level)
		config.Level = "info"
	}

	config.Format = getEnv("LOG_FORMAT", "json")
	if config.Format != "json" && config.Format != "text" {
		logger.Warn("Invalid LOG_FORMAT, must be 'json' or 'text', defaulting to 'json'")
		config.Format = "json"
	}

	config.OutputFile = getEnv("LOG_OUTPUT_FILE", "")

	return nil
}

// loadMessagingConfig loads the messaging configuration section
func loadMessagingConfig(logger *logrus.Logger, config *MessagingConfig) error {
	config.AMQPUrl = getEnv("AMQP_URL", "")
	config.AMQPQueueName = getEnv("AMQP_QUEUE_NAME", "")

	if (config.AMQPUrl != "" && config.AMQPQueueName == "") || (config.AMQPUrl == "" && config.AMQPQueueName != "") {
		logger.Warn("Incomplete AMQP configuration: both AMQP_URL and AMQP_QUEUE_NAME must be provided")
	}

	return nil
}

// ApplyLogging applies the configuration to the logger
func (c *Config) ApplyLogging(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}
	logger.SetLevel(level)

	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if c.Logging.OutputFile != "" {
		f, err := os.OpenFile(c.Logging.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to open log file: %s", c.Logging.OutputFile))
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return nil
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// Helper function to get an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getEnvFloat retrieves an environment variable and converts it to float64
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}
