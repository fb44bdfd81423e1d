package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// lookupEnv returns the trimmed value of key and whether it is set to a non-blank value.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// GetEnvString retrieves a string from environment variables or returns the default value.
func GetEnvString(key, defaultValue string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// GetEnvInt retrieves an integer from environment variables or returns the default value.
func GetEnvInt(key string, defaultValue int) int {
	valStr, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}

// GetEnvBool retrieves a boolean from environment variables or returns the default value.
func GetEnvBool(key string, defaultValue bool) bool {
	valStr, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}

// GetEnvDuration retrieves a duration from environment variables or returns the default value.
// Values with a unit ("45s", "2m") are parsed by time.ParseDuration; a bare
// integer is read as minutes.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}

	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}

	minutes, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return time.Duration(minutes) * time.Minute
}

// GetEnvLogLevel retrieves a log level from environment variables or returns the default value.
func GetEnvLogLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	valStr, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}

	level, err := zerolog.ParseLevel(strings.ToLower(valStr))
	if err != nil {
		return defaultValue
	}
	return level
}
