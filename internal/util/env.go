package util

import (
	"os"
	"time"
)

// EnvOrDefault returns the value of the environment variable, or fallback
// when it is unset or empty.
func EnvOrDefault(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// EnvDurationOrDefault parses the environment variable as a time.Duration,
// returning fallback when it is unset, empty or malformed.
func EnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(EnvOrDefault(key, ""))
	if err != nil {
		return fallback
	}
	return value
}
