package retry

import (
	"os"
	"strconv"
	"time"
)

// Config holds retry configuration for store operations
type Config struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// LoadConfig loads retry configuration from STORE_RETRY_* environment variables
func LoadConfig() Config {
	return Config{
		Enabled:      getEnvAsBool("STORE_RETRY_ENABLED", true),
		MaxRetries:   getEnvAsInt("STORE_RETRY_MAX_RETRIES", 3),
		InitialDelay: time.Duration(getEnvAsInt("STORE_RETRY_INITIAL_DELAY_MS", 50)) * time.Millisecond,
		MaxDelay:     time.Duration(getEnvAsInt("STORE_RETRY_MAX_DELAY_MS", 1000)) * time.Millisecond,
	}
}

func getEnvAsBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}
