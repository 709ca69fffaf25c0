package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	// Account allowed to deploy, update config, refund and delete
	OwnerAccount string

	// Network passphrase ( mainnet or testnet ), mixed into signed invocations
	NetworkPassphrase string

	// Storage backend: memory or postgres
	StoreBackend string

	// PostgreSQL connection string, required for the postgres backend
	DatabaseURL string

	// HTTP API port
	APIPort int

	// debug, info, warn or error
	LogLevel string
}

// Load reads the configuration from environment variables.
// A .env file, when present, is loaded by the caller beforehand.
func Load() *Config {
	return &Config{
		OwnerAccount:      os.Getenv("OWNER_ACCOUNT"),
		NetworkPassphrase: getEnv("NETWORK_PASSPHRASE", network.TestNetworkPassphrase),
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		APIPort:           getEnvInt("API_PORT", 8080),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OwnerAccount == "" {
		return fmt.Errorf("OWNER_ACCOUNT is required")
	}
	if !strkey.IsValidEd25519PublicKey(c.OwnerAccount) {
		return fmt.Errorf("OWNER_ACCOUNT must be a Stellar account id, got %q", c.OwnerAccount)
	}
	if c.NetworkPassphrase == "" {
		return fmt.Errorf("NETWORK_PASSPHRASE is required")
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want memory or postgres)", c.StoreBackend)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT out of range: %d", c.APIPort)
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
