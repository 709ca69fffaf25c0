package config

import (
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OWNER_ACCOUNT", "")
	t.Setenv("NETWORK_PASSPHRASE", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("API_PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	assert.Equal(t, network.TestNetworkPassphrase, cfg.NetworkPassphrase)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Error(t, cfg.Validate(), "owner is required")
}

func TestLoad_FromEnv(t *testing.T) {
	owner := keypair.MustRandom().Address()
	t.Setenv("OWNER_ACCOUNT", owner)
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/sunny")
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, owner, cfg.OwnerAccount)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OwnerAccount:      keypair.MustRandom().Address(),
			NetworkPassphrase: network.TestNetworkPassphrase,
			StoreBackend:      BackendMemory,
			APIPort:           8080,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad owner", func(c *Config) { c.OwnerAccount = "GABC" }},
		{"no passphrase", func(c *Config) { c.NetworkPassphrase = "" }},
		{"postgres without url", func(c *Config) { c.StoreBackend = BackendPostgres }},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }},
		{"port out of range", func(c *Config) { c.APIPort = 70000 }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
