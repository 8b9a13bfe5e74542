package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `RPCAddress = "127.0.0.1:9000"
DataDir = "./data"
GenesisFile = "genesis.json"
NetworkName = "testnet"
Environment = "staging"

[escrow]
ProgramID = "11111111111111111111111111111112"
AuthoritySeed = "swap"
Paused = true

[rent]
LamportsPerByteYear = 10
ExemptionThreshold = 1.5

[rpc]
RateLimitPerSecond = 5.5
RateLimitBurst = 11
JWTSecretEnv = "SWAP_TEST_SECRET"

[telemetry]
Endpoint = "collector:4318"
Traces = true
Headers = "api-key=abc"
SampleRatio = 0.25

[indexer]
DSN = "file:events.db"

[log]
Level = "debug"
File = "/var/log/swapd.log"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.RPCAddress)
	require.Equal(t, "staging", cfg.Environment)
	require.True(t, cfg.Escrow.Paused)
	require.Equal(t, "swap", cfg.Escrow.AuthoritySeed)
	require.Equal(t, uint64(10), cfg.Rent.LamportsPerByteYear)
	require.Equal(t, 1.5, cfg.Rent.ExemptionThreshold)
	require.Equal(t, 11, cfg.RPC.RateLimitBurst)
	require.Equal(t, 5, cfg.RPC.ReadHeaderTimeout)
	require.True(t, cfg.Telemetry.Traces)
	require.Equal(t, "file:events.db", cfg.Indexer.DSN)
	require.Equal(t, "debug", cfg.Log.Level)

	id, err := cfg.EscrowProgramID()
	require.NoError(t, err)
	require.False(t, id.IsZero())

	t.Setenv("SWAP_TEST_SECRET", " s3cret ")
	require.Equal(t, "s3cret", cfg.JWTSecret())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("Bogus = 1\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown key")
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"missing rpc":        func(c *Config) { c.RPCAddress = "" },
		"bad program id":     func(c *Config) { c.Escrow.ProgramID = "not-base58!" },
		"long seed":          func(c *Config) { c.Escrow.AuthoritySeed = string(make([]byte, MaxAuthoritySeedLength+1)) },
		"zero rent":          func(c *Config) { c.Rent.LamportsPerByteYear = 0 },
		"negative threshold": func(c *Config) { c.Rent.ExemptionThreshold = -1 },
		"burst missing":      func(c *Config) { c.RPC.RateLimitBurst = 0 },
		"sample ratio":       func(c *Config) { c.Telemetry.SampleRatio = 2 },
		"negative rotation":  func(c *Config) { c.Log.MaxBackups = -1 },
	}
	require.NoError(t, ValidateConfig(Default()))
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, ValidateConfig(cfg))
		})
	}
}
