package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"multiswap/crypto"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	GenesisFile string `toml:"GenesisFile"`
	NetworkName string `toml:"NetworkName"`
	Environment string `toml:"Environment"`

	Escrow    Escrow    `toml:"escrow"`
	Rent      Rent      `toml:"rent"`
	RPC       RPC       `toml:"rpc"`
	Telemetry Telemetry `toml:"telemetry"`
	Indexer   Indexer   `toml:"indexer"`
	Log       Log       `toml:"log"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}

	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		RPCAddress:  ":8899",
		DataDir:     "./multiswap-data",
		NetworkName: "multiswap-local",
		Escrow:      Escrow{AuthoritySeed: "escrow"},
		Rent:        Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2.0},
		RPC: RPC{
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			ReadHeaderTimeout:  5,
			MaxBodyBytes:       1 << 20,
		},
		Telemetry: Telemetry{Endpoint: "localhost:4318", Insecure: true, SampleRatio: 1},
		Log:       Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = def.RPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = def.DataDir
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = def.NetworkName
	}
	if cfg.Escrow.AuthoritySeed == "" {
		cfg.Escrow.AuthoritySeed = def.Escrow.AuthoritySeed
	}
	if cfg.Rent.LamportsPerByteYear == 0 {
		cfg.Rent.LamportsPerByteYear = def.Rent.LamportsPerByteYear
	}
	if cfg.Rent.ExemptionThreshold == 0 {
		cfg.Rent.ExemptionThreshold = def.Rent.ExemptionThreshold
	}
	if cfg.RPC.ReadHeaderTimeout <= 0 {
		cfg.RPC.ReadHeaderTimeout = def.RPC.ReadHeaderTimeout
	}
	if cfg.RPC.MaxBodyBytes <= 0 {
		cfg.RPC.MaxBodyBytes = def.RPC.MaxBodyBytes
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = def.Telemetry.Endpoint
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

// EscrowProgramID resolves the configured escrow program address. An empty
// value yields the zero key, which callers replace with the built-in default.
func (c *Config) EscrowProgramID() (crypto.PublicKey, error) {
	raw := strings.TrimSpace(c.Escrow.ProgramID)
	if raw == "" {
		return crypto.PublicKey{}, nil
	}
	id, err := crypto.ParsePublicKey(raw)
	if err != nil {
		return crypto.PublicKey{}, fmt.Errorf("escrow: invalid ProgramID: %w", err)
	}
	return id, nil
}

// JWTSecret resolves the submit secret from the configured environment
// variable. An empty result means submissions are not authenticated.
func (c *Config) JWTSecret() string {
	name := strings.TrimSpace(c.RPC.JWTSecretEnv)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
