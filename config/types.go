package config

// Escrow configures the hosted escrow program.
type Escrow struct {
	// ProgramID overrides the address the program is hosted under (base58).
	ProgramID     string `toml:"ProgramID"`
	AuthoritySeed string `toml:"AuthoritySeed"`
	Paused        bool   `toml:"Paused"`
}

// Rent mirrors the rent parameters applied to escrow storage.
type Rent struct {
	LamportsPerByteYear uint64  `toml:"LamportsPerByteYear"`
	ExemptionThreshold  float64 `toml:"ExemptionThreshold"`
}

// RPC controls the HTTP API limits and submit authentication.
type RPC struct {
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	// JWTSecretEnv names the environment variable holding the HS256 secret
	// required on transaction submission. Empty disables the check.
	JWTSecretEnv      string `toml:"JWTSecretEnv"`
	ReadHeaderTimeout int    `toml:"ReadHeaderTimeout"`
	MaxBodyBytes      int64  `toml:"MaxBodyBytes"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	Headers     string  `toml:"Headers"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Indexer configures the escrow event index.
type Indexer struct {
	// DSN is a sqlite path, ":memory:" or a postgres:// URL. Empty disables
	// indexing.
	DSN string `toml:"DSN"`
}

// Log configures the structured logger.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}
