package config

import (
	"fmt"
	"strings"

	"multiswap/crypto"
)

// MaxAuthoritySeedLength bounds the escrow authority seed.
const MaxAuthoritySeedLength = crypto.MaxSeedLength

// ValidateConfig rejects configurations the node cannot run with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if _, err := cfg.EscrowProgramID(); err != nil {
		return err
	}
	if seed := cfg.Escrow.AuthoritySeed; seed == "" || len(seed) > MaxAuthoritySeedLength {
		return fmt.Errorf("escrow: AuthoritySeed must be 1..%d bytes", MaxAuthoritySeedLength)
	}
	if cfg.Rent.LamportsPerByteYear == 0 {
		return fmt.Errorf("rent: LamportsPerByteYear must be positive")
	}
	if cfg.Rent.ExemptionThreshold <= 0 {
		return fmt.Errorf("rent: ExemptionThreshold must be positive")
	}
	if cfg.RPC.RateLimitPerSecond < 0 || cfg.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if cfg.RPC.RateLimitPerSecond > 0 && cfg.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("rpc: RateLimitBurst required when RateLimitPerSecond is set")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must not be negative")
	}
	return nil
}
