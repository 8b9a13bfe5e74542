package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"multiswap/crypto"
)

type GenesisSpec struct {
	GenesisTime   string             `json:"genesisTime"`
	NetworkName   string             `json:"networkName,omitempty"`
	Accounts      []AccountSpec      `json:"accounts"`
	TokenAccounts []TokenAccountSpec `json:"tokenAccounts,omitempty"`
	EscrowStorage []EscrowSpec       `json:"escrowStorage,omitempty"`

	genesisTimestamp time.Time
}

// AccountSpec funds a plain account. Owner defaults to the system program.
type AccountSpec struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	Owner    string `json:"owner,omitempty"`
	Space    uint64 `json:"space,omitempty"`
}

// TokenAccountSpec creates an initialized token account. Lamports defaults to
// the rent-exempt minimum for the token layout.
type TokenAccountSpec struct {
	Address   string `json:"address"`
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
	Amount    uint64 `json:"amount"`
	Lamports  uint64 `json:"lamports,omitempty"`
}

// EscrowSpec pre-allocates zeroed escrow storage sized for the largest
// record. Lamports defaults to the rent-exempt minimum.
type EscrowSpec struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports,omitempty"`
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON genesis document. Unknown
// fields are rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	seen := make(map[crypto.PublicKey]string)
	claim := func(field, addr string) error {
		key, err := crypto.ParsePublicKey(strings.TrimSpace(addr))
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s: address %s already allocated by %s", field, key, prev)
		}
		seen[key] = field
		return nil
	}
	for i, acc := range s.Accounts {
		field := fmt.Sprintf("accounts[%d]", i)
		if err := claim(field, acc.Address); err != nil {
			return err
		}
		if strings.TrimSpace(acc.Owner) != "" {
			if _, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Owner)); err != nil {
				return fmt.Errorf("%s.owner: %w", field, err)
			}
		}
	}
	for i, acc := range s.TokenAccounts {
		field := fmt.Sprintf("tokenAccounts[%d]", i)
		if err := claim(field, acc.Address); err != nil {
			return err
		}
		if _, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Mint)); err != nil {
			return fmt.Errorf("%s.mint: %w", field, err)
		}
		if _, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Authority)); err != nil {
			return fmt.Errorf("%s.authority: %w", field, err)
		}
	}
	for i, acc := range s.EscrowStorage {
		if err := claim(fmt.Sprintf("escrowStorage[%d]", i), acc.Address); err != nil {
			return err
		}
	}
	return nil
}

func parseGenesisTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("genesisTime: %w", err)
	}
	return ts.UTC(), nil
}
