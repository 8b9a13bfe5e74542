package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"multiswap/core/state"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/native/escrow"
	"multiswap/native/system"
	"multiswap/native/token"
)

// metaKey marks a state database that already carries genesis allocations.
const metaKey = "genesis"

var ErrGenesisMismatch = errors.New("genesis: database initialised from a different genesis")

// Options carries the parameters genesis allocations depend on.
type Options struct {
	EscrowProgramID crypto.PublicKey
	Rent            system.Rent
}

// Apply writes the genesis allocations into manager exactly once. A database
// already initialised from the same spec is left untouched and reports false;
// one initialised from a different spec fails with ErrGenesisMismatch.
func Apply(spec *GenesisSpec, manager *state.Manager, opts Options) (bool, error) {
	if spec == nil {
		return false, fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return false, fmt.Errorf("state manager must not be nil")
	}
	digest, err := spec.Digest()
	if err != nil {
		return false, err
	}
	stored, ok, err := manager.Meta(metaKey)
	if err != nil {
		return false, err
	}
	if ok {
		if string(stored) != string(digest[:]) {
			return false, ErrGenesisMismatch
		}
		return false, nil
	}

	accounts, err := Build(spec, opts)
	if err != nil {
		return false, err
	}
	if err := manager.CommitAccounts(accounts); err != nil {
		return false, fmt.Errorf("commit genesis accounts: %w", err)
	}
	if err := manager.SetMeta(metaKey, digest[:]); err != nil {
		return false, fmt.Errorf("mark genesis: %w", err)
	}
	return true, nil
}

// Build converts the spec into the accounts it allocates.
func Build(spec *GenesisSpec, opts Options) (map[crypto.PublicKey]*types.Account, error) {
	if opts.EscrowProgramID.IsZero() {
		opts.EscrowProgramID = escrow.DefaultProgramID
	}
	out := make(map[crypto.PublicKey]*types.Account)

	for i, acc := range spec.Accounts {
		key, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Address))
		if err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
		owner := system.ProgramID
		if strings.TrimSpace(acc.Owner) != "" {
			if owner, err = crypto.ParsePublicKey(strings.TrimSpace(acc.Owner)); err != nil {
				return nil, fmt.Errorf("accounts[%d].owner: %w", i, err)
			}
		}
		if acc.Space > system.MaxAccountSpace {
			return nil, fmt.Errorf("accounts[%d]: %w", i, system.ErrSpaceTooLarge)
		}
		out[key] = &types.Account{Owner: owner, Lamports: acc.Lamports, Data: make([]byte, acc.Space)}
	}

	for i, acc := range spec.TokenAccounts {
		key, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Address))
		if err != nil {
			return nil, fmt.Errorf("tokenAccounts[%d]: %w", i, err)
		}
		mint, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Mint))
		if err != nil {
			return nil, fmt.Errorf("tokenAccounts[%d].mint: %w", i, err)
		}
		authority, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Authority))
		if err != nil {
			return nil, fmt.Errorf("tokenAccounts[%d].authority: %w", i, err)
		}
		lamports := acc.Lamports
		if lamports == 0 {
			lamports = opts.Rent.MinimumBalance(token.AccountSize)
		}
		out[key] = &types.Account{
			Owner:    token.ProgramID,
			Lamports: lamports,
			Data:     token.NewAccountData(mint, authority, acc.Amount),
		}
	}

	for i, acc := range spec.EscrowStorage {
		key, err := crypto.ParsePublicKey(strings.TrimSpace(acc.Address))
		if err != nil {
			return nil, fmt.Errorf("escrowStorage[%d]: %w", i, err)
		}
		lamports := acc.Lamports
		if lamports == 0 {
			lamports = opts.Rent.MinimumBalance(escrow.MaxRecordSize)
		}
		out[key] = &types.Account{
			Owner:    opts.EscrowProgramID,
			Lamports: lamports,
			Data:     make([]byte, escrow.MaxRecordSize),
		}
	}
	return out, nil
}

// Digest identifies the spec by the keccak256 of its JSON encoding.
func (s *GenesisSpec) Digest() ([32]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode genesis spec: %w", err)
	}
	return ethcrypto.Keccak256Hash(raw), nil
}
