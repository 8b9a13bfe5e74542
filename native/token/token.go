package token

import (
	"errors"
	"fmt"
	"math/bits"

	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/native/system"
)

// ProgramID owns every token account.
var ProgramID = crypto.MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

var (
	ErrNotEnoughAccounts    = errors.New("token: not enough account keys")
	ErrInvalidInstruction   = errors.New("token: invalid instruction")
	ErrIncorrectOwner       = errors.New("token: account not owned by the token program")
	ErrUninitialized        = errors.New("token: account not initialised")
	ErrAlreadyInitialized   = errors.New("token: account already initialised")
	ErrMintMismatch         = errors.New("token: mint mismatch")
	ErrAuthorityMismatch    = errors.New("token: authority does not match")
	ErrMissingSignature     = errors.New("token: authority did not sign")
	ErrInsufficientFunds    = errors.New("token: insufficient funds")
	ErrBalanceOverflow      = errors.New("token: balance overflow")
	ErrNonZeroBalance       = errors.New("token: cannot close account with non-zero balance")
	ErrUnsupportedAuthority = errors.New("token: unsupported authority type")
)

func load(info *types.AccountInfo) (*Account, error) {
	if info == nil {
		return nil, ErrNotEnoughAccounts
	}
	if info.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ErrIncorrectOwner, info.Key)
	}
	acc, err := Unpack(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Key, err)
	}
	if acc.State != StateInitialized {
		return nil, fmt.Errorf("%w: %s", ErrUninitialized, info.Key)
	}
	return acc, nil
}

func authorize(acc *Account, authority *types.AccountInfo) error {
	if authority == nil {
		return ErrNotEnoughAccounts
	}
	if authority.Key != acc.Authority {
		return fmt.Errorf("%w: expected %s, got %s", ErrAuthorityMismatch, acc.Authority, authority.Key)
	}
	if !authority.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingSignature, authority.Key)
	}
	return nil
}

// InitializeAccount stamps a program-owned, zeroed account as a token account
// of mint controlled by authority.
func InitializeAccount(account *types.AccountInfo, mint, authority crypto.PublicKey) error {
	if account == nil {
		return ErrNotEnoughAccounts
	}
	if account.Owner != ProgramID {
		return fmt.Errorf("%w: %s", ErrIncorrectOwner, account.Key)
	}
	existing, err := Unpack(account.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", account.Key, err)
	}
	if existing.State != StateUninitialized {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, account.Key)
	}
	acc := &Account{Mint: mint, Authority: authority, State: StateInitialized}
	return acc.Pack(account.Data)
}

// Transfer moves amount units between two accounts of the same mint. The
// authority must control source and must have signed.
func Transfer(source, destination, authority *types.AccountInfo, amount uint64) error {
	src, err := load(source)
	if err != nil {
		return err
	}
	dst, err := load(destination)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("%w: %s vs %s", ErrMintMismatch, src.Mint, dst.Mint)
	}
	if err := authorize(src, authority); err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, source.Key, src.Amount, amount)
	}
	if source == destination {
		return nil
	}
	credited, carry := bits.Add64(dst.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, destination.Key)
	}
	src.Amount -= amount
	dst.Amount = credited
	if err := src.Pack(source.Data); err != nil {
		return err
	}
	return dst.Pack(destination.Data)
}

// SetAuthority hands control of account to newAuthority. The current
// authority must have signed.
func SetAuthority(account, current *types.AccountInfo, newAuthority crypto.PublicKey) error {
	acc, err := load(account)
	if err != nil {
		return err
	}
	if err := authorize(acc, current); err != nil {
		return err
	}
	acc.Authority = newAuthority
	return acc.Pack(account.Data)
}

// Close drains the lamports of an empty token account into refund and erases
// it. The account's authority must have signed.
func Close(account, refund, authority *types.AccountInfo) error {
	acc, err := load(account)
	if err != nil {
		return err
	}
	if refund == nil {
		return ErrNotEnoughAccounts
	}
	if err := authorize(acc, authority); err != nil {
		return err
	}
	if acc.Amount != 0 {
		return fmt.Errorf("%w: %s holds %d", ErrNonZeroBalance, account.Key, acc.Amount)
	}
	if account == refund {
		return fmt.Errorf("%w: refund target is the closed account", ErrInvalidInstruction)
	}
	credited, carry := bits.Add64(refund.Lamports, account.Lamports, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, refund.Key)
	}
	refund.Lamports = credited
	account.Lamports = 0
	account.Data = nil
	account.Owner = system.ProgramID
	return nil
}

// Ledger exposes the token primitives through the asset interface consumed
// by other programs.
type Ledger struct{}

func (Ledger) Transfer(source, destination, authority *types.AccountInfo, amount uint64) error {
	return Transfer(source, destination, authority, amount)
}

func (Ledger) SetAuthority(account, current *types.AccountInfo, newAuthority crypto.PublicKey) error {
	return SetAuthority(account, current, newAuthority)
}

func (Ledger) Close(account, refund, authority *types.AccountInfo) error {
	return Close(account, refund, authority)
}

func (Ledger) Balance(account *types.AccountInfo) (uint64, error) {
	return Balance(account)
}

// Balance decodes the amount held by a token account.
func Balance(info *types.AccountInfo) (uint64, error) {
	acc, err := load(info)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}
