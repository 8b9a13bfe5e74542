package system

import (
	"errors"
	"fmt"
	"math/bits"

	"multiswap/core/types"
	"multiswap/crypto"
)

var (
	// ProgramID owns every plain wallet account. It is the all-zero key.
	ProgramID = crypto.PublicKey{}
	// RentSysvarID names the read-only account carrying rent parameters.
	RentSysvarID = crypto.MustParsePublicKey("SysvarRent111111111111111111111111111111111")
)

// MaxAccountSpace caps the data allocation of a single account.
const MaxAccountSpace = 10 * 1024 * 1024

var (
	ErrMissingSignature   = errors.New("system: missing required signature")
	ErrInsufficientFunds  = errors.New("system: insufficient funds")
	ErrNotSystemOwned     = errors.New("system: source account not owned by the system program")
	ErrSourceCarriesData  = errors.New("system: source account carries data")
	ErrAccountInUse       = errors.New("system: account already in use")
	ErrSpaceTooLarge      = errors.New("system: requested space too large")
	ErrBalanceOverflow    = errors.New("system: balance overflow")
	ErrInvalidInstruction = errors.New("system: invalid instruction")
	ErrNotEnoughAccounts  = errors.New("system: not enough account keys")
)

// Transfer moves amount lamports from a system-owned signer to any account.
// Transfers to self and zero-amount transfers are permitted.
func Transfer(from, to *types.AccountInfo, amount uint64) error {
	if from == nil || to == nil {
		return ErrNotEnoughAccounts
	}
	if !from.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingSignature, from.Key)
	}
	if from.Owner != ProgramID {
		return fmt.Errorf("%w: %s", ErrNotSystemOwned, from.Key)
	}
	if len(from.Data) != 0 {
		return fmt.Errorf("%w: %s", ErrSourceCarriesData, from.Key)
	}
	if from.Lamports < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from.Key, from.Lamports, amount)
	}
	if from == to {
		return nil
	}
	credited, carry := bits.Add64(to.Lamports, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to.Key)
	}
	from.Lamports -= amount
	to.Lamports = credited
	return nil
}

// CreateAccount funds a fresh account, allocates space zeroed bytes of data
// and assigns it to owner. Both the funder and the new account must sign.
func CreateAccount(funder, account *types.AccountInfo, lamports, space uint64, owner crypto.PublicKey) error {
	if funder == nil || account == nil {
		return ErrNotEnoughAccounts
	}
	if !account.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingSignature, account.Key)
	}
	if account.Lamports != 0 || len(account.Data) != 0 || account.Owner != ProgramID {
		return fmt.Errorf("%w: %s", ErrAccountInUse, account.Key)
	}
	if space > MaxAccountSpace {
		return fmt.Errorf("%w: %d", ErrSpaceTooLarge, space)
	}
	if err := Transfer(funder, account, lamports); err != nil {
		return err
	}
	account.Data = make([]byte, space)
	account.Owner = owner
	return nil
}

// Ledger exposes the system primitives through the native-transfer interface
// consumed by other programs.
type Ledger struct{}

func (Ledger) Transfer(from, to *types.AccountInfo, amount uint64) error {
	return Transfer(from, to, amount)
}
