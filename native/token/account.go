package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"multiswap/crypto"
)

// AccountSize is the data length of a token account:
// mint(32) authority(32) amount(8, little-endian) state(1).
const AccountSize = 32 + 32 + 8 + 1

// AccountState tracks whether a token account has been initialised.
type AccountState uint8

const (
	StateUninitialized AccountState = 0
	StateInitialized   AccountState = 1
)

var ErrAccountDataTooSmall = errors.New("token: account data too small")

// Account is the decoded form of a token account's data.
type Account struct {
	Mint      crypto.PublicKey `json:"mint"`
	Authority crypto.PublicKey `json:"authority"`
	Amount    uint64           `json:"amount"`
	State     AccountState     `json:"state"`
}

// Unpack decodes a token account from data.
func Unpack(data []byte) (*Account, error) {
	if len(data) < AccountSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrAccountDataTooSmall, len(data))
	}
	acc := &Account{}
	copy(acc.Mint[:], data[0:32])
	copy(acc.Authority[:], data[32:64])
	acc.Amount = binary.LittleEndian.Uint64(data[64:72])
	acc.State = AccountState(data[72])
	return acc, nil
}

// Pack encodes acc into data, which must hold at least AccountSize bytes.
func (acc *Account) Pack(data []byte) error {
	if len(data) < AccountSize {
		return fmt.Errorf("%w: %d bytes", ErrAccountDataTooSmall, len(data))
	}
	copy(data[0:32], acc.Mint[:])
	copy(data[32:64], acc.Authority[:])
	binary.LittleEndian.PutUint64(data[64:72], acc.Amount)
	data[72] = byte(acc.State)
	return nil
}

// NewAccountData returns the data of an initialised account holding amount
// units of mint controlled by authority.
func NewAccountData(mint, authority crypto.PublicKey, amount uint64) []byte {
	data := make([]byte, AccountSize)
	acc := &Account{Mint: mint, Authority: authority, Amount: amount, State: StateInitialized}
	_ = acc.Pack(data)
	return data
}
