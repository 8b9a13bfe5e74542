package token

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"multiswap/core/runtime"
	"multiswap/core/types"
	"multiswap/crypto"
)

// Instruction tags, one byte each.
const (
	InstructionInitializeAccount uint8 = 1
	InstructionTransfer          uint8 = 3
	InstructionSetAuthority      uint8 = 6
	InstructionCloseAccount      uint8 = 9
)

// AuthorityAccountOwner is the only authority type supported by SetAuthority.
const AuthorityAccountOwner uint8 = 2

// Program hosts the token instructions in the runtime.
type Program struct{}

// NewProgram returns the token program.
func NewProgram() *Program { return &Program{} }

func (p *Program) Process(_ context.Context, call *runtime.Call) error {
	if len(call.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidInstruction)
	}
	body := call.Data[1:]
	accounts := call.Accounts
	switch call.Data[0] {
	case InstructionInitializeAccount:
		if len(accounts) < 3 {
			return ErrNotEnoughAccounts
		}
		return InitializeAccount(accounts[0], accounts[1].Key, accounts[2].Key)
	case InstructionTransfer:
		if len(body) < 8 {
			return fmt.Errorf("%w: transfer body too short", ErrInvalidInstruction)
		}
		if len(accounts) < 3 {
			return ErrNotEnoughAccounts
		}
		amount := binary.LittleEndian.Uint64(body[:8])
		if err := Transfer(accounts[0], accounts[1], accounts[2], amount); err != nil {
			return err
		}
		call.Log().Debug("token transfer",
			slog.String("source", accounts[0].Key.String()),
			slog.String("destination", accounts[1].Key.String()),
			slog.Uint64("amount", amount))
		return nil
	case InstructionSetAuthority:
		if len(body) < 2+crypto.PublicKeySize {
			return fmt.Errorf("%w: set authority body too short", ErrInvalidInstruction)
		}
		if body[0] != AuthorityAccountOwner || body[1] != 1 {
			return fmt.Errorf("%w: type %d", ErrUnsupportedAuthority, body[0])
		}
		if len(accounts) < 2 {
			return ErrNotEnoughAccounts
		}
		newAuthority, err := crypto.PublicKeyFromBytes(body[2 : 2+crypto.PublicKeySize])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
		}
		return SetAuthority(accounts[0], accounts[1], newAuthority)
	case InstructionCloseAccount:
		if len(accounts) < 3 {
			return ErrNotEnoughAccounts
		}
		return Close(accounts[0], accounts[1], accounts[2])
	default:
		return fmt.Errorf("%w: unknown tag %d", ErrInvalidInstruction, call.Data[0])
	}
}

// NewInitializeAccountInstruction initialises account for mint under authority.
func NewInitializeAccountInstruction(account, mint, authority crypto.PublicKey) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: account, IsWritable: true},
			{PublicKey: mint},
			{PublicKey: authority},
		},
		Data: []byte{InstructionInitializeAccount},
	}
}

// NewTransferInstruction moves amount units from source to destination.
func NewTransferInstruction(source, destination, authority crypto.PublicKey, amount uint64) types.Instruction {
	data := make([]byte, 9)
	data[0] = InstructionTransfer
	binary.LittleEndian.PutUint64(data[1:], amount)
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: source, IsWritable: true},
			{PublicKey: destination, IsWritable: true},
			{PublicKey: authority, IsSigner: true},
		},
		Data: data,
	}
}

// NewSetAuthorityInstruction reassigns control of account.
func NewSetAuthorityInstruction(account, current, newAuthority crypto.PublicKey) types.Instruction {
	data := make([]byte, 3+crypto.PublicKeySize)
	data[0] = InstructionSetAuthority
	data[1] = AuthorityAccountOwner
	data[2] = 1
	copy(data[3:], newAuthority[:])
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: account, IsWritable: true},
			{PublicKey: current, IsSigner: true},
		},
		Data: data,
	}
}

// NewCloseAccountInstruction closes account, refunding its lamports.
func NewCloseAccountInstruction(account, refund, authority crypto.PublicKey) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: account, IsWritable: true},
			{PublicKey: refund, IsWritable: true},
			{PublicKey: authority, IsSigner: true},
		},
		Data: []byte{InstructionCloseAccount},
	}
}
