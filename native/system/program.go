package system

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"multiswap/core/runtime"
	"multiswap/core/types"
	"multiswap/crypto"
)

// Instruction tags, encoded as a little-endian u32.
const (
	InstructionCreateAccount uint32 = 0
	InstructionTransfer      uint32 = 2
)

// Program hosts the system instructions in the runtime.
type Program struct{}

// NewProgram returns the system program.
func NewProgram() *Program { return &Program{} }

func (p *Program) Process(_ context.Context, call *runtime.Call) error {
	if len(call.Data) < 4 {
		return fmt.Errorf("%w: missing tag", ErrInvalidInstruction)
	}
	tag := binary.LittleEndian.Uint32(call.Data[:4])
	body := call.Data[4:]
	switch tag {
	case InstructionCreateAccount:
		if len(body) < 8+8+crypto.PublicKeySize {
			return fmt.Errorf("%w: create account body too short", ErrInvalidInstruction)
		}
		if len(call.Accounts) < 2 {
			return ErrNotEnoughAccounts
		}
		lamports := binary.LittleEndian.Uint64(body[0:8])
		space := binary.LittleEndian.Uint64(body[8:16])
		owner, err := crypto.PublicKeyFromBytes(body[16 : 16+crypto.PublicKeySize])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
		}
		if err := CreateAccount(call.Accounts[0], call.Accounts[1], lamports, space, owner); err != nil {
			return err
		}
		call.Log().Info("account created",
			slog.String("account", call.Accounts[1].Key.String()),
			slog.Uint64("space", space))
		return nil
	case InstructionTransfer:
		if len(body) < 8 {
			return fmt.Errorf("%w: transfer body too short", ErrInvalidInstruction)
		}
		if len(call.Accounts) < 2 {
			return ErrNotEnoughAccounts
		}
		return Transfer(call.Accounts[0], call.Accounts[1], binary.LittleEndian.Uint64(body[:8]))
	default:
		return fmt.Errorf("%w: unknown tag %d", ErrInvalidInstruction, tag)
	}
}

// NewTransferInstruction builds a transfer of amount lamports.
func NewTransferInstruction(from, to crypto.PublicKey, amount uint64) types.Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], InstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:12], amount)
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// NewCreateAccountInstruction builds an account creation funded by funder.
func NewCreateAccountInstruction(funder, account crypto.PublicKey, lamports, space uint64, owner crypto.PublicKey) types.Instruction {
	data := make([]byte, 4+8+8+crypto.PublicKeySize)
	binary.LittleEndian.PutUint32(data[0:4], InstructionCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:], owner[:])
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: funder, IsSigner: true, IsWritable: true},
			{PublicKey: account, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}
