package escrow

import (
	"errors"

	"multiswap/native/common"
)

var (
	ErrMalformedInstruction = errors.New("escrow: malformed instruction")
	ErrMissingAuthorization = errors.New("escrow: missing required authorization")
	ErrStorageNotExempt     = errors.New("escrow: storage not rent exempt")
	ErrStorageUndersized    = errors.New("escrow: storage smaller than the maximum record")
	ErrAlreadyCommitted     = errors.New("escrow: escrow already committed")
	ErrNotCommitted         = errors.New("escrow: escrow not committed")
	ErrTermsMismatch        = errors.New("escrow: terms do not match the commitment")
	ErrArithmeticOverflow   = errors.New("escrow: arithmetic overflow")
	ErrCollaboratorFailure  = errors.New("escrow: collaborator call failed")
	ErrNotEnoughAccounts    = errors.New("escrow: not enough account keys")
	ErrIncorrectProgramID   = errors.New("escrow: incorrect program id")
	ErrCorruptRecord        = errors.New("escrow: corrupt record")
)

// Stable error codes reported in receipts. Zero is reserved for success.
const (
	CodeMalformedInstruction uint32 = 1
	CodeMissingAuthorization uint32 = 2
	CodeStorageNotExempt     uint32 = 3
	CodeStorageUndersized    uint32 = 4
	CodeAlreadyCommitted     uint32 = 5
	CodeNotCommitted         uint32 = 6
	CodeTermsMismatch        uint32 = 7
	CodeArithmeticOverflow   uint32 = 8
	CodeCollaboratorFailure  uint32 = 9
	CodeNotEnoughAccounts    uint32 = 10
	CodeIncorrectProgramID   uint32 = 11
	CodeCorruptRecord        uint32 = 12
	CodePaused               uint32 = 13
)

var errorCodes = []struct {
	err  error
	code uint32
}{
	{ErrMalformedInstruction, CodeMalformedInstruction},
	{ErrMissingAuthorization, CodeMissingAuthorization},
	{ErrStorageNotExempt, CodeStorageNotExempt},
	{ErrStorageUndersized, CodeStorageUndersized},
	{ErrAlreadyCommitted, CodeAlreadyCommitted},
	{ErrNotCommitted, CodeNotCommitted},
	{ErrTermsMismatch, CodeTermsMismatch},
	{ErrArithmeticOverflow, CodeArithmeticOverflow},
	{ErrCollaboratorFailure, CodeCollaboratorFailure},
	{ErrNotEnoughAccounts, CodeNotEnoughAccounts},
	{ErrIncorrectProgramID, CodeIncorrectProgramID},
	{ErrCorruptRecord, CodeCorruptRecord},
	{common.ErrModulePaused, CodePaused},
}

// ErrorCode maps an escrow error onto its stable code, or zero when err is not
// an escrow error.
func ErrorCode(err error) uint32 {
	for _, candidate := range errorCodes {
		if errors.Is(err, candidate.err) {
			return candidate.code
		}
	}
	return 0
}
