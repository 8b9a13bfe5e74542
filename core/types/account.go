package types

import "multiswap/crypto"

// Account is the durable state stored under a ledger address. Only the owning
// program may rewrite Data or debit Lamports; anyone may credit Lamports.
type Account struct {
	Owner      crypto.PublicKey `json:"owner"`
	Lamports   uint64           `json:"lamports"`
	Data       []byte           `json:"data"`
	Executable bool             `json:"executable"`
}

// Clone returns a deep copy so callers can mutate the result without affecting
// the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Data = append([]byte(nil), a.Data...)
	return &clone
}

// IsEmpty reports whether the account holds no lamports. Such accounts are
// reclaimed by the state manager together with whatever data they carried,
// which is how a drained escrow or closed custody account leaves the ledger.
func (a *Account) IsEmpty() bool {
	return a == nil || (a.Lamports == 0 && !a.Executable)
}

// AccountInfo is the borrowed view of an account handed to a program for the
// duration of a single call. Programs mutate Lamports and Data in place; the
// host writes writable accounts back only if the whole call succeeds.
type AccountInfo struct {
	Key        crypto.PublicKey
	IsSigner   bool
	IsWritable bool
	Owner      crypto.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// NewAccountInfo builds a call view over a copy of acc.
func NewAccountInfo(key crypto.PublicKey, isSigner, isWritable bool, acc *Account) *AccountInfo {
	info := &AccountInfo{Key: key, IsSigner: isSigner, IsWritable: isWritable}
	if acc != nil {
		info.Owner = acc.Owner
		info.Lamports = acc.Lamports
		info.Data = append([]byte(nil), acc.Data...)
		info.Executable = acc.Executable
	}
	return info
}

// Account returns the durable form of the view.
func (ai *AccountInfo) Account() *Account {
	if ai == nil {
		return nil
	}
	return &Account{
		Owner:      ai.Owner,
		Lamports:   ai.Lamports,
		Data:       append([]byte(nil), ai.Data...),
		Executable: ai.Executable,
	}
}
