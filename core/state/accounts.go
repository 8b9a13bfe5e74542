package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/storage"
)

type storedAccount struct {
	Owner      []byte
	Lamports   uint64
	Data       []byte
	Executable bool
}

// GetAccount loads the account stored under key. Unknown keys resolve to an
// empty account owned by the zero (system) address, so callers can credit
// fresh addresses without a separate existence check.
func (m *Manager) GetAccount(key crypto.PublicKey) (*types.Account, error) {
	if m == nil || m.db == nil {
		return nil, errNilDatabase
	}
	raw, err := m.db.Get(accountKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return &types.Account{Data: []byte{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: read account %s: %w", key, err)
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", key, err)
	}
	owner, err := crypto.PublicKeyFromBytes(stored.Owner)
	if err != nil {
		return nil, fmt.Errorf("state: decode account %s owner: %w", key, err)
	}
	if stored.Data == nil {
		stored.Data = []byte{}
	}
	return &types.Account{
		Owner:      owner,
		Lamports:   stored.Lamports,
		Data:       stored.Data,
		Executable: stored.Executable,
	}, nil
}

// HasAccount reports whether a non-empty account is stored under key.
func (m *Manager) HasAccount(key crypto.PublicKey) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDatabase
	}
	return m.db.Has(accountKey(key))
}

// PutAccount persists the account under key. Accounts left with no lamports
// are deleted whatever data they still carry, which is how closed escrow and
// custody accounts disappear from the ledger.
func (m *Manager) PutAccount(key crypto.PublicKey, account *types.Account) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	if account == nil {
		return fmt.Errorf("state: nil account for %s", key)
	}
	if account.IsEmpty() {
		return m.db.Delete(accountKey(key))
	}
	encoded, err := encodeAccount(key, account)
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(key), encoded)
}

// CommitAccounts writes every account in a single batch so a failure leaves
// the store exactly as it was. Empty accounts are deleted as in PutAccount.
func (m *Manager) CommitAccounts(accounts map[crypto.PublicKey]*types.Account) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	batch := m.db.NewBatch()
	for key, account := range accounts {
		if account == nil {
			return fmt.Errorf("state: nil account for %s", key)
		}
		if account.IsEmpty() {
			batch.Delete(accountKey(key))
			continue
		}
		encoded, err := encodeAccount(key, account)
		if err != nil {
			return err
		}
		batch.Put(accountKey(key), encoded)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit accounts: %w", err)
	}
	return nil
}

func encodeAccount(key crypto.PublicKey, account *types.Account) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&storedAccount{
		Owner:      account.Owner.Bytes(),
		Lamports:   account.Lamports,
		Data:       account.Data,
		Executable: account.Executable,
	})
	if err != nil {
		return nil, fmt.Errorf("state: encode account %s: %w", key, err)
	}
	return encoded, nil
}
