package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"multiswap/crypto"
	"multiswap/storage"
)

var (
	accountPrefix = []byte("account:")
	metaPrefix    = []byte("meta:")
)

// Manager reads and writes ledger accounts on top of a key-value database.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(key crypto.PublicKey) []byte {
	buf := make([]byte, len(accountPrefix)+crypto.PublicKeySize)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], key[:])
	return ethcrypto.Keccak256(buf)
}

func metaKey(name string) []byte {
	buf := make([]byte, len(metaPrefix)+len(name))
	copy(buf, metaPrefix)
	copy(buf[len(metaPrefix):], name)
	return ethcrypto.Keccak256(buf)
}

// SetMeta stores an opaque value under a named metadata slot.
func (m *Manager) SetMeta(name string, value []byte) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	return m.db.Put(metaKey(name), value)
}

// Meta returns the value stored under name and whether it exists.
func (m *Manager) Meta(name string) ([]byte, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, errNilDatabase
	}
	value, err := m.db.Get(metaKey(name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("state: read meta %s: %w", name, err)
	}
	return value, true, nil
}

var errNilDatabase = errors.New("state: database not configured")
