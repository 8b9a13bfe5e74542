package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/storage"
)

func TestGetAccountUnknownIsEmpty(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	acc, err := m.GetAccount(crypto.PublicKey{0x01})
	require.NoError(t, err)
	require.True(t, acc.IsEmpty())
	require.True(t, acc.Owner.IsZero())
}

func TestPutGetAccountRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := crypto.PublicKey{0x02}
	owner := crypto.PublicKey{0x03}
	want := &types.Account{Owner: owner, Lamports: 42, Data: []byte{1, 2, 3}}
	require.NoError(t, m.PutAccount(key, want))

	got, err := m.GetAccount(key)
	require.NoError(t, err)
	require.Equal(t, want, got)

	ok, err := m.HasAccount(key)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPutEmptyAccountDeletes(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := crypto.PublicKey{0x04}
	require.NoError(t, m.PutAccount(key, &types.Account{Lamports: 5}))
	require.NoError(t, m.PutAccount(key, &types.Account{Owner: crypto.PublicKey{0x09}}))

	ok, err := m.HasAccount(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutAccountWithoutLamportsDropsData(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := crypto.PublicKey{0x05}
	require.NoError(t, m.PutAccount(key, &types.Account{Lamports: 5, Data: []byte{1}}))
	require.NoError(t, m.PutAccount(key, &types.Account{Owner: crypto.PublicKey{0x09}, Data: make([]byte, 64)}))

	ok, err := m.HasAccount(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMetaRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	_, ok, err := m.Meta("genesis")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.SetMeta("genesis", []byte("done")))
	value, ok, err := m.Meta("genesis")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("done"), value)
}

func TestCommitAccountsBatch(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	keep := crypto.PublicKey{0x05}
	drop := crypto.PublicKey{0x06}
	require.NoError(t, m.PutAccount(drop, &types.Account{Lamports: 1, Data: []byte{7}}))

	err := m.CommitAccounts(map[crypto.PublicKey]*types.Account{
		keep: {Lamports: 10, Data: []byte{1}},
		drop: {Data: make([]byte, 8)},
	})
	require.NoError(t, err)

	got, err := m.GetAccount(keep)
	require.NoError(t, err)
	require.Equal(t, uint64(10), got.Lamports)
	ok, err := m.HasAccount(drop)
	require.NoError(t, err)
	require.False(t, ok)
}
