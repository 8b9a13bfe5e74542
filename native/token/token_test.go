package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"multiswap/core/runtime"
	"multiswap/core/state"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/native/system"
	"multiswap/storage"
)

var (
	mintX = crypto.PublicKey{0xA1}
	mintY = crypto.PublicKey{0xA2}
)

func tokenAccount(key byte, mint, authority crypto.PublicKey, amount uint64) *types.AccountInfo {
	return &types.AccountInfo{
		Key:        crypto.PublicKey{key},
		IsWritable: true,
		Owner:      ProgramID,
		Lamports:   1_000,
		Data:       NewAccountData(mint, authority, amount),
	}
}

func signer(key crypto.PublicKey) *types.AccountInfo {
	return &types.AccountInfo{Key: key, IsSigner: true}
}

func TestPackUnpack(t *testing.T) {
	data := NewAccountData(mintX, crypto.PublicKey{0x01}, 77)
	require.Len(t, data, AccountSize)
	acc, err := Unpack(data)
	require.NoError(t, err)
	require.Equal(t, &Account{Mint: mintX, Authority: crypto.PublicKey{0x01}, Amount: 77, State: StateInitialized}, acc)

	_, err = Unpack(data[:AccountSize-1])
	require.ErrorIs(t, err, ErrAccountDataTooSmall)
}

func TestTransfer(t *testing.T) {
	owner := crypto.PublicKey{0x01}
	src := tokenAccount(1, mintX, owner, 100)
	dst := tokenAccount(2, mintX, crypto.PublicKey{0x02}, 5)
	require.NoError(t, Transfer(src, dst, signer(owner), 60))

	got, err := Balance(src)
	require.NoError(t, err)
	require.Equal(t, uint64(40), got)
	got, err = Balance(dst)
	require.NoError(t, err)
	require.Equal(t, uint64(65), got)
}

func TestTransferFailures(t *testing.T) {
	owner := crypto.PublicKey{0x01}
	src := tokenAccount(1, mintX, owner, 100)

	require.ErrorIs(t, Transfer(src, tokenAccount(2, mintY, owner, 0), signer(owner), 1), ErrMintMismatch)
	require.ErrorIs(t, Transfer(src, tokenAccount(2, mintX, owner, 0), signer(crypto.PublicKey{0x09}), 1), ErrAuthorityMismatch)
	require.ErrorIs(t, Transfer(src, tokenAccount(2, mintX, owner, 0), &types.AccountInfo{Key: owner}, 1), ErrMissingSignature)
	require.ErrorIs(t, Transfer(src, tokenAccount(2, mintX, owner, 0), signer(owner), 101), ErrInsufficientFunds)
	require.ErrorIs(t, Transfer(src, tokenAccount(2, mintX, owner, ^uint64(0)), signer(owner), 1), ErrBalanceOverflow)

	foreign := tokenAccount(3, mintX, owner, 0)
	foreign.Owner = crypto.PublicKey{0x55}
	require.ErrorIs(t, Transfer(src, foreign, signer(owner), 1), ErrIncorrectOwner)

	blank := tokenAccount(4, mintX, owner, 0)
	blank.Data = make([]byte, AccountSize)
	require.ErrorIs(t, Transfer(src, blank, signer(owner), 1), ErrUninitialized)
}

func TestSetAuthorityAndClose(t *testing.T) {
	owner := crypto.PublicKey{0x01}
	next := crypto.PublicKey{0x02}
	custody := tokenAccount(1, mintX, owner, 0)
	refund := &types.AccountInfo{Key: crypto.PublicKey{0x03}, IsWritable: true, Lamports: 10}

	require.ErrorIs(t, SetAuthority(custody, &types.AccountInfo{Key: owner}, next), ErrMissingSignature)
	require.NoError(t, SetAuthority(custody, signer(owner), next))
	require.ErrorIs(t, Close(custody, refund, signer(owner)), ErrAuthorityMismatch)
	require.NoError(t, Close(custody, refund, signer(next)))
	require.Equal(t, uint64(1_010), refund.Lamports)
	require.Zero(t, custody.Lamports)
	require.Empty(t, custody.Data)
	require.Equal(t, system.ProgramID, custody.Owner)
}

func TestCloseRequiresZeroBalance(t *testing.T) {
	owner := crypto.PublicKey{0x01}
	custody := tokenAccount(1, mintX, owner, 3)
	refund := &types.AccountInfo{Key: crypto.PublicKey{0x03}, IsWritable: true}
	require.ErrorIs(t, Close(custody, refund, signer(owner)), ErrNonZeroBalance)
}

func TestInitializeAccount(t *testing.T) {
	info := &types.AccountInfo{Key: crypto.PublicKey{0x07}, Owner: ProgramID, Data: make([]byte, AccountSize)}
	require.NoError(t, InitializeAccount(info, mintY, crypto.PublicKey{0x08}))
	acc, err := Unpack(info.Data)
	require.NoError(t, err)
	require.Equal(t, mintY, acc.Mint)
	require.ErrorIs(t, InitializeAccount(info, mintY, crypto.PublicKey{0x08}), ErrAlreadyInitialized)
}

func TestProgramThroughRuntime(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	rt := runtime.New(st, nil)
	rt.Register(ProgramID, "token", NewProgram())

	seed := make([]byte, 32)
	seed[0] = 3
	owner, err := crypto.PrivateKeyFromSeed(seed)
	require.NoError(t, err)
	src := crypto.PublicKey{0x11}
	dst := crypto.PublicKey{0x12}
	require.NoError(t, st.PutAccount(src, &types.Account{Owner: ProgramID, Lamports: 100, Data: NewAccountData(mintX, owner.PublicKey(), 50)}))
	require.NoError(t, st.PutAccount(dst, &types.Account{Owner: ProgramID, Lamports: 100, Data: NewAccountData(mintX, crypto.PublicKey{0x13}, 0)}))

	tx := &types.Transaction{Instruction: NewTransferInstruction(src, dst, owner.PublicKey(), 20)}
	require.NoError(t, tx.Sign(owner))
	_, err = rt.Execute(context.Background(), tx)
	require.NoError(t, err)

	stored, err := st.GetAccount(dst)
	require.NoError(t, err)
	acc, err := Unpack(stored.Data)
	require.NoError(t, err)
	require.Equal(t, uint64(20), acc.Amount)

	tx = &types.Transaction{Instruction: NewSetAuthorityInstruction(src, owner.PublicKey(), crypto.PublicKey{0x14}), Nonce: 1}
	require.NoError(t, tx.Sign(owner))
	_, err = rt.Execute(context.Background(), tx)
	require.NoError(t, err)
	stored, err = st.GetAccount(src)
	require.NoError(t, err)
	acc, err = Unpack(stored.Data)
	require.NoError(t, err)
	require.Equal(t, crypto.PublicKey{0x14}, acc.Authority)
}
