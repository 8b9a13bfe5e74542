package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"multiswap/core/runtime"
	"multiswap/core/state"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/storage"
)

func wallet(key byte, lamports uint64, signer bool) *types.AccountInfo {
	return &types.AccountInfo{Key: crypto.PublicKey{key}, Lamports: lamports, IsSigner: signer, IsWritable: true}
}

func TestTransfer(t *testing.T) {
	from := wallet(1, 100, true)
	to := wallet(2, 5, false)
	require.NoError(t, Transfer(from, to, 40))
	require.Equal(t, uint64(60), from.Lamports)
	require.Equal(t, uint64(45), to.Lamports)
}

func TestTransferFailures(t *testing.T) {
	require.ErrorIs(t, Transfer(wallet(1, 100, false), wallet(2, 0, false), 1), ErrMissingSignature)
	require.ErrorIs(t, Transfer(wallet(1, 10, true), wallet(2, 0, false), 11), ErrInsufficientFunds)

	owned := wallet(1, 100, true)
	owned.Owner = crypto.PublicKey{0x99}
	require.ErrorIs(t, Transfer(owned, wallet(2, 0, false), 1), ErrNotSystemOwned)

	withData := wallet(1, 100, true)
	withData.Data = []byte{1}
	require.ErrorIs(t, Transfer(withData, wallet(2, 0, false), 1), ErrSourceCarriesData)

	full := wallet(2, ^uint64(0), false)
	require.ErrorIs(t, Transfer(wallet(1, 100, true), full, 1), ErrBalanceOverflow)
}

func TestCreateAccount(t *testing.T) {
	funder := wallet(1, 1_000, true)
	account := wallet(2, 0, true)
	owner := crypto.PublicKey{0x77}
	require.NoError(t, CreateAccount(funder, account, 300, 64, owner))
	require.Equal(t, uint64(700), funder.Lamports)
	require.Equal(t, uint64(300), account.Lamports)
	require.Len(t, account.Data, 64)
	require.Equal(t, owner, account.Owner)

	require.ErrorIs(t, CreateAccount(funder, account, 1, 1, owner), ErrAccountInUse)
	require.ErrorIs(t, CreateAccount(funder, wallet(3, 0, false), 1, 1, owner), ErrMissingSignature)
	require.ErrorIs(t, CreateAccount(funder, wallet(4, 0, true), 1, MaxAccountSpace+1, owner), ErrSpaceTooLarge)
}

func TestRentExemption(t *testing.T) {
	rent := Rent{LamportsPerByteYear: 10, ExemptionThreshold: 2}
	require.Equal(t, uint64((128+100)*20), rent.MinimumBalance(100))
	require.True(t, rent.IsExempt(4560, 100))
	require.False(t, rent.IsExempt(4559, 100))
	require.False(t, rent.IsExempt(1<<62, -1))
	require.Equal(t, DefaultRent().MinimumBalance(0), uint64(128*3480*2))
}

func TestProgramThroughRuntime(t *testing.T) {
	st := state.NewManager(storage.NewMemDB())
	rt := runtime.New(st, nil)
	rt.Register(ProgramID, "system", NewProgram())

	seed := make([]byte, 32)
	seed[0] = 9
	payer, err := crypto.PrivateKeyFromSeed(seed)
	require.NoError(t, err)
	seed[0] = 10
	fresh, err := crypto.PrivateKeyFromSeed(seed)
	require.NoError(t, err)
	require.NoError(t, st.PutAccount(payer.PublicKey(), &types.Account{Lamports: 10_000}))

	owner := crypto.PublicKey{0x42}
	tx := &types.Transaction{Instruction: NewCreateAccountInstruction(payer.PublicKey(), fresh.PublicKey(), 2_000, 16, owner)}
	require.NoError(t, tx.Sign(payer, fresh))
	_, err = rt.Execute(context.Background(), tx)
	require.NoError(t, err)

	created, err := st.GetAccount(fresh.PublicKey())
	require.NoError(t, err)
	require.Equal(t, owner, created.Owner)
	require.Len(t, created.Data, 16)

	dest := crypto.PublicKey{0x43}
	tx = &types.Transaction{Instruction: NewTransferInstruction(payer.PublicKey(), dest, 500), Nonce: 1}
	require.NoError(t, tx.Sign(payer))
	_, err = rt.Execute(context.Background(), tx)
	require.NoError(t, err)
	got, err := st.GetAccount(payer.PublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(7_500), got.Lamports)
}

func TestProgramRejectsBadData(t *testing.T) {
	p := NewProgram()
	err := p.Process(context.Background(), &runtime.Call{Data: []byte{1}})
	require.ErrorIs(t, err, ErrInvalidInstruction)
	err = p.Process(context.Background(), &runtime.Call{Data: []byte{9, 0, 0, 0}})
	require.ErrorIs(t, err, ErrInvalidInstruction)
}
