package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"multiswap/core/events"
	"multiswap/core/state"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/storage"
)

var testProgramID = crypto.PublicKey{0xAA}

type programFunc func(ctx context.Context, call *Call) error

func (f programFunc) Process(ctx context.Context, call *Call) error { return f(ctx, call) }

type codedProgram struct {
	programFunc
}

var errCoded = errors.New("coded failure")

func (codedProgram) ErrorCode(err error) uint32 {
	if errors.Is(err, errCoded) {
		return 7
	}
	return 0
}

type testEvent struct{ kind string }

func (e testEvent) EventType() string { return e.kind }

func (e testEvent) Event() *types.Event {
	return &types.Event{Type: e.kind, Attributes: map[string]string{"k": "v"}}
}

type recordingEmitter struct{ got []events.Event }

func (r *recordingEmitter) Emit(evt events.Event) { r.got = append(r.got, evt) }

func mustKey(t *testing.T, b byte) *crypto.PrivateKey {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = b
	key, err := crypto.PrivateKeyFromSeed(seed)
	require.NoError(t, err)
	return key
}

func newTestRuntime(t *testing.T, program Program) (*Runtime, *state.Manager) {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	rt := New(st, nil)
	rt.Register(testProgramID, "test", program)
	return rt, st
}

func transferTx(t *testing.T, from *crypto.PrivateKey, to crypto.PublicKey, nonce uint64) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		Instruction: types.Instruction{
			ProgramID: testProgramID,
			Accounts: []types.AccountMeta{
				{PublicKey: from.PublicKey(), IsSigner: true, IsWritable: true},
				{PublicKey: to, IsWritable: true},
			},
			Data: []byte{10},
		},
		Nonce: nonce,
	}
	require.NoError(t, tx.Sign(from))
	return tx
}

func moveLamports(_ context.Context, call *Call) error {
	amount := uint64(call.Data[0])
	if call.Accounts[0].Lamports < amount {
		return errors.New("insufficient")
	}
	call.Accounts[0].Lamports -= amount
	call.Accounts[1].Lamports += amount
	call.Emit(testEvent{kind: "moved"})
	return nil
}

func TestExecuteCommitsWritableAccountsAndEvents(t *testing.T) {
	rt, st := newTestRuntime(t, programFunc(moveLamports))
	sink := &recordingEmitter{}
	rt.Subscribe(sink)
	alice := mustKey(t, 1)
	bob := crypto.PublicKey{0x0B}
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))

	receipt, err := rt.Execute(context.Background(), transferTx(t, alice, bob, 1))
	require.NoError(t, err)
	require.True(t, receipt.Success)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, "moved", receipt.Events[0].Type)
	require.Len(t, sink.got, 1)

	a, err := st.GetAccount(alice.PublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(90), a.Lamports)
	b, err := st.GetAccount(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(10), b.Lamports)
}

func TestExecuteRejectsReplay(t *testing.T) {
	rt, st := newTestRuntime(t, programFunc(moveLamports))
	alice := mustKey(t, 1)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))
	tx := transferTx(t, alice, crypto.PublicKey{0x0B}, 1)

	_, err := rt.Execute(context.Background(), tx)
	require.NoError(t, err)
	receipt, err := rt.Execute(context.Background(), tx)
	require.ErrorIs(t, err, ErrDuplicateTransaction)
	require.Equal(t, CodeDuplicateTransaction, receipt.ErrorCode)
}

func TestExecuteProgramErrorDiscardsEffects(t *testing.T) {
	program := programFunc(func(ctx context.Context, call *Call) error {
		call.Accounts[0].Lamports -= 5
		call.Accounts[1].Lamports += 5
		call.Emit(testEvent{kind: "never"})
		return errors.New("boom")
	})
	rt, st := newTestRuntime(t, program)
	sink := &recordingEmitter{}
	rt.Subscribe(sink)
	alice := mustKey(t, 1)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))

	receipt, err := rt.Execute(context.Background(), transferTx(t, alice, crypto.PublicKey{0x0B}, 1))
	require.Error(t, err)
	require.False(t, receipt.Success)
	require.Equal(t, CodeUnknown, receipt.ErrorCode)
	require.Empty(t, sink.got)

	a, err := st.GetAccount(alice.PublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(100), a.Lamports)
}

func TestExecuteUsesProgramErrorCodes(t *testing.T) {
	rt, st := newTestRuntime(t, codedProgram{programFunc(func(context.Context, *Call) error {
		return errCoded
	})})
	alice := mustKey(t, 1)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))

	receipt, err := rt.Execute(context.Background(), transferTx(t, alice, crypto.PublicKey{0x0B}, 1))
	require.ErrorIs(t, err, errCoded)
	require.Equal(t, uint32(7), receipt.ErrorCode)
	require.Equal(t, uint32(7), ErrorCode(err))
}

func TestExecuteRecoversPanics(t *testing.T) {
	rt, st := newTestRuntime(t, programFunc(func(_ context.Context, call *Call) error {
		call.Accounts[0].Lamports = 0
		var buf []byte
		_ = buf[4]
		return nil
	}))
	alice := mustKey(t, 1)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))

	receipt, err := rt.Execute(context.Background(), transferTx(t, alice, crypto.PublicKey{0x0B}, 1))
	require.ErrorIs(t, err, ErrProgramFault)
	require.Equal(t, CodeProgramFault, receipt.ErrorCode)
	a, err := st.GetAccount(alice.PublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(100), a.Lamports)
}

func TestExecuteRejectsUnbalancedLamports(t *testing.T) {
	rt, st := newTestRuntime(t, programFunc(func(_ context.Context, call *Call) error {
		call.Accounts[1].Lamports += 1
		return nil
	}))
	alice := mustKey(t, 1)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))

	_, err := rt.Execute(context.Background(), transferTx(t, alice, crypto.PublicKey{0x0B}, 1))
	require.ErrorIs(t, err, ErrUnbalancedTransaction)
}

func TestExecuteRejectsReadonlyWrites(t *testing.T) {
	rt, st := newTestRuntime(t, programFunc(func(_ context.Context, call *Call) error {
		call.Accounts[1].Data = []byte{1}
		return nil
	}))
	alice := mustKey(t, 1)
	other := crypto.PublicKey{0x0C}
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))
	tx := &types.Transaction{Instruction: types.Instruction{
		ProgramID: testProgramID,
		Accounts: []types.AccountMeta{
			{PublicKey: alice.PublicKey(), IsSigner: true, IsWritable: true},
			{PublicKey: other},
		},
	}}
	require.NoError(t, tx.Sign(alice))

	_, err := rt.Execute(context.Background(), tx)
	require.ErrorIs(t, err, ErrReadonlyModified)
}

func TestExecuteSignatureChecks(t *testing.T) {
	rt, st := newTestRuntime(t, programFunc(moveLamports))
	alice := mustKey(t, 1)
	mallory := mustKey(t, 2)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))

	unsigned := transferTx(t, alice, crypto.PublicKey{0x0B}, 1)
	unsigned.Signatures = nil
	_, err := rt.Execute(context.Background(), unsigned)
	require.ErrorIs(t, err, ErrMissingSignature)

	forged := transferTx(t, alice, crypto.PublicKey{0x0B}, 2)
	forged.Signatures[0].Signature = mallory.Sign([]byte("other"))
	_, err = rt.Execute(context.Background(), forged)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestExecuteUnknownProgram(t *testing.T) {
	rt, _ := newTestRuntime(t, programFunc(moveLamports))
	alice := mustKey(t, 1)
	tx := transferTx(t, alice, crypto.PublicKey{0x0B}, 1)
	tx.Instruction.ProgramID = crypto.PublicKey{0xEE}
	receipt, err := rt.Execute(context.Background(), tx)
	require.ErrorIs(t, err, ErrUnknownProgram)
	require.Equal(t, CodeUnknownProgram, receipt.ErrorCode)
}

func TestDuplicateAccountsShareBuffer(t *testing.T) {
	var same bool
	rt, st := newTestRuntime(t, programFunc(func(_ context.Context, call *Call) error {
		same = call.Accounts[0] == call.Accounts[1]
		return nil
	}))
	alice := mustKey(t, 1)
	require.NoError(t, st.PutAccount(alice.PublicKey(), &types.Account{Lamports: 100}))
	_, err := rt.Execute(context.Background(), transferTx(t, alice, alice.PublicKey(), 1))
	require.NoError(t, err)
	require.True(t, same)
}
