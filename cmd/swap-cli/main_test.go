package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/native/escrow"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "bogus")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Unknown command")
}

func TestKeygenWritesLoadableKeypair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.json")
	code, stdout, _ := runCLI(t, "keygen", "-out", path)
	require.Equal(t, 0, code)
	key, err := crypto.LoadKeypair(path)
	require.NoError(t, err)
	require.Contains(t, stdout, key.PublicKey().String())

	code, _, stderr := runCLI(t, "keygen", "-out", path)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "already exists")
}

func TestAuthorityMatchesEngine(t *testing.T) {
	code, stdout, _ := runCLI(t, "authority")
	require.Equal(t, 0, code)
	authority, _, err := crypto.DeriveAuthority([]byte(escrow.DefaultAuthoritySeed), escrow.DefaultProgramID)
	require.NoError(t, err)
	require.Contains(t, stdout, "Authority: "+authority.String())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	code, stdout, stderr := runCLI(t, "encode", "-kind", "settle", "-direction", "2", "-reserve", "75", "-a", "1,2", "-b", "9")
	require.Equal(t, 0, code, stderr)
	encoded := strings.TrimSpace(stdout)

	code, stdout, stderr = runCLI(t, "decode", encoded)
	require.Equal(t, 0, code, stderr)
	var view escrow.CommandView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	require.Equal(t, "settle", view.Kind)
	require.Equal(t, uint64(75), view.ReserveAmount)
	require.Equal(t, []uint64{1, 2}, view.LegAmountsA)
	require.Equal(t, []uint64{9}, view.LegAmountsB)

	code, _, _ = runCLI(t, "encode", "-kind", "commit", "-a", "1,2,3,4,5,6,7,8,9,10")
	require.Equal(t, 1, code)
	code, _, _ = runCLI(t, "decode", "zz")
	require.Equal(t, 1, code)
}

func TestRecordDecodes(t *testing.T) {
	rec := &escrow.Record{Status: escrow.StatusCommitted, LegCountA: 1, Initiator: crypto.PublicKey{1}, Counterparty: crypto.PublicKey{2}}
	rec.LegsA[0] = escrow.CustodyLeg{Custody: crypto.PublicKey{3}, Amount: 42}
	code, stdout, stderr := runCLI(t, "record", hex.EncodeToString(rec.Encode()))
	require.Equal(t, 0, code, stderr)
	var view escrow.RecordView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	require.Equal(t, "committed", view.Status)
	require.Equal(t, uint64(42), view.LegsA[0].Amount)
}

func writeFixtures(t *testing.T) (termsPath, keyPath, escrowKeyPath string, terms *escrow.Terms) {
	t.Helper()
	dir := t.TempDir()
	initiator, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	escrowKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	keyPath = filepath.Join(dir, "initiator.json")
	escrowKeyPath = filepath.Join(dir, "escrow.json")
	require.NoError(t, crypto.SaveKeypair(keyPath, initiator))
	require.NoError(t, crypto.SaveKeypair(escrowKeyPath, escrowKey))

	terms = &escrow.Terms{
		Initiator:    initiator.PublicKey(),
		Counterparty: crypto.PublicKey{7},
		Escrow:       escrowKey.PublicKey(),
		LegsA:        []escrow.CustodyLeg{{InitiatorAsset: crypto.PublicKey{8}, CounterpartyAsset: crypto.PublicKey{9}, Custody: crypto.PublicKey{10}, Amount: 5}},
	}
	raw, err := json.Marshal(terms)
	require.NoError(t, err)
	termsPath = filepath.Join(dir, "terms.json")
	require.NoError(t, os.WriteFile(termsPath, raw, 0o644))
	return termsPath, keyPath, escrowKeyPath, terms
}

func TestCommitSubmitsSignedTransaction(t *testing.T) {
	termsPath, keyPath, escrowKeyPath, terms := writeFixtures(t)
	submitNonce = func() uint64 { return 99 }
	t.Cleanup(func() { submitNonce = defaultNonce })
	t.Setenv(rpcTokenEnv, "tok")

	var (
		received   types.Transaction
		path, auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"txHash": "beef", "success": true})
	}))
	defer srv.Close()

	code, stdout, stderr := runCLI(t, "commit", "-terms", termsPath, "-key", keyPath, "-escrow-key", escrowKeyPath, "-rpc", srv.URL)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "commit submitted: beef")
	require.Equal(t, "/v1/transactions", path)
	require.Equal(t, "Bearer tok", auth)
	require.Equal(t, uint64(99), received.Nonce)
	require.Equal(t, escrow.DefaultProgramID, received.Instruction.ProgramID)
	signed, err := received.VerifySignatures()
	require.NoError(t, err)
	require.True(t, signed[terms.Initiator])
	require.True(t, signed[terms.Escrow])
}

func TestSubmitReportsRejection(t *testing.T) {
	termsPath, keyPath, _, _ := writeFixtures(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "errorCode": 8, "error": "terms mismatch"})
	}))
	defer srv.Close()

	code, _, stderr := runCLI(t, "cancel", "-terms", termsPath, "-key", keyPath, "-rpc", srv.URL)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "code 8")
	require.Contains(t, stderr, "terms mismatch")
}

func TestCommitRequiresEscrowKey(t *testing.T) {
	termsPath, keyPath, _, _ := writeFixtures(t)
	code, _, stderr := runCLI(t, "commit", "-terms", termsPath, "-key", keyPath, "-dry-run")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "-escrow-key")
}

func TestDryRunPrintsTransaction(t *testing.T) {
	termsPath, keyPath, _, terms := writeFixtures(t)
	code, stdout, stderr := runCLI(t, "cancel", "-terms", termsPath, "-key", keyPath, "-dry-run")
	require.Equal(t, 0, code, stderr)
	var tx types.Transaction
	require.NoError(t, json.Unmarshal([]byte(stdout), &tx))
	require.Equal(t, terms.Initiator, tx.Instruction.Accounts[0].PublicKey)
	require.True(t, tx.Instruction.Accounts[0].IsSigner)
	cmd, err := escrow.DecodeInstruction(tx.Instruction.Data)
	require.NoError(t, err)
	require.Equal(t, escrow.CommandCancel, cmd.Kind)
}
