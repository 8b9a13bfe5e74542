package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/native/escrow"
)

var (
	submitNonce = defaultNonce
	httpClient  = &http.Client{Timeout: 15 * time.Second}
)

func defaultNonce() uint64 { return uint64(time.Now().UnixNano()) }

func rpcFlag(fs *flag.FlagSet) *string {
	def := strings.TrimSpace(os.Getenv(rpcURLEnv))
	if def == "" {
		def = defaultRPC
	}
	return fs.String("rpc", def, "node RPC base URL")
}

func doJSON(method, url string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(os.Getenv(rpcTokenEnv)); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

type receiptReply struct {
	TxHash    string         `json:"txHash"`
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	ErrorCode uint32         `json:"errorCode"`
	Events    []*types.Event `json:"events"`
}

func buildInstruction(kind string, cfg escrow.Config, terms *escrow.Terms) (types.Instruction, error) {
	switch kind {
	case "commit":
		return escrow.NewCommitInstruction(cfg, terms)
	case "settle":
		return escrow.NewSettleInstruction(cfg, terms)
	case "cancel":
		return escrow.NewCancelInstruction(cfg, terms)
	}
	return types.Instruction{}, fmt.Errorf("unknown operation %q", kind)
}

func runSubmit(kind string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(kind, stderr)
	termsPath := fs.String("terms", "", "JSON terms file")
	keyPath := fs.String("key", "", "keypair file of the signing party")
	escrowKeyPath := fs.String("escrow-key", "", "keypair file of the escrow storage account (commit only)")
	program := programFlag(fs)
	seed := fs.String("seed", escrow.DefaultAuthoritySeed, "authority seed")
	rpcURL := rpcFlag(fs)
	dryRun := fs.Bool("dry-run", false, "print the signed transaction instead of submitting it")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *termsPath == "" || *keyPath == "" {
		return fail(stderr, errors.New("-terms and -key are required"))
	}
	if kind == "commit" && *escrowKeyPath == "" {
		return fail(stderr, errors.New("commit requires -escrow-key"))
	}
	cfg, err := escrowConfig(*program, *seed)
	if err != nil {
		return fail(stderr, err)
	}
	terms, err := loadTerms(*termsPath)
	if err != nil {
		return fail(stderr, err)
	}
	signer, err := crypto.LoadKeypair(*keyPath)
	if err != nil {
		return fail(stderr, fmt.Errorf("load key: %w", err))
	}
	signers := []*crypto.PrivateKey{signer}
	if kind == "commit" {
		escrowKey, err := crypto.LoadKeypair(*escrowKeyPath)
		if err != nil {
			return fail(stderr, fmt.Errorf("load escrow key: %w", err))
		}
		if escrowKey.PublicKey() != terms.Escrow {
			return fail(stderr, fmt.Errorf("escrow key %s does not match terms escrow %s", escrowKey.PublicKey(), terms.Escrow))
		}
		signers = append(signers, escrowKey)
	}
	ix, err := buildInstruction(kind, cfg, terms)
	if err != nil {
		return fail(stderr, err)
	}
	tx := &types.Transaction{Instruction: ix, Nonce: submitNonce()}
	if err := tx.Sign(signers...); err != nil {
		return fail(stderr, err)
	}
	if *dryRun {
		if err := printJSON(stdout, tx); err != nil {
			return fail(stderr, err)
		}
		return 0
	}

	var reply receiptReply
	status, err := doJSON(http.MethodPost, strings.TrimRight(*rpcURL, "/")+"/v1/transactions", tx, &reply)
	if err != nil {
		return fail(stderr, err)
	}
	if status != http.StatusOK || !reply.Success {
		return fail(stderr, fmt.Errorf("%s rejected (code %d): %s", kind, reply.ErrorCode, reply.Error))
	}
	fmt.Fprintf(stdout, "%s submitted: %s\n", kind, reply.TxHash)
	for _, evt := range reply.Events {
		fmt.Fprintf(stdout, "  event %s termsHash=%s\n", evt.Type, evt.Attributes["termsHash"])
	}
	return 0
}

func runShowEscrow(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow", stderr)
	rpcURL := rpcFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		return fail(stderr, errors.New("expected an escrow address"))
	}
	key, err := crypto.ParsePublicKey(fs.Arg(0))
	if err != nil {
		return fail(stderr, err)
	}
	var reply json.RawMessage
	status, err := doJSON(http.MethodGet, strings.TrimRight(*rpcURL, "/")+"/v1/escrows/"+key.String(), nil, &reply)
	if err != nil {
		return fail(stderr, err)
	}
	if status != http.StatusOK {
		return fail(stderr, fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(reply))))
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply, "", "  "); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, pretty.String())
	return 0
}
