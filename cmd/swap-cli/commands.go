package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"multiswap/crypto"
	"multiswap/native/escrow"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	out := fs.String("out", "wallet.json", "keypair file to write")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		return fail(stderr, fmt.Errorf("%s already exists", *out))
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return fail(stderr, err)
	}
	if err := crypto.SaveKeypair(*out, key); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Wrote keypair to %s\n", *out)
	fmt.Fprintf(stdout, "Address: %s\n", key.PublicKey())
	return 0
}

func programFlag(fs *flag.FlagSet) *string {
	return fs.String("program", escrow.DefaultProgramID.String(), "escrow program id")
}

func escrowConfig(program, seed string) (escrow.Config, error) {
	cfg := escrow.DefaultConfig()
	id, err := crypto.ParsePublicKey(strings.TrimSpace(program))
	if err != nil {
		return cfg, fmt.Errorf("program: %w", err)
	}
	cfg.ProgramID = id
	if s := strings.TrimSpace(seed); s != "" {
		cfg.AuthoritySeed = s
	}
	return cfg, nil
}

func runAuthority(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("authority", stderr)
	program := programFlag(fs)
	seed := fs.String("seed", escrow.DefaultAuthoritySeed, "authority seed")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := escrowConfig(*program, *seed)
	if err != nil {
		return fail(stderr, err)
	}
	authority, bump, err := crypto.DeriveAuthority([]byte(cfg.AuthoritySeed), cfg.ProgramID)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Authority: %s\nBump: %d\n", authority, bump)
	return 0
}

func parseKind(raw string) (escrow.CommandKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "commit":
		return escrow.CommandCommit, nil
	case "settle":
		return escrow.CommandSettle, nil
	case "cancel":
		return escrow.CommandCancel, nil
	}
	return 0, fmt.Errorf("unknown kind %q", raw)
}

func parseAmounts(raw string) ([]uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) > escrow.MaxLegs {
		return nil, fmt.Errorf("%d amounts exceed %d legs", len(parts), escrow.MaxLegs)
	}
	out := make([]uint64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func runEncode(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("encode", stderr)
	kindStr := fs.String("kind", "", "commit, settle or cancel")
	direction := fs.Uint("direction", 0, "native leg direction (0 none, 1 initiator deposits, 2 counterparty pays)")
	reserve := fs.Uint64("reserve", 0, "native reserve amount")
	legsA := fs.String("a", "", "comma separated amounts of initiator legs")
	legsB := fs.String("b", "", "comma separated amounts of counterparty legs")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	kind, err := parseKind(*kindStr)
	if err != nil {
		return fail(stderr, err)
	}
	if *direction > 255 {
		return fail(stderr, fmt.Errorf("direction %d out of range", *direction))
	}
	amountsA, err := parseAmounts(*legsA)
	if err != nil {
		return fail(stderr, err)
	}
	amountsB, err := parseAmounts(*legsB)
	if err != nil {
		return fail(stderr, err)
	}
	cmd := &escrow.Command{
		Kind:            kind,
		NativeDirection: escrow.NativeDirection(*direction),
		ReserveAmount:   *reserve,
		LegCountA:       uint8(len(amountsA)),
		LegCountB:       uint8(len(amountsB)),
	}
	copy(cmd.LegAmountsA[:], amountsA)
	copy(cmd.LegAmountsB[:], amountsB)
	raw, err := escrow.EncodeInstruction(cmd)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, hex.EncodeToString(raw))
	return 0
}

func hexArg(args []string) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.New("expected exactly one hex argument")
	}
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(args[0]), "0x"))
}

func runDecode(args []string, stdout, stderr io.Writer) int {
	raw, err := hexArg(args)
	if err != nil {
		return fail(stderr, err)
	}
	cmd, err := escrow.DecodeInstruction(raw)
	if err != nil {
		return fail(stderr, err)
	}
	if err := printJSON(stdout, escrow.DescribeCommand(cmd)); err != nil {
		return fail(stderr, err)
	}
	return 0
}

func runRecord(args []string, stdout, stderr io.Writer) int {
	raw, err := hexArg(args)
	if err != nil {
		return fail(stderr, err)
	}
	rec, err := escrow.ReadRecord(raw)
	if err != nil {
		return fail(stderr, err)
	}
	if err := printJSON(stdout, escrow.DescribeRecord(rec)); err != nil {
		return fail(stderr, err)
	}
	return 0
}

func loadTerms(path string) (*escrow.Terms, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terms: %w", err)
	}
	var terms escrow.Terms
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&terms); err != nil {
		return nil, fmt.Errorf("decode terms %s: %w", path, err)
	}
	return &terms, nil
}
