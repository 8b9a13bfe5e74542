package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	rpcURLEnv   = "MULTISWAP_RPC_URL"
	rpcTokenEnv = "MULTISWAP_RPC_TOKEN"
	defaultRPC  = "http://localhost:8899"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "authority":
		return runAuthority(args[1:], stdout, stderr)
	case "encode":
		return runEncode(args[1:], stdout, stderr)
	case "decode":
		return runDecode(args[1:], stdout, stderr)
	case "record":
		return runRecord(args[1:], stdout, stderr)
	case "commit", "settle", "cancel":
		return runSubmit(args[0], args[1:], stdout, stderr)
	case "escrow":
		return runShowEscrow(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: swap-cli <command> [flags]

Commands:
  keygen     -out <file>                          generate an ed25519 keypair file
  authority  [-program <id>] [-seed <seed>]       derive the escrow signing authority
  encode     -kind <commit|settle|cancel> ...     build an escrow instruction (hex)
  decode     <hex>                                decode an escrow instruction
  record     <hex>                                decode a stored escrow record
  commit     -terms <file> -key <file> -escrow-key <file>
  settle     -terms <file> -key <file>
  cancel     -terms <file> -key <file>
  escrow     <address>                            show the record held by an escrow account

Submit and query commands read the node URL from -rpc or ` + rpcURLEnv + `
and an optional bearer token from ` + rpcTokenEnv + `.`)
}
