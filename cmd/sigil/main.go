package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:])
	case "verify":
		return runVerify(args[1:])
	case "renew-sweep":
		return runRenewSweep(args[1:])
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sigil <command> [flags]

commands:
  keygen       generate and activate a new CA signing key
  verify       verify a certificate document offline
  renew-sweep  renew near-expiry certificates once and exit`)
}
