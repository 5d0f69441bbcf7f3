// Package main is the entry point for the banken-ledger CLI.
package main

import (
	"os"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/cmd/banken-ledger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
