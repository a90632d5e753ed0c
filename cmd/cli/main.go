// Package main is the entry point for the permit-fees CLI.
package main

import (
	"os"

	"permit-fees/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
