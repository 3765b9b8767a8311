// Package main provides the Rootline CLI.
package main

import (
	"os"

	"github.com/rootline-labs/rootline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
